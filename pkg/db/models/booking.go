package models

import (
	"sort"
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/fireguard/booking-payments/pkg/db/types"
	"github.com/fireguard/booking-payments/pkg/enums"
)

// Booking is the aggregate root owning its payments, payout, deliverables
// and refund requests. Status is a cache of the derived status and is only
// written by the status cascade.
type Booking struct {
	ID                   uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID           uuid.UUID                `gorm:"column:customer_id;type:uuid;not null;index"`
	ProfessionalID       uuid.UUID                `gorm:"column:professional_id;type:uuid;not null;index"`
	ServiceType          enums.ServiceType        `gorm:"column:service_type;type:text;not null"`
	BasePriceCents       int64                    `gorm:"column:base_price_cents;not null"`
	PropertySize         *enums.PropertySize      `gorm:"column:property_size;type:text"`
	RiskLevel            *enums.RiskLevel         `gorm:"column:risk_level;type:text"`
	FinalPriceCents      int64                    `gorm:"column:final_price_cents;not null"`
	Status               enums.BookingStatus      `gorm:"column:status;type:text;not null;default:'created'"`
	Termination          enums.BookingTermination `gorm:"column:termination;type:text;not null;default:'none'"`
	TerminationReason    *string                  `gorm:"column:termination_reason"`
	RequiredDeliverables dbtypes.DeliverableTypes `gorm:"column:required_deliverables;type:text;not null"`
	Version              int64                    `gorm:"column:version;not null;default:0"`
	CreatedAt            time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                `gorm:"column:updated_at;autoUpdateTime"`

	Payments       []Payment       `gorm:"foreignKey:BookingID"`
	Payout         *Payout         `gorm:"foreignKey:BookingID"`
	Deliverables   []Deliverable   `gorm:"foreignKey:BookingID"`
	RefundRequests []RefundRequest `gorm:"foreignKey:BookingID"`
}

// CurrentPayment returns the latest payment attempt, or nil before checkout.
func (b *Booking) CurrentPayment() *Payment {
	if b == nil || len(b.Payments) == 0 {
		return nil
	}
	latest := 0
	for i := range b.Payments {
		if b.Payments[i].Attempt > b.Payments[latest].Attempt {
			latest = i
		}
	}
	return &b.Payments[latest]
}

// SubmittedTypes returns the distinct deliverable types submitted so far.
func (b *Booking) SubmittedTypes() []enums.DeliverableType {
	seen := map[enums.DeliverableType]struct{}{}
	out := []enums.DeliverableType{}
	for _, d := range b.Deliverables {
		if _, ok := seen[d.Type]; ok {
			continue
		}
		seen[d.Type] = struct{}{}
		out = append(out, d.Type)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MissingDeliverables lists required types that have not been submitted.
func (b *Booking) MissingDeliverables() []enums.DeliverableType {
	submitted := map[enums.DeliverableType]struct{}{}
	for _, d := range b.Deliverables {
		submitted[d.Type] = struct{}{}
	}
	missing := []enums.DeliverableType{}
	for _, required := range b.RequiredDeliverables {
		if _, ok := submitted[required]; !ok {
			missing = append(missing, required)
		}
	}
	return missing
}

// RefundRequest looks up a refund request by id.
func (b *Booking) RefundRequest(id uuid.UUID) *RefundRequest {
	for i := range b.RefundRequests {
		if b.RefundRequests[i].ID == id {
			return &b.RefundRequests[i]
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	out := *b
	if b.PropertySize != nil {
		v := *b.PropertySize
		out.PropertySize = &v
	}
	if b.RiskLevel != nil {
		v := *b.RiskLevel
		out.RiskLevel = &v
	}
	out.TerminationReason = cloneString(b.TerminationReason)
	out.RequiredDeliverables = append(dbtypes.DeliverableTypes(nil), b.RequiredDeliverables...)
	out.Payments = make([]Payment, len(b.Payments))
	for i := range b.Payments {
		out.Payments[i] = b.Payments[i].clone()
	}
	if b.Payout != nil {
		p := b.Payout.clone()
		out.Payout = &p
	}
	out.Deliverables = append([]Deliverable(nil), b.Deliverables...)
	out.RefundRequests = make([]RefundRequest, len(b.RefundRequests))
	for i := range b.RefundRequests {
		out.RefundRequests[i] = b.RefundRequests[i].clone()
	}
	return &out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
