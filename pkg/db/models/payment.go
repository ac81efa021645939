package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fireguard/booking-payments/pkg/enums"
)

// Payment is one checkout attempt for a booking. The commission split is
// frozen when the checkout session is opened.
type Payment struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	BookingID         uuid.UUID           `gorm:"column:booking_id;type:uuid;not null;index"`
	Attempt           int                 `gorm:"column:attempt;not null;default:1"`
	Status            enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	AmountCents       int64               `gorm:"column:amount_cents;not null"`
	RefundedCents     int64               `gorm:"column:refunded_cents;not null;default:0"`
	CommissionCents   int64               `gorm:"column:commission_cents;not null"`
	EarningsCents     int64               `gorm:"column:earnings_cents;not null"`
	CommissionRate    decimal.Decimal     `gorm:"column:commission_rate;type:numeric(6,4);not null"`
	CommissionVersion int                 `gorm:"column:commission_version;not null"`
	SessionRef        *string             `gorm:"column:session_ref"`
	IdempotencyKey    string              `gorm:"column:idempotency_key;not null;uniqueIndex"`
	LastEventID       *string             `gorm:"column:last_event_id"`
	FailureReason     *string             `gorm:"column:failure_reason"`
	SucceededAt       *time.Time          `gorm:"column:succeeded_at"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// RefundableCents is what can still be returned to the customer.
func (p *Payment) RefundableCents() int64 {
	if p == nil {
		return 0
	}
	return p.AmountCents - p.RefundedCents
}

func (p Payment) clone() Payment {
	out := p
	out.SessionRef = cloneString(p.SessionRef)
	out.LastEventID = cloneString(p.LastEventID)
	out.FailureReason = cloneString(p.FailureReason)
	out.SucceededAt = cloneTime(p.SucceededAt)
	return out
}
