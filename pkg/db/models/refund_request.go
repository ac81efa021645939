package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fireguard/booking-payments/pkg/enums"
)

// RefundRequest is resolved exactly once; after approval it may be applied
// exactly once.
type RefundRequest struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	BookingID      uuid.UUID            `gorm:"column:booking_id;type:uuid;not null;index"`
	PaymentID      uuid.UUID            `gorm:"column:payment_id;type:uuid;not null"`
	AmountCents    int64                `gorm:"column:amount_cents;not null"`
	Reason         enums.RefundReason   `gorm:"column:reason;type:text;not null"`
	Note           *string              `gorm:"column:note"`
	RequestedBy    uuid.UUID            `gorm:"column:requested_by;type:uuid;not null"`
	RequesterRole  enums.ActorRole      `gorm:"column:requester_role;type:text;not null"`
	Approval       enums.RefundApproval `gorm:"column:approval;type:text;not null;default:'pending'"`
	ResolvedBy     *uuid.UUID           `gorm:"column:resolved_by;type:uuid"`
	ResolvedAt     *time.Time           `gorm:"column:resolved_at"`
	ResolutionNote *string              `gorm:"column:resolution_note"`
	AdminOverride  bool                 `gorm:"column:admin_override;not null;default:false"`
	AppliedAt      *time.Time           `gorm:"column:applied_at"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
}

// Outstanding reports whether the request still reserves refundable balance.
func (r *RefundRequest) Outstanding() bool {
	if r.AppliedAt != nil {
		return false
	}
	return r.Approval == enums.RefundApprovalPending || r.Approval == enums.RefundApprovalApproved
}

func (r RefundRequest) clone() RefundRequest {
	out := r
	out.Note = cloneString(r.Note)
	out.ResolvedBy = cloneUUID(r.ResolvedBy)
	out.ResolvedAt = cloneTime(r.ResolvedAt)
	out.ResolutionNote = cloneString(r.ResolutionNote)
	out.AppliedAt = cloneTime(r.AppliedAt)
	return out
}
