package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fireguard/booking-payments/pkg/enums"
)

// Payout is the single disbursement of professional earnings for a booking.
type Payout struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	BookingID        uuid.UUID          `gorm:"column:booking_id;type:uuid;not null;uniqueIndex"`
	Status           enums.PayoutStatus `gorm:"column:status;type:text;not null;default:'scheduled'"`
	AmountCents      int64              `gorm:"column:amount_cents;not null"`
	AccountRef       string             `gorm:"column:account_ref;not null"`
	IdempotencyKey   string             `gorm:"column:idempotency_key;not null"`
	ExternalRef      *string            `gorm:"column:external_ref"`
	Attempts         int                `gorm:"column:attempts;not null;default:0"`
	LastError        *string            `gorm:"column:last_error"`
	Forced           bool               `gorm:"column:forced;not null;default:false"`
	ForceReason      *string            `gorm:"column:force_reason"`
	ForcedBy         *uuid.UUID         `gorm:"column:forced_by;type:uuid"`
	HoldReason       *string            `gorm:"column:hold_reason"`
	ClawbackRequired bool               `gorm:"column:clawback_required;not null;default:false"`
	ScheduledAt      time.Time          `gorm:"column:scheduled_at;not null"`
	ExecutedAt       *time.Time         `gorm:"column:executed_at"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (p Payout) clone() Payout {
	out := p
	out.ExternalRef = cloneString(p.ExternalRef)
	out.LastError = cloneString(p.LastError)
	out.ForceReason = cloneString(p.ForceReason)
	out.ForcedBy = cloneUUID(p.ForcedBy)
	out.HoldReason = cloneString(p.HoldReason)
	out.ExecutedAt = cloneTime(p.ExecutedAt)
	return out
}
