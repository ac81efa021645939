package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/fireguard/booking-payments/pkg/enums"
)

// LedgerEvent records an immutable money or audit event. BookingID is nil
// for platform-wide actions such as commission updates.
type LedgerEvent struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	BookingID   *uuid.UUID            `gorm:"column:booking_id;type:uuid;index"`
	ActorID     uuid.UUID             `gorm:"column:actor_id;type:uuid;not null"`
	ActorRole   enums.ActorRole       `gorm:"column:actor_role;type:text;not null"`
	Type        enums.LedgerEventType `gorm:"column:type;type:text;not null"`
	AmountCents int64                 `gorm:"column:amount_cents;not null;default:0"`
	Reason      *string               `gorm:"column:reason"`
	Metadata    json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
