package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fireguard/booking-payments/pkg/enums"
)

// Deliverable marks that the professional submitted a required artifact.
// The artifact itself lives elsewhere; ArtifactRef is opaque here.
type Deliverable struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	BookingID   uuid.UUID             `gorm:"column:booking_id;type:uuid;not null;uniqueIndex:ux_deliverables_booking_type"`
	Type        enums.DeliverableType `gorm:"column:type;type:text;not null;uniqueIndex:ux_deliverables_booking_type"`
	ArtifactRef string                `gorm:"column:artifact_ref;not null"`
	SubmittedAt time.Time             `gorm:"column:submitted_at;not null"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
