package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fireguard/booking-payments/pkg/db/models"
	"github.com/fireguard/booking-payments/pkg/enums"
	"github.com/fireguard/booking-payments/pkg/types"
	"github.com/google/uuid"
)

// Service defines operations that record and read ledger events.
type Service interface {
	RecordEvent(ctx context.Context, input RecordLedgerEventInput) (*models.LedgerEvent, error)
	ListForBooking(ctx context.Context, bookingID uuid.UUID) ([]models.LedgerEvent, error)
	HasEvent(ctx context.Context, bookingID uuid.UUID, eventType enums.LedgerEventType) (bool, error)
}

type service struct {
	repo Repository
}

// RecordLedgerEventInput captures the immutable data a ledger event requires.
// BookingID is nil for platform-wide actions.
type RecordLedgerEventInput struct {
	BookingID   *uuid.UUID            `json:"booking_id,omitempty"`
	Actor       types.Actor           `json:"actor"`
	Type        enums.LedgerEventType `json:"type"`
	AmountCents int64                 `json:"amount_cents"`
	Reason      string                `json:"reason,omitempty"`
	Metadata    any                   `json:"metadata,omitempty"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

// NewEvent validates the input and builds an unsaved ledger row. Booking
// mutations collect these and persist them in the same transaction as the
// aggregate.
func NewEvent(input RecordLedgerEventInput) (models.LedgerEvent, error) {
	if !input.Actor.Valid() {
		return models.LedgerEvent{}, fmt.Errorf("actor is required")
	}
	if !input.Type.IsValid() {
		return models.LedgerEvent{}, fmt.Errorf("invalid ledger event type %q", input.Type)
	}
	if input.BookingID != nil && *input.BookingID == uuid.Nil {
		return models.LedgerEvent{}, fmt.Errorf("booking id is invalid")
	}
	if input.AmountCents < 0 {
		return models.LedgerEvent{}, fmt.Errorf("amount must not be negative")
	}

	event := models.LedgerEvent{
		ID:          uuid.New(),
		BookingID:   input.BookingID,
		ActorID:     input.Actor.ID,
		ActorRole:   input.Actor.Role,
		Type:        input.Type,
		AmountCents: input.AmountCents,
	}
	if reason := strings.TrimSpace(input.Reason); reason != "" {
		event.Reason = &reason
	}
	if input.Metadata != nil {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			return models.LedgerEvent{}, fmt.Errorf("encode ledger metadata: %w", err)
		}
		event.Metadata = raw
	}
	return event, nil
}

func (s *service) RecordEvent(ctx context.Context, input RecordLedgerEventInput) (*models.LedgerEvent, error) {
	event, err := NewEvent(input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *service) ListForBooking(ctx context.Context, bookingID uuid.UUID) ([]models.LedgerEvent, error) {
	if bookingID == uuid.Nil {
		return nil, fmt.Errorf("booking id is required")
	}
	return s.repo.ListByBookingID(ctx, bookingID)
}

func (s *service) HasEvent(ctx context.Context, bookingID uuid.UUID, eventType enums.LedgerEventType) (bool, error) {
	if bookingID == uuid.Nil {
		return false, fmt.Errorf("booking id is required")
	}
	if !eventType.IsValid() {
		return false, fmt.Errorf("invalid ledger event type %q", eventType)
	}

	events, err := s.repo.ListByBookingID(ctx, bookingID)
	if err != nil {
		return false, err
	}
	for _, event := range events {
		if event.Type == eventType {
			return true, nil
		}
	}
	return false, nil
}
