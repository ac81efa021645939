package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/fireguard/booking-payments/pkg/db/models"
	"github.com/fireguard/booking-payments/pkg/enums"
	"github.com/fireguard/booking-payments/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeRepository struct {
	createFn func(ctx context.Context, event *models.LedgerEvent) error
	events   []models.LedgerEvent
	listErr  error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, event *models.LedgerEvent) error {
	if f.createFn != nil {
		return f.createFn(ctx, event)
	}
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeRepository) ListByBookingID(ctx context.Context, bookingID uuid.UUID) ([]models.LedgerEvent, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.LedgerEvent
	for _, event := range f.events {
		if event.BookingID != nil && *event.BookingID == bookingID {
			out = append(out, event)
		}
	}
	return out, nil
}

func (f *fakeRepository) ListByType(ctx context.Context, eventType enums.LedgerEventType, limit int) ([]models.LedgerEvent, error) {
	return nil, nil
}

func TestService_RecordEvent(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	bookingID := uuid.New()
	input := RecordLedgerEventInput{
		BookingID:   &bookingID,
		Actor:       types.Actor{ID: uuid.New(), Role: enums.ActorRoleAdmin},
		Type:        enums.LedgerEventPayoutForced,
		AmountCents: 25500,
		Reason:      "  dispute settled offline ",
		Metadata:    map[string]string{"cap": "earnings"},
	}

	var created *models.LedgerEvent
	repo.createFn = func(ctx context.Context, event *models.LedgerEvent) error {
		created = event
		return nil
	}

	got, err := svc.RecordEvent(context.Background(), input)
	if err != nil {
		t.Fatalf("RecordEvent error: %v", err)
	}
	if created == nil {
		t.Fatal("expected ledger event to be created")
	}
	if *created.BookingID != bookingID || created.Type != input.Type || created.AmountCents != input.AmountCents {
		t.Fatalf("unexpected ledger event data: %+v", created)
	}
	if created.ActorID != input.Actor.ID || created.ActorRole != enums.ActorRoleAdmin {
		t.Fatalf("missing actor metadata: %+v", created)
	}
	if created.Reason == nil || *created.Reason != "dispute settled offline" {
		t.Fatalf("reason not trimmed: %v", created.Reason)
	}
	if string(created.Metadata) != `{"cap":"earnings"}` {
		t.Fatalf("metadata mismatch: %s", created.Metadata)
	}
	if got != created {
		t.Fatalf("service should return created event")
	}
}

func TestNewEventValidation(t *testing.T) {
	bookingID := uuid.New()
	nilID := uuid.Nil
	admin := types.Actor{ID: uuid.New(), Role: enums.ActorRoleAdmin}

	tests := []struct {
		name  string
		input RecordLedgerEventInput
	}{
		{
			name:  "missing actor",
			input: RecordLedgerEventInput{BookingID: &bookingID, Type: enums.LedgerEventPaymentCaptured},
		},
		{
			name:  "customer without id",
			input: RecordLedgerEventInput{BookingID: &bookingID, Actor: types.Actor{Role: enums.ActorRoleCustomer}, Type: enums.LedgerEventRefundRequested},
		},
		{
			name:  "invalid type",
			input: RecordLedgerEventInput{BookingID: &bookingID, Actor: admin, Type: "bogus"},
		},
		{
			name:  "nil booking pointer value",
			input: RecordLedgerEventInput{BookingID: &nilID, Actor: admin, Type: enums.LedgerEventPaymentCaptured},
		},
		{
			name:  "negative amount",
			input: RecordLedgerEventInput{BookingID: &bookingID, Actor: admin, Type: enums.LedgerEventRefundApplied, AmountCents: -1},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewEvent(tc.input); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestNewEventAllowsSystemActorAndPlatformEvents(t *testing.T) {
	event, err := NewEvent(RecordLedgerEventInput{
		Actor: types.SystemActor,
		Type:  enums.LedgerEventCommissionUpdated,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.BookingID != nil {
		t.Fatalf("expected platform event without booking")
	}
	if event.ID == uuid.Nil {
		t.Fatalf("expected generated id")
	}
}

func TestService_HasEvent(t *testing.T) {
	repo := &fakeRepository{}
	svc, _ := NewService(repo)
	bookingID := uuid.New()

	if _, err := svc.RecordEvent(context.Background(), RecordLedgerEventInput{
		BookingID:   &bookingID,
		Actor:       types.SystemActor,
		Type:        enums.LedgerEventPaymentCaptured,
		AmountCents: 30000,
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	found, err := svc.HasEvent(context.Background(), bookingID, enums.LedgerEventPaymentCaptured)
	if err != nil || !found {
		t.Fatalf("expected captured event, found=%v err=%v", found, err)
	}
	found, err = svc.HasEvent(context.Background(), bookingID, enums.LedgerEventPayoutPaid)
	if err != nil || found {
		t.Fatalf("did not expect payout event, found=%v err=%v", found, err)
	}
	if _, err := svc.HasEvent(context.Background(), uuid.Nil, enums.LedgerEventPayoutPaid); err == nil {
		t.Fatal("expected error for nil booking")
	}

	repo.listErr = errors.New("db down")
	if _, err := svc.HasEvent(context.Background(), bookingID, enums.LedgerEventPayoutPaid); err == nil {
		t.Fatal("expected repository error")
	}
}

func TestNewServiceRequiresRepository(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected error")
	}
}
