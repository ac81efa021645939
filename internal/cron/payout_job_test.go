package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/fireguard/booking-payments/pkg/db/models"
	"github.com/fireguard/booking-payments/pkg/enums"
	"github.com/fireguard/booking-payments/pkg/logger"
	"github.com/fireguard/booking-payments/pkg/types"
)

type fakeCandidates struct {
	ids         []uuid.UUID
	err         error
	limit       int
	maxAttempts int
}

func (f *fakeCandidates) ListPayoutCandidates(_ context.Context, limit, maxAttempts int) ([]uuid.UUID, error) {
	f.limit = limit
	f.maxAttempts = maxAttempts
	return f.ids, f.err
}

type fakePayouts struct {
	created  map[uuid.UUID]enums.PayoutStatus
	execute  map[uuid.UUID]error
	results  map[uuid.UUID]enums.PayoutStatus
	executed []uuid.UUID
	actors   []types.Actor
}

func (f *fakePayouts) CreatePayout(_ context.Context, id uuid.UUID, _ string, actor types.Actor) (*models.Payout, error) {
	f.actors = append(f.actors, actor)
	status, ok := f.created[id]
	if !ok {
		return nil, errors.New("not eligible")
	}
	return &models.Payout{BookingID: id, Status: status}, nil
}

func (f *fakePayouts) ExecutePayout(_ context.Context, id uuid.UUID, _ types.Actor) (*models.Payout, error) {
	f.executed = append(f.executed, id)
	return &models.Payout{BookingID: id, Status: f.results[id]}, f.execute[id]
}

func TestPayoutJobExecutesAndAggregatesErrors(t *testing.T) {
	scheduled, failedBefore, held, broken, gatewayDown := uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()
	candidates := &fakeCandidates{ids: []uuid.UUID{scheduled, failedBefore, held, broken, gatewayDown}}
	payouts := &fakePayouts{
		created: map[uuid.UUID]enums.PayoutStatus{
			scheduled:    enums.PayoutStatusScheduled,
			failedBefore: enums.PayoutStatusFailed,
			held:         enums.PayoutStatusHeld,
			gatewayDown:  enums.PayoutStatusScheduled,
		},
		results: map[uuid.UUID]enums.PayoutStatus{
			scheduled:    enums.PayoutStatusPaid,
			failedBefore: enums.PayoutStatusPaid,
			gatewayDown:  enums.PayoutStatusFailed,
		},
		execute: map[uuid.UUID]error{gatewayDown: errors.New("gateway unavailable")},
	}
	job, err := NewPayoutJob(PayoutJobParams{
		Logger:      logger.Nop(),
		Candidates:  candidates,
		Payouts:     payouts,
		BatchSize:   10,
		MaxAttempts: 3,
	})
	if err != nil {
		t.Fatalf("NewPayoutJob: %v", err)
	}

	err = job.Run(context.Background())
	if got := len(multierr.Errors(err)); got != 2 {
		t.Fatalf("expected 2 aggregated errors, got %d (%v)", got, err)
	}
	if candidates.limit != 10 || candidates.maxAttempts != 3 {
		t.Fatalf("unexpected query limit=%d attempts=%d", candidates.limit, candidates.maxAttempts)
	}
	if len(payouts.executed) != 3 {
		t.Fatalf("expected 3 executions, got %v", payouts.executed)
	}
	for _, id := range payouts.executed {
		if id == held {
			t.Fatalf("held payout must not be executed")
		}
	}
	for _, actor := range payouts.actors {
		if actor.Role != enums.ActorRoleSystem {
			t.Fatalf("expected system actor, got %s", actor.Role)
		}
	}
}

func TestPayoutJobListError(t *testing.T) {
	job, err := NewPayoutJob(PayoutJobParams{
		Logger:     logger.Nop(),
		Candidates: &fakeCandidates{err: errors.New("db down")},
		Payouts:    &fakePayouts{},
	})
	if err != nil {
		t.Fatalf("NewPayoutJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewPayoutJobValidatesParams(t *testing.T) {
	if _, err := NewPayoutJob(PayoutJobParams{Logger: logger.Nop(), Payouts: &fakePayouts{}}); err == nil {
		t.Fatal("expected missing candidates error")
	}
	if _, err := NewPayoutJob(PayoutJobParams{Candidates: &fakeCandidates{}, Payouts: &fakePayouts{}}); err == nil {
		t.Fatal("expected missing logger error")
	}
}
