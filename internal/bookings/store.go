package bookings

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fireguard/booking-payments/internal/ledger"
	"github.com/fireguard/booking-payments/pkg/db/models"
	"github.com/fireguard/booking-payments/pkg/enums"
	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
	"github.com/fireguard/booking-payments/pkg/outbox"
)

// UnitOfWork collects the ledger rows and outbox events produced by one
// booking mutation so the store can persist them with the aggregate.
type UnitOfWork struct {
	ledger []models.LedgerEvent
	events []outbox.DomainEvent
}

// Record validates and queues a ledger entry.
func (u *UnitOfWork) Record(input ledger.RecordLedgerEventInput) error {
	event, err := ledger.NewEvent(input)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build ledger entry")
	}
	u.ledger = append(u.ledger, event)
	return nil
}

func (u *UnitOfWork) Emit(event outbox.DomainEvent) {
	u.events = append(u.events, event)
}

func (u *UnitOfWork) Ledger() []models.LedgerEvent {
	if u == nil {
		return nil
	}
	return u.ledger
}

func (u *UnitOfWork) Events() []outbox.DomainEvent {
	if u == nil {
		return nil
	}
	return u.events
}

// Store persists booking aggregates. Commit rejects a stale version with
// CodeConflict and a status that disagrees with DeriveStatus with
// CodeInvalidState; on success b.Version is advanced.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	Create(ctx context.Context, b *models.Booking, uow *UnitOfWork) error
	Commit(ctx context.Context, b *models.Booking, expectedVersion int64, uow *UnitOfWork) error
	ListPayoutCandidates(ctx context.Context, limit, maxAttempts int) ([]uuid.UUID, error)
}

func checkDerived(b *models.Booking) error {
	derived := DeriveStatus(SnapshotOf(b))
	if b.Status != derived {
		return pkgerrors.InvalidState("booking status is derived", string(b.Status), string(derived))
	}
	return nil
}

func notFound(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("booking %s not found", id))
}

func staleVersion(id uuid.UUID, expected int64) error {
	return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("booking %s changed since version %d", id, expected))
}

// payoutCandidate mirrors the SQL filter used by GormStore.
func payoutCandidate(b *models.Booking, maxAttempts int) bool {
	if b.Status != enums.BookingStatusCompleted || b.Termination != enums.TerminationNone {
		return false
	}
	if b.Payout == nil {
		payment := b.CurrentPayment()
		if payment == nil {
			return false
		}
		switch payment.Status {
		case enums.PaymentStatusSucceeded, enums.PaymentStatusPartiallyRefunded:
			return payment.AmountCents-payment.CommissionCents-payment.RefundedCents > 0
		}
		return false
	}
	return b.Payout.Status.Executable() && b.Payout.Attempts < maxAttempts
}
