package payouts

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fireguard/booking-payments/internal/bookings"
	"github.com/fireguard/booking-payments/internal/gateway"
	"github.com/fireguard/booking-payments/internal/pricing"
	"github.com/fireguard/booking-payments/pkg/db/models"
	"github.com/fireguard/booking-payments/pkg/enums"
	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
	"github.com/fireguard/booking-payments/pkg/types"
)

type recordingObserver struct {
	calls    map[string]int
	statuses []enums.PayoutStatus
}

func (r *recordingObserver) GatewayCall(operation, outcome string) {
	if r.calls == nil {
		r.calls = map[string]int{}
	}
	r.calls[operation+"/"+outcome]++
}

func (r *recordingObserver) PayoutStatus(status enums.PayoutStatus) {
	r.statuses = append(r.statuses, status)
}

type fixture struct {
	bookings *bookings.Service
	store    *bookings.MemoryStore
	svc      *Service
	sandbox  *gateway.Sandbox
	observer *recordingObserver
	admin    types.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	calc, err := pricing.NewCalculator(pricing.DefaultTable())
	if err != nil {
		t.Fatalf("calculator: %v", err)
	}
	store := bookings.NewMemoryStore()
	bookingSvc, err := bookings.NewService(store, bookings.NewKeyedMutex(), calc, nil)
	if err != nil {
		t.Fatalf("booking service: %v", err)
	}
	sandbox := gateway.NewSandbox()
	observer := &recordingObserver{}
	svc, err := NewService(bookingSvc, sandbox, nil, observer)
	if err != nil {
		t.Fatalf("payout service: %v", err)
	}
	return &fixture{
		bookings: bookingSvc,
		store:    store,
		svc:      svc,
		sandbox:  sandbox,
		observer: observer,
		admin:    types.Actor{ID: uuid.New(), Role: enums.ActorRoleAdmin},
	}
}

// consultation creates a 300.00 consultation paid in full at a 10% rate.
func (f *fixture) consultation(t *testing.T, delivered bool) *models.Booking {
	t.Helper()
	ctx := context.Background()
	customer := uuid.New()
	b, err := f.bookings.Create(ctx, types.Actor{ID: customer, Role: enums.ActorRoleCustomer}, bookings.CreateInput{
		CustomerID:     customer,
		ProfessionalID: uuid.New(),
		ServiceType:    enums.ServiceConsultation,
		Attributes:     pricing.Attributes{BasePriceCents: 30000},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b = f.setPayment(t, b.ID, enums.PaymentStatusSucceeded, 0)
	if delivered {
		b, err = f.bookings.SubmitDeliverable(ctx, b.ID, types.SystemActor, gateway.SubmittedDeliverable{
			Type:        enums.DeliverableConsultationNotes,
			ArtifactRef: "notes.pdf",
		})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	return b
}

func (f *fixture) setPayment(t *testing.T, id uuid.UUID, status enums.PaymentStatus, refunded int64) *models.Booking {
	t.Helper()
	b, err := f.bookings.Mutate(context.Background(), id, types.SystemActor, func(ctx context.Context, b *models.Booking, uow *bookings.UnitOfWork) error {
		if p := b.CurrentPayment(); p != nil {
			p.Status = status
			p.RefundedCents = refunded
			return nil
		}
		b.Payments = append(b.Payments, models.Payment{
			ID:              uuid.New(),
			BookingID:       b.ID,
			Attempt:         1,
			Status:          status,
			AmountCents:     b.FinalPriceCents,
			RefundedCents:   refunded,
			CommissionCents: 3000,
			EarningsCents:   b.FinalPriceCents - 3000,
			CommissionRate:  decimal.RequireFromString("0.10"),
			IdempotencyKey:  gateway.CheckoutKey(b.ID, 1),
		})
		return nil
	})
	if err != nil {
		t.Fatalf("set payment: %v", err)
	}
	return b
}

func (f *fixture) ledgerCount(kind enums.LedgerEventType) int {
	n := 0
	for _, e := range f.store.Ledger() {
		if e.Type == kind {
			n++
		}
	}
	return n
}

func TestCreatePayoutRequiresEligibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.consultation(t, false)

	_, err := f.svc.CreatePayout(ctx, b.ID, "", types.SystemActor)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotEligible) {
		t.Fatalf("expected not eligible, got %v", err)
	}
	typed := pkgerrors.As(err)
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected structured details, got %T", typed.Details())
	}
	reasons, ok := details["reasons"].([]Reason)
	if !ok || len(reasons) != 1 || reasons[0].Code != ReasonDeliverablesMissing {
		t.Fatalf("unexpected reasons %+v", details["reasons"])
	}
}

func TestCreatePayoutSchedulesFrozenEarningsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.consultation(t, true)

	first, err := f.svc.CreatePayout(ctx, b.ID, "", types.SystemActor)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Status != enums.PayoutStatusScheduled || first.AmountCents != 27000 {
		t.Fatalf("unexpected payout %+v", first)
	}
	if first.AccountRef != DefaultAccountRef(b.ProfessionalID) || first.IdempotencyKey != gateway.PayoutKey(b.ID) {
		t.Fatalf("unexpected refs %+v", first)
	}

	again, err := f.svc.CreatePayout(ctx, b.ID, "", types.SystemActor)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("expected the same payout back")
	}
	_, err = f.svc.CreatePayout(ctx, b.ID, "acct_other", types.SystemActor)
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("expected invalid state for a second account, got %v", err)
	}
	if n := f.ledgerCount(enums.LedgerEventPayoutScheduled); n != 1 {
		t.Fatalf("expected one scheduled entry, got %d", n)
	}
}

func TestCreatePayoutAfterPartialRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.consultation(t, true)
	b = f.setPayment(t, b.ID, enums.PaymentStatusPartiallyRefunded, 1000)
	if b.Status != enums.BookingStatusCompleted {
		t.Fatalf("expected completed booking, got %s", b.Status)
	}
	created, err := f.svc.CreatePayout(ctx, b.ID, "", types.SystemActor)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != enums.PayoutStatusScheduled || created.AmountCents != 26000 {
		t.Fatalf("expected 26000 scheduled, got %+v", created)
	}
	paid, err := f.svc.ExecutePayout(ctx, b.ID, types.SystemActor)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if paid.Status != enums.PayoutStatusPaid {
		t.Fatalf("expected paid, got %s", paid.Status)
	}

	drained := f.consultation(t, true)
	f.setPayment(t, drained.ID, enums.PaymentStatusPartiallyRefunded, 28000)
	_, err = f.svc.CreatePayout(ctx, drained.ID, "", types.SystemActor)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotEligible) {
		t.Fatalf("expected not eligible once refunds pass earnings, got %v", err)
	}
}

func TestExecutePayoutPaysAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.consultation(t, true)
	if _, err := f.svc.CreatePayout(ctx, b.ID, "", types.SystemActor); err != nil {
		t.Fatalf("create: %v", err)
	}

	paid, err := f.svc.ExecutePayout(ctx, b.ID, types.SystemActor)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if paid.Status != enums.PayoutStatusPaid || paid.ExecutedAt == nil || paid.ExternalRef == nil || paid.Attempts != 1 {
		t.Fatalf("unexpected payout %+v", paid)
	}
	again, err := f.svc.ExecutePayout(ctx, b.ID, types.SystemActor)
	if err != nil {
		t.Fatalf("second execute: %v", err)
	}
	if again.Attempts != 1 {
		t.Fatalf("expected no second attempt, got %d", again.Attempts)
	}
	if n := len(f.sandbox.Disbursements()); n != 1 {
		t.Fatalf("expected one disbursement, got %d", n)
	}
	if f.observer.calls["payout/ok"] != 1 {
		t.Fatalf("expected one ok gateway call, got %v", f.observer.calls)
	}
}

func TestExecutePayoutDeclineThenRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.consultation(t, true)
	payout, err := f.svc.CreatePayout(ctx, b.ID, "", types.SystemActor)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.sandbox.FailAccount(payout.AccountRef, "account_closed")

	failed, err := f.svc.ExecutePayout(ctx, b.ID, types.SystemActor)
	if err != nil {
		t.Fatalf("declined payout should not error: %v", err)
	}
	if failed.Status != enums.PayoutStatusFailed || failed.LastError == nil || *failed.LastError != "account_closed" {
		t.Fatalf("unexpected failed payout %+v", failed)
	}

	f.sandbox.FailAccount(payout.AccountRef, "")
	paid, err := f.svc.ExecutePayout(ctx, b.ID, types.SystemActor)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if paid.Status != enums.PayoutStatusPaid || paid.Attempts != 2 || paid.LastError != nil {
		t.Fatalf("unexpected retried payout %+v", paid)
	}
	if f.ledgerCount(enums.LedgerEventPayoutFailed) != 1 || f.ledgerCount(enums.LedgerEventPayoutPaid) != 1 {
		t.Fatalf("unexpected ledger %+v", f.store.Ledger())
	}
}

func TestExecutePayoutTransportErrorIsRecorded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.consultation(t, true)
	if _, err := f.svc.CreatePayout(ctx, b.ID, "", types.SystemActor); err != nil {
		t.Fatalf("create: %v", err)
	}
	f.sandbox.SetUnavailable(true)

	payout, err := f.svc.ExecutePayout(ctx, b.ID, types.SystemActor)
	if !pkgerrors.IsCode(err, pkgerrors.CodeGateway) || !errors.Is(err, gateway.ErrSandboxUnavailable) {
		t.Fatalf("expected gateway error, got %v", err)
	}
	if payout == nil || payout.Status != enums.PayoutStatusFailed || payout.Attempts != 1 {
		t.Fatalf("expected failed payout to be committed, got %+v", payout)
	}
	stored, err := f.bookings.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Payout.Status != enums.PayoutStatusFailed {
		t.Fatalf("expected failure persisted, got %s", stored.Payout.Status)
	}
}

func TestExecutePayoutWithoutPayout(t *testing.T) {
	f := newFixture(t)
	b := f.consultation(t, false)
	_, err := f.svc.ExecutePayout(context.Background(), b.ID, types.SystemActor)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotEligible) {
		t.Fatalf("expected not eligible, got %v", err)
	}
}

func TestForcePayoutBypassesDeliverables(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.consultation(t, false)

	_, err := f.svc.ForcePayout(ctx, b.ID, types.Actor{ID: uuid.New(), Role: enums.ActorRoleCustomer}, 0, "", "urgent")
	if !pkgerrors.IsCode(err, pkgerrors.CodeNoAuthority) {
		t.Fatalf("expected no authority, got %v", err)
	}
	_, err = f.svc.ForcePayout(ctx, b.ID, f.admin, 27001, "", "too much")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected cap rejection, got %v", err)
	}

	payout, err := f.svc.ForcePayout(ctx, b.ID, f.admin, 0, "", "professional dispute settled")
	if err != nil {
		t.Fatalf("force: %v", err)
	}
	if payout.Status != enums.PayoutStatusPaid || !payout.Forced || payout.AmountCents != 27000 {
		t.Fatalf("unexpected forced payout %+v", payout)
	}
	if payout.ForcedBy == nil || *payout.ForcedBy != f.admin.ID || payout.ForceReason == nil {
		t.Fatalf("expected force audit fields, got %+v", payout)
	}
	if f.ledgerCount(enums.LedgerEventPayoutForced) != 1 {
		t.Fatalf("expected payout_forced ledger entry")
	}

	_, err = f.svc.ForcePayout(ctx, b.ID, f.admin, 0, "", "again")
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("expected paid payout to be final, got %v", err)
	}
}

func TestForcePayoutRespectsRefundedPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.consultation(t, false)
	f.setPayment(t, b.ID, enums.PaymentStatusRefunded, 30000)

	_, err := f.svc.ForcePayout(ctx, b.ID, f.admin, 0, "", "ignore refund")
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("expected invalid state on refunded payment, got %v", err)
	}
	if len(f.sandbox.Disbursements()) != 0 {
		t.Fatalf("expected no disbursement")
	}
}

func TestForcePayoutCapsAtRemainingBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.consultation(t, false)
	f.setPayment(t, b.ID, enums.PaymentStatusPartiallyRefunded, 10000)

	payout, err := f.svc.ForcePayout(ctx, b.ID, f.admin, 0, "acct_manual", "partial settlement")
	if err != nil {
		t.Fatalf("force: %v", err)
	}
	if payout.AmountCents != 17000 || payout.AccountRef != "acct_manual" {
		t.Fatalf("unexpected payout %+v", payout)
	}
}

func TestHoldReleaseAndClawback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.consultation(t, true)
	if _, err := f.svc.CreatePayout(ctx, b.ID, "", types.SystemActor); err != nil {
		t.Fatalf("create: %v", err)
	}

	mutate := func(fn func(b *models.Booking, uow *bookings.UnitOfWork) error) (*models.Booking, error) {
		return f.bookings.Mutate(ctx, b.ID, f.admin, func(ctx context.Context, b *models.Booking, uow *bookings.UnitOfWork) error {
			return fn(b, uow)
		})
	}

	held, err := mutate(func(b *models.Booking, uow *bookings.UnitOfWork) error {
		return Hold(b, f.admin, "dispute opened", uow)
	})
	if err != nil {
		t.Fatalf("hold: %v", err)
	}
	if held.Payout.Status != enums.PayoutStatusHeld || held.Payout.HoldReason == nil {
		t.Fatalf("unexpected held payout %+v", held.Payout)
	}
	if _, err := mutate(func(b *models.Booking, uow *bookings.UnitOfWork) error {
		return Hold(b, f.admin, "again", uow)
	}); err != nil {
		t.Fatalf("second hold should be a no-op: %v", err)
	}

	f.setPayment(t, b.ID, enums.PaymentStatusPartiallyRefunded, 20000)
	released, err := mutate(func(b *models.Booking, uow *bookings.UnitOfWork) error {
		return Release(b, f.admin, "dispute resolved", uow)
	})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released.Payout.Status != enums.PayoutStatusScheduled || released.Payout.AmountCents != 7000 {
		t.Fatalf("expected release capped at 7000, got %+v", released.Payout)
	}

	if _, err := mutate(func(b *models.Booking, uow *bookings.UnitOfWork) error {
		return Clawback(b, f.admin, "not held", uow)
	}); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("expected clawback of scheduled payout to fail, got %v", err)
	}
	if _, err := mutate(func(b *models.Booking, uow *bookings.UnitOfWork) error {
		return Hold(b, f.admin, "second dispute", uow)
	}); err != nil {
		t.Fatalf("re-hold: %v", err)
	}
	cancelled, err := mutate(func(b *models.Booking, uow *bookings.UnitOfWork) error {
		return Clawback(b, f.admin, "work rejected", uow)
	})
	if err != nil {
		t.Fatalf("clawback: %v", err)
	}
	if cancelled.Payout.Status != enums.PayoutStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Payout.Status)
	}
	if _, err := f.svc.ExecutePayout(ctx, b.ID, types.SystemActor); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("expected cancelled payout to refuse execution, got %v", err)
	}
	if f.ledgerCount(enums.LedgerEventPayoutClawedBack) != 1 {
		t.Fatalf("expected clawback ledger entry")
	}
}

func TestReleaseWithNothingPayable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.consultation(t, true)
	if _, err := f.svc.CreatePayout(ctx, b.ID, "", types.SystemActor); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := f.bookings.Mutate(ctx, b.ID, f.admin, func(ctx context.Context, b *models.Booking, uow *bookings.UnitOfWork) error {
		return Hold(b, f.admin, "refund pending", uow)
	})
	if err != nil {
		t.Fatalf("hold: %v", err)
	}
	f.setPayment(t, b.ID, enums.PaymentStatusRefunded, 30000)
	_, err = f.bookings.Mutate(ctx, b.ID, f.admin, func(ctx context.Context, b *models.Booking, uow *bookings.UnitOfWork) error {
		return Release(b, f.admin, "try anyway", uow)
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}
