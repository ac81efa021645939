package admin

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fireguard/booking-payments/internal/bookings"
	"github.com/fireguard/booking-payments/internal/commission"
	"github.com/fireguard/booking-payments/internal/gateway"
	"github.com/fireguard/booking-payments/internal/payments"
	"github.com/fireguard/booking-payments/internal/payouts"
	"github.com/fireguard/booking-payments/internal/pricing"
	"github.com/fireguard/booking-payments/pkg/db/models"
	"github.com/fireguard/booking-payments/pkg/enums"
	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
	"github.com/fireguard/booking-payments/pkg/types"
)

type env struct {
	admin        *Service
	bookings     *bookings.Service
	store        *bookings.MemoryStore
	payments     *payments.Service
	payouts      *payouts.Service
	commission   *commission.Engine
	commissionDB *commission.MemoryRepository
	identity     Identity
	customer     types.Actor
	professional types.Actor
}

func newEnv(t *testing.T) *env {
	t.Helper()
	calc, err := pricing.NewCalculator(pricing.DefaultTable())
	if err != nil {
		t.Fatalf("calculator: %v", err)
	}
	store := bookings.NewMemoryStore()
	bookingSvc, err := bookings.NewService(store, bookings.NewKeyedMutex(), calc, nil)
	if err != nil {
		t.Fatalf("bookings: %v", err)
	}
	repo := commission.NewMemoryRepository()
	engine, err := commission.NewEngine(repo, map[enums.ServiceType]decimal.Decimal{
		enums.ServiceConsultation: decimal.RequireFromString("0.15"),
	}, nil)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	sandbox := gateway.NewSandbox()
	paymentSvc, err := payments.NewService(bookingSvc, engine, sandbox, nil, nil)
	if err != nil {
		t.Fatalf("payments: %v", err)
	}
	payoutSvc, err := payouts.NewService(bookingSvc, sandbox, nil, nil)
	if err != nil {
		t.Fatalf("payouts: %v", err)
	}
	adminSvc, err := NewService(bookingSvc, paymentSvc, payoutSvc, engine, nil)
	if err != nil {
		t.Fatalf("admin: %v", err)
	}
	return &env{
		admin:        adminSvc,
		bookings:     bookingSvc,
		store:        store,
		payments:     paymentSvc,
		payouts:      payoutSvc,
		commission:   engine,
		commissionDB: repo,
		identity:     Identity{ID: uuid.New(), Role: enums.ActorRoleAdmin},
		customer:     types.Actor{ID: uuid.New(), Role: enums.ActorRoleCustomer},
		professional: types.Actor{ID: uuid.New(), Role: enums.ActorRoleProfessional},
	}
}

// paidBooking returns a consultation priced at 300.00 and captured.
func (e *env) paidBooking(t *testing.T) *models.Booking {
	t.Helper()
	ctx := context.Background()
	b, err := e.bookings.Create(ctx, e.customer, bookings.CreateInput{
		CustomerID:     e.customer.ID,
		ProfessionalID: e.professional.ID,
		ServiceType:    enums.ServiceConsultation,
		Attributes:     pricing.Attributes{BasePriceCents: 30000},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	checkout, err := e.payments.CreateCheckoutSession(ctx, b.ID, e.customer)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	b, err = e.payments.ApplyGatewayResult(ctx, b.ID, gateway.Outcome{SessionRef: checkout.SessionRef, Result: enums.GatewayResultSucceeded})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	return b
}

func (e *env) deliver(t *testing.T, id uuid.UUID) {
	t.Helper()
	if _, err := e.bookings.SubmitDeliverable(context.Background(), id, e.professional, gateway.SubmittedDeliverable{
		Type:        enums.DeliverableConsultationNotes,
		ArtifactRef: "notes.pdf",
	}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
}

func (e *env) ledgerBy(kind enums.LedgerEventType) []models.LedgerEvent {
	out := []models.LedgerEvent{}
	for _, entry := range e.store.Ledger() {
		if entry.Type == kind {
			out = append(out, entry)
		}
	}
	return out
}

func TestEveryOperationRequiresAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.paidBooking(t)
	callers := []Identity{
		e.customer,
		e.professional,
		types.SystemActor,
		{ID: uuid.Nil, Role: enums.ActorRoleAdmin},
	}
	for _, caller := range callers {
		checks := map[string]error{}
		_, checks["approve"] = e.admin.ApproveRefund(ctx, caller, b.ID, uuid.New(), "why", false)
		_, checks["deny"] = e.admin.DenyRefund(ctx, caller, b.ID, uuid.New(), "why")
		_, checks["force"] = e.admin.ForcePayout(ctx, caller, b.ID, 0, "", "why")
		_, checks["hold"] = e.admin.HoldPayout(ctx, caller, b.ID, "why")
		_, checks["resolve"] = e.admin.ResolveHeldPayout(ctx, caller, b.ID, enums.HeldResolutionRelease, "why")
		_, checks["rate"] = e.admin.UpdateCommissionRate(ctx, caller, enums.ServiceConsultation, decimal.RequireFromString("0.2"), "why")
		_, checks["close"] = e.admin.CloseBooking(ctx, caller, b.ID, "why")
		for name, err := range checks {
			if !pkgerrors.IsCode(err, pkgerrors.CodeNoAuthority) {
				t.Fatalf("%s as %s: expected insufficient authority, got %v", name, caller.Role, err)
			}
		}
	}
	if n := len(e.store.Ledger()); n != 1 {
		t.Fatalf("expected only the capture entry, got %d entries", n)
	}
}

func TestEveryOperationRequiresReason(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.paidBooking(t)
	_, err := e.admin.ForcePayout(ctx, e.identity, b.ID, 0, "", "   ")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation, got %v", err)
	}
	_, err = e.admin.UpdateCommissionRate(ctx, e.identity, enums.ServiceConsultation, decimal.RequireFromString("0.2"), "")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation, got %v", err)
	}
}

func TestApproveRefundResolvesAndApplies(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.paidBooking(t)
	req, err := e.payments.RequestRefund(ctx, b.ID, payments.RefundInput{AmountCents: 10000, Reason: enums.RefundReasonProfessionalNoShow}, e.customer)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	b, err = e.admin.ApproveRefund(ctx, e.identity, b.ID, req.ID, "professional did not attend", true)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	payment := b.CurrentPayment()
	if payment.Status != enums.PaymentStatusPartiallyRefunded || payment.RefundedCents != 10000 {
		t.Fatalf("unexpected payment %+v", payment)
	}
	resolved := b.RefundRequest(req.ID)
	if resolved.ResolvedBy == nil || *resolved.ResolvedBy != e.identity.ID || !resolved.AdminOverride || resolved.AppliedAt == nil {
		t.Fatalf("unexpected resolution %+v", resolved)
	}
	audits := e.ledgerBy(enums.LedgerEventRefundResolved)
	if len(audits) != 1 || audits[0].ActorID != e.identity.ID || audits[0].Reason == nil || *audits[0].Reason != "professional did not attend" {
		t.Fatalf("unexpected audit %+v", audits)
	}
}

func TestForcePayoutAuditsAndRespectsTerminalRules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.paidBooking(t)

	payout, err := e.admin.ForcePayout(ctx, e.identity, b.ID, 0, "", "deliverables lost in upload")
	if err != nil {
		t.Fatalf("force: %v", err)
	}
	if payout.Status != enums.PayoutStatusPaid || payout.AmountCents != 25500 {
		t.Fatalf("unexpected payout %+v", payout)
	}
	forced := e.ledgerBy(enums.LedgerEventPayoutForced)
	if len(forced) != 1 || forced[0].ActorID != e.identity.ID || forced[0].Reason == nil || *forced[0].Reason != "deliverables lost in upload" {
		t.Fatalf("unexpected audit %+v", forced)
	}

	_, err = e.admin.HoldPayout(ctx, e.identity, b.ID, "too late")
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("expected paid payout to refuse hold, got %v", err)
	}
}

func TestForcePayoutOnRefundedPaymentFails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.paidBooking(t)
	req, err := e.payments.RequestRefund(ctx, b.ID, payments.RefundInput{AmountCents: 30000, Reason: enums.RefundReasonCustomerCancelled}, e.customer)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := e.admin.ApproveRefund(ctx, e.identity, b.ID, req.ID, "full refund", false); err != nil {
		t.Fatalf("approve: %v", err)
	}
	_, err = e.admin.ForcePayout(ctx, e.identity, b.ID, 0, "", "pay anyway")
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestHoldThenResolve(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.paidBooking(t)
	e.deliver(t, b.ID)
	if _, err := e.payouts.CreatePayout(ctx, b.ID, "", types.SystemActor); err != nil {
		t.Fatalf("create payout: %v", err)
	}

	held, err := e.admin.HoldPayout(ctx, e.identity, b.ID, "customer complaint")
	if err != nil {
		t.Fatalf("hold: %v", err)
	}
	if held.Status != enums.PayoutStatusHeld {
		t.Fatalf("expected held, got %s", held.Status)
	}
	_, err = e.admin.ResolveHeldPayout(ctx, e.identity, b.ID, "absorb", "bad input")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation for unknown resolution, got %v", err)
	}
	released, err := e.admin.ResolveHeldPayout(ctx, e.identity, b.ID, enums.HeldResolutionRelease, "complaint withdrawn")
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released.Status != enums.PayoutStatusScheduled {
		t.Fatalf("expected scheduled, got %s", released.Status)
	}

	if _, err := e.admin.HoldPayout(ctx, e.identity, b.ID, "second complaint"); err != nil {
		t.Fatalf("hold again: %v", err)
	}
	cancelled, err := e.admin.ResolveHeldPayout(ctx, e.identity, b.ID, enums.HeldResolutionClawback, "complaint upheld")
	if err != nil {
		t.Fatalf("clawback: %v", err)
	}
	if cancelled.Status != enums.PayoutStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	closed, err := e.admin.CloseBooking(ctx, e.identity, b.ID, "settled")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Status != enums.BookingStatusClosed {
		t.Fatalf("expected closed, got %s", closed.Status)
	}
	if len(e.ledgerBy(enums.LedgerEventBookingClosed)) != 1 {
		t.Fatalf("expected booking_closed audit")
	}
}

func TestHoldBeforePayoutIsScheduled(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.paidBooking(t)
	e.deliver(t, b.ID)
	if got, _ := e.payouts.CheckEligibility(ctx, b.ID); !got.Eligible {
		t.Fatalf("expected eligible booking, got %+v", got)
	}

	held, err := e.admin.HoldPayout(ctx, e.identity, b.ID, "dispute opened")
	if err != nil {
		t.Fatalf("hold: %v", err)
	}
	if held.Status != enums.PayoutStatusHeld || held.AmountCents != 25500 || held.HoldReason == nil {
		t.Fatalf("unexpected held payout %+v", held)
	}
	if len(e.ledgerBy(enums.LedgerEventPayoutHeld)) != 1 {
		t.Fatalf("expected payout_held audit")
	}

	ids, err := e.bookings.ListPayoutCandidates(ctx, 10, 5)
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("held booking must not be picked up by the worker, got %v", ids)
	}
	again, err := e.payouts.CreatePayout(ctx, b.ID, "", types.SystemActor)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if again.ID != held.ID || again.Status != enums.PayoutStatusHeld {
		t.Fatalf("expected the held payout back, got %+v", again)
	}
	if _, err := e.payouts.ExecutePayout(ctx, b.ID, types.SystemActor); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("expected held payout to refuse execution, got %v", err)
	}

	released, err := e.admin.ResolveHeldPayout(ctx, e.identity, b.ID, enums.HeldResolutionRelease, "dispute closed")
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released.Status != enums.PayoutStatusScheduled || released.AmountCents != 25500 {
		t.Fatalf("unexpected released payout %+v", released)
	}
}

func TestHoldBeforeDeliveryWaitsForWork(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.paidBooking(t)

	if _, err := e.admin.HoldPayout(ctx, e.identity, b.ID, "quality concern"); err != nil {
		t.Fatalf("hold: %v", err)
	}
	_, err := e.admin.ResolveHeldPayout(ctx, e.identity, b.ID, enums.HeldResolutionRelease, "looks fine")
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotEligible) {
		t.Fatalf("expected not eligible before delivery, got %v", err)
	}

	e.deliver(t, b.ID)
	released, err := e.admin.ResolveHeldPayout(ctx, e.identity, b.ID, enums.HeldResolutionRelease, "delivered")
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released.Status != enums.PayoutStatusScheduled {
		t.Fatalf("expected scheduled, got %s", released.Status)
	}
}

func TestHoldWithoutPaymentFails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b, err := e.bookings.Create(ctx, e.customer, bookings.CreateInput{
		CustomerID:     e.customer.ID,
		ProfessionalID: e.professional.ID,
		ServiceType:    enums.ServiceConsultation,
		Attributes:     pricing.Attributes{BasePriceCents: 30000},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.admin.HoldPayout(ctx, e.identity, b.ID, "early"); !pkgerrors.IsCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("expected invalid state without a payment, got %v", err)
	}
}

func TestCloseBookingRequiresSettledMoney(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.paidBooking(t)
	e.deliver(t, b.ID)
	_, err := e.admin.CloseBooking(ctx, e.identity, b.ID, "tidy up")
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidState) {
		t.Fatalf("expected invalid state with unpaid payout, got %v", err)
	}
}

func TestUpdateCommissionRateVersionsAndAudits(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	cfg, err := e.admin.UpdateCommissionRate(ctx, e.identity, enums.ServiceConsultation, decimal.RequireFromString("0.20"), "market adjustment")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if cfg.Version != 1 || !cfg.Rate.Equal(decimal.RequireFromString("0.20")) || cfg.ModifiedBy != e.identity.ID {
		t.Fatalf("unexpected config %+v", cfg)
	}
	_, err = e.admin.UpdateCommissionRate(ctx, e.identity, enums.ServiceConsultation, decimal.RequireFromString("1.0"), "typo")
	if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidRate) {
		t.Fatalf("expected invalid rate, got %v", err)
	}
	audits := e.commissionDB.Audits()
	if len(audits) != 1 || audits[0].Type != enums.LedgerEventCommissionUpdated || audits[0].ActorID != e.identity.ID {
		t.Fatalf("unexpected audits %+v", audits)
	}

	split, err := e.commission.Split(ctx, 30000, enums.ServiceConsultation)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if split.CommissionCents != 6000 || split.Version != 1 {
		t.Fatalf("expected new rate to apply, got %+v", split)
	}
}
