package payouts

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fireguard/booking-payments/internal/bookings"
	"github.com/fireguard/booking-payments/internal/gateway"
	"github.com/fireguard/booking-payments/internal/ledger"
	"github.com/fireguard/booking-payments/pkg/db/models"
	"github.com/fireguard/booking-payments/pkg/enums"
	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
	"github.com/fireguard/booking-payments/pkg/outbox"
	"github.com/fireguard/booking-payments/pkg/outbox/payloads"
	"github.com/fireguard/booking-payments/pkg/types"
)

// Hold freezes a payout that has not been paid. Holding an already held
// payout is a no-op. A booking without a payout row gets a held one, so the
// payout worker cannot schedule it until an admin resolves the hold.
func Hold(b *models.Booking, actor types.Actor, reason string, uow *bookings.UnitOfWork) error {
	p := b.Payout
	if p == nil {
		return holdBeforeScheduling(b, actor, reason, uow)
	}
	switch p.Status {
	case enums.PayoutStatusHeld:
		return nil
	case enums.PayoutStatusScheduled, enums.PayoutStatusFailed:
	default:
		return pkgerrors.InvalidState("payout holdable", string(p.Status), string(enums.PayoutStatusScheduled), string(enums.PayoutStatusFailed))
	}
	reason = strings.TrimSpace(reason)
	from := p.Status
	p.Status = enums.PayoutStatusHeld
	p.HoldReason = &reason
	if err := uow.Record(ledger.RecordLedgerEventInput{
		BookingID:   &b.ID,
		Actor:       actor,
		Type:        enums.LedgerEventPayoutHeld,
		AmountCents: p.AmountCents,
		Reason:      reason,
	}); err != nil {
		return err
	}
	emitStatus(b, actor, from, uow)
	return nil
}

func holdBeforeScheduling(b *models.Booking, actor types.Actor, reason string, uow *bookings.UnitOfWork) error {
	if b.Termination != enums.TerminationNone {
		return pkgerrors.InvalidState("booking active", string(b.Status))
	}
	payment := b.CurrentPayment()
	if payment == nil {
		return pkgerrors.InvalidState("payment exists", "none")
	}
	from := Evaluate(b).Status
	reason = strings.TrimSpace(reason)
	b.Payout = &models.Payout{
		ID:             uuid.New(),
		BookingID:      b.ID,
		Status:         enums.PayoutStatusHeld,
		AmountCents:    PayableEarningsCents(payment),
		AccountRef:     DefaultAccountRef(b.ProfessionalID),
		IdempotencyKey: gateway.PayoutKey(b.ID),
		HoldReason:     &reason,
		ScheduledAt:    time.Now().UTC(),
	}
	if err := uow.Record(ledger.RecordLedgerEventInput{
		BookingID:   &b.ID,
		Actor:       actor,
		Type:        enums.LedgerEventPayoutHeld,
		AmountCents: b.Payout.AmountCents,
		Reason:      reason,
	}); err != nil {
		return err
	}
	emitStatus(b, actor, from, uow)
	return nil
}

// Release returns a held payout to scheduled, capped at what is still
// payable after refunds. A hold placed before the work was delivered only
// releases once the booking would have been eligible on its own.
func Release(b *models.Booking, actor types.Actor, reason string, uow *bookings.UnitOfWork) error {
	p := b.Payout
	if p == nil || p.Status != enums.PayoutStatusHeld {
		return pkgerrors.InvalidState("payout held", payoutState(p), string(enums.PayoutStatusHeld))
	}
	limit := MaxPayableCents(b.CurrentPayment())
	if limit <= 0 {
		return pkgerrors.InvalidState("payable balance remains", "0")
	}
	if reasons := pendingConditions(b); len(reasons) > 0 {
		return pkgerrors.New(pkgerrors.CodeNotEligible, "booking is not ready for payout").
			WithDetails(map[string]any{"reasons": reasons})
	}
	if p.AmountCents > limit {
		p.AmountCents = limit
	}
	p.Status = enums.PayoutStatusScheduled
	p.HoldReason = nil
	if err := uow.Record(ledger.RecordLedgerEventInput{
		BookingID:   &b.ID,
		Actor:       actor,
		Type:        enums.LedgerEventPayoutReleased,
		AmountCents: p.AmountCents,
		Reason:      reason,
	}); err != nil {
		return err
	}
	emitStatus(b, actor, enums.PayoutStatusHeld, uow)
	return nil
}

// Clawback cancels a held payout so nothing is disbursed.
func Clawback(b *models.Booking, actor types.Actor, reason string, uow *bookings.UnitOfWork) error {
	p := b.Payout
	if p == nil || p.Status != enums.PayoutStatusHeld {
		return pkgerrors.InvalidState("payout held", payoutState(p), string(enums.PayoutStatusHeld))
	}
	p.Status = enums.PayoutStatusCancelled
	if err := uow.Record(ledger.RecordLedgerEventInput{
		BookingID:   &b.ID,
		Actor:       actor,
		Type:        enums.LedgerEventPayoutClawedBack,
		AmountCents: p.AmountCents,
		Reason:      reason,
	}); err != nil {
		return err
	}
	emitStatus(b, actor, enums.PayoutStatusHeld, uow)
	return nil
}

// ApplyRefundCascade reacts to a refund: unpaid payouts are held, a paid
// payout is flagged for clawback and stays paid.
func ApplyRefundCascade(b *models.Booking, actor types.Actor, refundCents int64, uow *bookings.UnitOfWork) error {
	p := b.Payout
	if p == nil {
		return nil
	}
	switch p.Status {
	case enums.PayoutStatusScheduled, enums.PayoutStatusFailed:
		return Hold(b, actor, "refund applied", uow)
	case enums.PayoutStatusPaid:
		p.ClawbackRequired = true
		return uow.Record(ledger.RecordLedgerEventInput{
			BookingID:   &b.ID,
			Actor:       actor,
			Type:        enums.LedgerEventClawbackRequired,
			AmountCents: refundCents,
			Reason:      "refund applied after payout",
		})
	}
	return nil
}

func emitStatus(b *models.Booking, actor types.Actor, from enums.PayoutStatus, uow *bookings.UnitOfWork) {
	uow.Emit(outbox.DomainEvent{
		EventType:     enums.EventPayoutStatusChanged,
		AggregateType: enums.AggregateBooking,
		AggregateID:   b.ID,
		Actor:         bookings.ActorRef(actor),
		Data: payloads.PayoutStatusChangedEvent{
			BookingID:   b.ID,
			PayoutID:    b.Payout.ID,
			From:        from,
			To:          b.Payout.Status,
			AmountCents: b.Payout.AmountCents,
			Forced:      b.Payout.Forced,
		},
	})
}

func payoutState(p *models.Payout) string {
	if p == nil {
		return "none"
	}
	return string(p.Status)
}

// pendingConditions lists eligibility failures other than the payout row
// itself existing.
func pendingConditions(b *models.Booking) []Reason {
	var out []Reason
	for _, r := range Evaluate(b).Reasons {
		if r.Code != ReasonPayoutExists {
			out = append(out, r)
		}
	}
	return out
}
