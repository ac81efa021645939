package payouts

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/fireguard/booking-payments/internal/bookings"
	"github.com/fireguard/booking-payments/internal/gateway"
	"github.com/fireguard/booking-payments/internal/ledger"
	"github.com/fireguard/booking-payments/pkg/db/models"
	"github.com/fireguard/booking-payments/pkg/enums"
	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
	"github.com/fireguard/booking-payments/pkg/logger"
	"github.com/fireguard/booking-payments/pkg/metrics"
	"github.com/fireguard/booking-payments/pkg/types"
)

const operationPayout = "payout"

// Observer receives disbursement and payout status signals.
type Observer interface {
	GatewayCall(operation, outcome string)
	PayoutStatus(status enums.PayoutStatus)
}

// DefaultAccountRef is the disbursement account used when the caller does
// not provide one.
func DefaultAccountRef(professionalID uuid.UUID) string {
	return "professional:" + professionalID.String()
}

type Service struct {
	bookings     *bookings.Service
	disbursement gateway.DisbursementClient
	logg         *logger.Logger
	observer     Observer
}

func NewService(bookingSvc *bookings.Service, disbursement gateway.DisbursementClient, logg *logger.Logger, observer Observer) (*Service, error) {
	if bookingSvc == nil {
		return nil, fmt.Errorf("booking service required")
	}
	if disbursement == nil {
		return nil, fmt.Errorf("disbursement client required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{bookings: bookingSvc, disbursement: disbursement, logg: logg, observer: observer}, nil
}

func (s *Service) CheckEligibility(ctx context.Context, bookingID uuid.UUID) (Eligibility, error) {
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return Eligibility{}, err
	}
	return Evaluate(b), nil
}

// CreatePayout schedules the professional's frozen earnings. Calling it again
// for a booking that already has a payout returns that payout.
func (s *Service) CreatePayout(ctx context.Context, bookingID uuid.UUID, accountRef string, actor types.Actor) (*models.Payout, error) {
	accountRef = strings.TrimSpace(accountRef)
	current, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if current.Payout != nil && (accountRef == "" || current.Payout.AccountRef == accountRef) {
		return current.Payout, nil
	}
	var created *models.Payout
	_, err = s.bookings.Mutate(ctx, bookingID, actor, func(ctx context.Context, b *models.Booking, uow *bookings.UnitOfWork) error {
		if b.Payout != nil {
			if accountRef != "" && b.Payout.AccountRef != accountRef {
				return pkgerrors.InvalidState("single payout per booking", string(b.Payout.Status))
			}
			created = b.Payout
			return nil
		}
		eligibility := Evaluate(b)
		if !eligibility.Eligible {
			return pkgerrors.New(pkgerrors.CodeNotEligible, "booking is not eligible for payout").
				WithDetails(map[string]any{"reasons": eligibility.Reasons})
		}
		if accountRef == "" {
			accountRef = DefaultAccountRef(b.ProfessionalID)
		}
		b.Payout = &models.Payout{
			ID:             uuid.New(),
			BookingID:      b.ID,
			Status:         enums.PayoutStatusScheduled,
			AmountCents:    eligibility.AmountCents,
			AccountRef:     accountRef,
			IdempotencyKey: gateway.PayoutKey(b.ID),
			ScheduledAt:    s.bookings.Now(),
		}
		if err := uow.Record(ledger.RecordLedgerEventInput{
			BookingID:   &b.ID,
			Actor:       actor,
			Type:        enums.LedgerEventPayoutScheduled,
			AmountCents: b.Payout.AmountCents,
		}); err != nil {
			return err
		}
		emitStatus(b, actor, enums.PayoutStatusEligible, uow)
		created = b.Payout
		return nil
	})
	if err != nil {
		return nil, err
	}
	if created.Status == enums.PayoutStatusScheduled && s.observer != nil {
		s.observer.PayoutStatus(created.Status)
	}
	return created, nil
}

// ExecutePayout disburses a scheduled or failed payout. A paid payout is
// returned unchanged. Gateway errors are recorded on the payout before being
// returned.
func (s *Service) ExecutePayout(ctx context.Context, bookingID uuid.UUID, actor types.Actor) (*models.Payout, error) {
	current, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if current.Payout != nil && current.Payout.Status == enums.PayoutStatusPaid {
		return current.Payout, nil
	}
	b, err := s.bookings.Mutate(ctx, bookingID, actor, func(ctx context.Context, b *models.Booking, uow *bookings.UnitOfWork) error {
		p := b.Payout
		if p == nil {
			return pkgerrors.New(pkgerrors.CodeNotEligible, "booking has no payout").
				WithDetails(map[string]any{"reasons": Evaluate(b).Reasons})
		}
		if p.Status == enums.PayoutStatusPaid {
			return nil
		}
		if !p.Status.Executable() {
			return pkgerrors.InvalidState("payout executable", string(p.Status), string(enums.PayoutStatusScheduled), string(enums.PayoutStatusFailed))
		}
		if limit := MaxPayableCents(b.CurrentPayment()); p.AmountCents > limit {
			return pkgerrors.InvalidState("payout within payable balance", fmt.Sprintf("%d>%d", p.AmountCents, limit))
		}
		return s.disburse(ctx, b, actor, uow)
	})
	return s.payoutResult(b, err)
}

// ForcePayout disburses without waiting for deliverables. The amount is
// capped at payment - commission - refunded; zero means the full cap.
func (s *Service) ForcePayout(ctx context.Context, bookingID uuid.UUID, actor types.Actor, amountCents int64, accountRef, reason string) (*models.Payout, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeNoAuthority, "admin identity required to force payouts")
	}
	if amountCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	b, err := s.bookings.Mutate(ctx, bookingID, actor, func(ctx context.Context, b *models.Booking, uow *bookings.UnitOfWork) error {
		payment := b.CurrentPayment()
		if payment == nil || !payment.Status.Refundable() {
			current := "none"
			if payment != nil {
				current = string(payment.Status)
			}
			return pkgerrors.InvalidState("payment settled and not fully refunded", current,
				string(enums.PaymentStatusSucceeded), string(enums.PaymentStatusPartiallyRefunded))
		}
		if b.Termination != enums.TerminationNone {
			return pkgerrors.InvalidState("booking active", string(b.Status))
		}
		limit := MaxPayableCents(payment)
		amount := amountCents
		if amount == 0 {
			amount = limit
		}
		if amount > limit || amount <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "forced payout exceeds payable balance").
				WithDetails(map[string]int64{"requested": amount, "payable": limit})
		}

		from := enums.PayoutStatusEligible
		if b.Payout == nil {
			if strings.TrimSpace(accountRef) == "" {
				accountRef = DefaultAccountRef(b.ProfessionalID)
			}
			b.Payout = &models.Payout{
				ID:             uuid.New(),
				BookingID:      b.ID,
				AccountRef:     strings.TrimSpace(accountRef),
				IdempotencyKey: gateway.PayoutKey(b.ID),
				ScheduledAt:    s.bookings.Now(),
			}
		} else {
			from = b.Payout.Status
			if b.Payout.Status.IsTerminal() {
				return pkgerrors.InvalidState("payout not final", string(b.Payout.Status),
					string(enums.PayoutStatusScheduled), string(enums.PayoutStatusFailed), string(enums.PayoutStatusHeld))
			}
		}
		p := b.Payout
		p.Status = enums.PayoutStatusScheduled
		p.AmountCents = amount
		p.Forced = true
		p.ForcedBy = &actor.ID
		p.HoldReason = nil
		trimmed := strings.TrimSpace(reason)
		p.ForceReason = &trimmed

		if err := uow.Record(ledger.RecordLedgerEventInput{
			BookingID:   &b.ID,
			Actor:       actor,
			Type:        enums.LedgerEventPayoutForced,
			AmountCents: amount,
			Reason:      trimmed,
			Metadata:    map[string]any{"previous_status": from, "payable_cents": limit},
		}); err != nil {
			return err
		}
		emitStatus(b, actor, from, uow)
		return s.disburse(ctx, b, actor, uow)
	})
	return s.payoutResult(b, err)
}

// payoutResult keeps the committed payout visible when a disbursement error
// is returned after commit.
func (s *Service) payoutResult(b *models.Booking, err error) (*models.Payout, error) {
	if b == nil || b.Payout == nil {
		return nil, err
	}
	if s.observer != nil {
		s.observer.PayoutStatus(b.Payout.Status)
	}
	return b.Payout, err
}

func (s *Service) disburse(ctx context.Context, b *models.Booking, actor types.Actor, uow *bookings.UnitOfWork) error {
	p := b.Payout
	from := p.Status
	p.Attempts++
	res, err := s.disbursement.Payout(ctx, gateway.DisbursementRequest{
		AccountRef:     p.AccountRef,
		AmountCents:    p.AmountCents,
		IdempotencyKey: p.IdempotencyKey,
	})
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"booking_id": b.ID.String(),
		"payout_id":  p.ID.String(),
		"attempt":    p.Attempts,
	})

	if err != nil {
		s.observe(metrics.OutcomeError)
		if recErr := s.markFailed(b, actor, err.Error(), uow); recErr != nil {
			return recErr
		}
		emitStatus(b, actor, from, uow)
		s.logg.Error(logCtx, "payout disbursement failed", err)
		return bookings.CommitThenFail(pkgerrors.Wrap(pkgerrors.CodeGateway, err, "disbursement failed"))
	}
	if res.Status != gateway.DisbursementPaid {
		s.observe(metrics.OutcomeDeclined)
		reason := res.FailureReason
		if reason == "" {
			reason = "disbursement declined"
		}
		if err := s.markFailed(b, actor, reason, uow); err != nil {
			return err
		}
		emitStatus(b, actor, from, uow)
		s.logg.Warn(logCtx, "payout declined: "+reason)
		return nil
	}

	s.observe(metrics.OutcomeOK)
	now := s.bookings.Now()
	p.Status = enums.PayoutStatusPaid
	p.ExecutedAt = &now
	p.LastError = nil
	if res.ExternalRef != "" {
		ref := res.ExternalRef
		p.ExternalRef = &ref
	}
	if err := uow.Record(ledger.RecordLedgerEventInput{
		BookingID:   &b.ID,
		Actor:       actor,
		Type:        enums.LedgerEventPayoutPaid,
		AmountCents: p.AmountCents,
		Metadata:    map[string]any{"external_ref": res.ExternalRef, "attempt": p.Attempts},
	}); err != nil {
		return err
	}
	emitStatus(b, actor, from, uow)
	s.logg.Info(logCtx, "payout paid")
	return nil
}

func (s *Service) markFailed(b *models.Booking, actor types.Actor, reason string, uow *bookings.UnitOfWork) error {
	p := b.Payout
	p.Status = enums.PayoutStatusFailed
	p.LastError = &reason
	return uow.Record(ledger.RecordLedgerEventInput{
		BookingID:   &b.ID,
		Actor:       actor,
		Type:        enums.LedgerEventPayoutFailed,
		AmountCents: p.AmountCents,
		Reason:      reason,
		Metadata:    map[string]any{"attempt": p.Attempts},
	})
}

func (s *Service) observe(outcome string) {
	if s.observer != nil {
		s.observer.GatewayCall(operationPayout, outcome)
	}
}
