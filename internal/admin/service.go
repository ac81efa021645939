package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fireguard/booking-payments/internal/bookings"
	"github.com/fireguard/booking-payments/internal/payments"
	"github.com/fireguard/booking-payments/internal/payouts"
	"github.com/fireguard/booking-payments/pkg/db/models"
	"github.com/fireguard/booking-payments/pkg/enums"
	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
	"github.com/fireguard/booking-payments/pkg/logger"
	"github.com/fireguard/booking-payments/pkg/types"
)

// Identity is the authenticated caller behind an admin action.
type Identity = types.Actor

type refundService interface {
	ResolveRefund(ctx context.Context, bookingID, requestID uuid.UUID, input payments.ResolveInput, approver types.Actor) (*models.RefundRequest, error)
	ApplyRefund(ctx context.Context, bookingID, requestID uuid.UUID, actor types.Actor) (*models.Booking, error)
}

type payoutService interface {
	ForcePayout(ctx context.Context, bookingID uuid.UUID, actor types.Actor, amountCents int64, accountRef, reason string) (*models.Payout, error)
}

type rateService interface {
	UpdateRate(ctx context.Context, serviceType enums.ServiceType, rate decimal.Decimal, actor types.Actor, reason string) (models.CommissionConfig, error)
}

// Service exposes the privileged overrides. Every call requires an admin
// identity and a reason, and leaves a ledger entry through the service it
// delegates to.
type Service struct {
	bookings   *bookings.Service
	refunds    refundService
	payouts    payoutService
	commission rateService
	logg       *logger.Logger
}

func NewService(bookingSvc *bookings.Service, refunds refundService, payoutSvc payoutService, commission rateService, logg *logger.Logger) (*Service, error) {
	if bookingSvc == nil {
		return nil, fmt.Errorf("booking service required")
	}
	if refunds == nil {
		return nil, fmt.Errorf("refund service required")
	}
	if payoutSvc == nil {
		return nil, fmt.Errorf("payout service required")
	}
	if commission == nil {
		return nil, fmt.Errorf("commission engine required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{bookings: bookingSvc, refunds: refunds, payouts: payoutSvc, commission: commission, logg: logg}, nil
}

// ApproveRefund approves a pending request and applies it immediately.
// Override marks approvals that went against the normal refund policy.
func (s *Service) ApproveRefund(ctx context.Context, admin Identity, bookingID, requestID uuid.UUID, reason string, override bool) (*models.Booking, error) {
	reason, err := authorize(admin, reason)
	if err != nil {
		return nil, err
	}
	if _, err := s.refunds.ResolveRefund(ctx, bookingID, requestID, payments.ResolveInput{
		Approve:  true,
		Note:     reason,
		Override: override,
	}, admin); err != nil {
		return nil, err
	}
	b, err := s.refunds.ApplyRefund(ctx, bookingID, requestID, admin)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, admin, bookingID, "refund approved")
	return b, nil
}

// DenyRefund resolves a pending request as denied.
func (s *Service) DenyRefund(ctx context.Context, admin Identity, bookingID, requestID uuid.UUID, reason string) (*models.RefundRequest, error) {
	reason, err := authorize(admin, reason)
	if err != nil {
		return nil, err
	}
	req, err := s.refunds.ResolveRefund(ctx, bookingID, requestID, payments.ResolveInput{Approve: false, Note: reason}, admin)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, admin, bookingID, "refund denied")
	return req, nil
}

func (s *Service) ForcePayout(ctx context.Context, admin Identity, bookingID uuid.UUID, amountCents int64, accountRef, reason string) (*models.Payout, error) {
	reason, err := authorize(admin, reason)
	if err != nil {
		return nil, err
	}
	payout, err := s.payouts.ForcePayout(ctx, bookingID, admin, amountCents, accountRef, reason)
	if err != nil {
		return payout, err
	}
	s.audit(ctx, admin, bookingID, "payout forced")
	return payout, nil
}

// HoldPayout freezes a payout until it is resolved. A booking that has no
// payout yet gets a held one. Holding a held payout is a no-op.
func (s *Service) HoldPayout(ctx context.Context, admin Identity, bookingID uuid.UUID, reason string) (*models.Payout, error) {
	reason, err := authorize(admin, reason)
	if err != nil {
		return nil, err
	}
	b, err := s.bookings.Mutate(ctx, bookingID, admin, func(ctx context.Context, b *models.Booking, uow *bookings.UnitOfWork) error {
		return payouts.Hold(b, admin, reason, uow)
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, admin, bookingID, "payout held")
	return b.Payout, nil
}

// ResolveHeldPayout either releases a held payout back to scheduled or
// claws it back.
func (s *Service) ResolveHeldPayout(ctx context.Context, admin Identity, bookingID uuid.UUID, resolution enums.HeldResolution, reason string) (*models.Payout, error) {
	reason, err := authorize(admin, reason)
	if err != nil {
		return nil, err
	}
	var apply func(*models.Booking, types.Actor, string, *bookings.UnitOfWork) error
	switch resolution {
	case enums.HeldResolutionRelease:
		apply = payouts.Release
	case enums.HeldResolutionClawback:
		apply = payouts.Clawback
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown resolution %q", resolution))
	}
	b, err := s.bookings.Mutate(ctx, bookingID, admin, func(ctx context.Context, b *models.Booking, uow *bookings.UnitOfWork) error {
		return apply(b, admin, reason, uow)
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, admin, bookingID, "held payout resolved: "+string(resolution))
	return b.Payout, nil
}

func (s *Service) UpdateCommissionRate(ctx context.Context, admin Identity, serviceType enums.ServiceType, rate decimal.Decimal, reason string) (models.CommissionConfig, error) {
	reason, err := authorize(admin, reason)
	if err != nil {
		return models.CommissionConfig{}, err
	}
	return s.commission.UpdateRate(ctx, serviceType, rate, admin, reason)
}

func (s *Service) CloseBooking(ctx context.Context, admin Identity, bookingID uuid.UUID, reason string) (*models.Booking, error) {
	reason, err := authorize(admin, reason)
	if err != nil {
		return nil, err
	}
	b, err := s.bookings.Close(ctx, bookingID, admin, reason)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, admin, bookingID, "booking closed")
	return b, nil
}

func authorize(admin Identity, reason string) (string, error) {
	if !admin.IsAdmin() {
		return "", pkgerrors.New(pkgerrors.CodeNoAuthority, "admin identity required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "reason is required for admin actions")
	}
	return reason, nil
}

func (s *Service) audit(ctx context.Context, admin Identity, bookingID uuid.UUID, msg string) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"admin_id":   admin.ID.String(),
		"booking_id": bookingID.String(),
	})
	s.logg.Info(logCtx, msg)
}
