package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fireguard/booking-payments/internal/bookings"
	"github.com/fireguard/booking-payments/internal/commission"
	"github.com/fireguard/booking-payments/internal/gateway"
	"github.com/fireguard/booking-payments/internal/ledger"
	"github.com/fireguard/booking-payments/internal/payouts"
	"github.com/fireguard/booking-payments/pkg/db/models"
	"github.com/fireguard/booking-payments/pkg/enums"
	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
	"github.com/fireguard/booking-payments/pkg/logger"
	"github.com/fireguard/booking-payments/pkg/metrics"
	"github.com/fireguard/booking-payments/pkg/outbox"
	"github.com/fireguard/booking-payments/pkg/outbox/payloads"
	"github.com/fireguard/booking-payments/pkg/types"
)

const (
	defaultCurrency   = "GBP"
	operationCheckout = "checkout"
)

// Splitter freezes the commission split for a price.
type Splitter interface {
	Split(ctx context.Context, priceCents int64, serviceType enums.ServiceType) (commission.Split, error)
}

// GatewayObserver receives outbound gateway call outcomes.
type GatewayObserver interface {
	GatewayCall(operation, outcome string)
}

type Service struct {
	bookings   *bookings.Service
	commission Splitter
	gateway    gateway.Client
	logg       *logger.Logger
	observer   GatewayObserver
	currency   string
}

func NewService(bookingSvc *bookings.Service, splitter Splitter, client gateway.Client, logg *logger.Logger, observer GatewayObserver) (*Service, error) {
	if bookingSvc == nil {
		return nil, fmt.Errorf("booking service required")
	}
	if splitter == nil {
		return nil, fmt.Errorf("commission engine required")
	}
	if client == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		bookings:   bookingSvc,
		commission: splitter,
		gateway:    client,
		logg:       logg,
		observer:   observer,
		currency:   defaultCurrency,
	}, nil
}

// Checkout is the result of opening a checkout session.
type Checkout struct {
	BookingID   uuid.UUID           `json:"bookingId"`
	PaymentID   uuid.UUID           `json:"paymentId"`
	Attempt     int                 `json:"attempt"`
	SessionRef  string              `json:"sessionRef"`
	AmountCents int64               `json:"amountCents"`
	Split       commission.Split    `json:"split"`
	Status      enums.PaymentStatus `json:"status"`
}

// ValidatePaymentConditions reports why a booking cannot start checkout.
func ValidatePaymentConditions(b *models.Booking) error {
	if b.Termination != enums.TerminationNone {
		return pkgerrors.New(pkgerrors.CodeNotConfirm, fmt.Sprintf("booking is %s", b.Status)).
			WithDetails(pkgerrors.StateDetails{Invariant: "booking active", Current: string(b.Status)})
	}
	for _, p := range b.Payments {
		if p.Status.Settled() {
			return pkgerrors.New(pkgerrors.CodeAlreadyPaid, "booking already has a settled payment").
				WithDetails(pkgerrors.StateDetails{Invariant: "single settled payment", Current: string(p.Status)})
		}
	}
	if current := b.CurrentPayment(); current != nil && current.Status.InFlight() {
		return pkgerrors.InvalidState("no checkout in flight", string(current.Status), string(enums.PaymentStatusFailed))
	}
	if b.FinalPriceCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeNotConfirm, "booking has no payable amount")
	}
	return nil
}

// CreateCheckoutSession freezes the commission split and opens a gateway
// session. The payment stays pending until the gateway reports back.
func (s *Service) CreateCheckoutSession(ctx context.Context, bookingID uuid.UUID, actor types.Actor) (*Checkout, error) {
	var checkout *Checkout
	_, err := s.bookings.Mutate(ctx, bookingID, actor, func(ctx context.Context, b *models.Booking, uow *bookings.UnitOfWork) error {
		if actor.Role == enums.ActorRoleProfessional {
			return pkgerrors.New(pkgerrors.CodeForbidden, "professionals cannot pay for bookings")
		}
		if err := bookings.AuthorizeParticipant(b, actor); err != nil {
			return err
		}
		if err := ValidatePaymentConditions(b); err != nil {
			return err
		}
		split, err := s.commission.Split(ctx, b.FinalPriceCents, b.ServiceType)
		if err != nil {
			return err
		}

		attempt := len(b.Payments) + 1
		key := gateway.CheckoutKey(b.ID, attempt)
		sessionRef, err := s.gateway.CreateCheckoutSession(ctx, gateway.CheckoutRequest{
			AmountCents:    b.FinalPriceCents,
			Currency:       s.currency,
			BookingRef:     b.ID.String(),
			IdempotencyKey: key,
		})
		if err != nil {
			s.observe(metrics.OutcomeError)
			return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "create checkout session")
		}
		s.observe(metrics.OutcomeOK)

		payment := models.Payment{
			ID:                uuid.New(),
			BookingID:         b.ID,
			Attempt:           attempt,
			Status:            enums.PaymentStatusPending,
			AmountCents:       b.FinalPriceCents,
			CommissionCents:   split.CommissionCents,
			EarningsCents:     split.EarningsCents,
			CommissionRate:    split.Rate,
			CommissionVersion: split.Version,
			SessionRef:        &sessionRef,
			IdempotencyKey:    key,
		}
		b.Payments = append(b.Payments, payment)
		uow.Emit(outbox.DomainEvent{
			EventType:     enums.EventCheckoutStarted,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         bookings.ActorRef(actor),
			Data: payloads.CheckoutStartedEvent{
				BookingID:   b.ID,
				PaymentID:   payment.ID,
				Attempt:     attempt,
				AmountCents: payment.AmountCents,
				SessionRef:  sessionRef,
			},
		})
		checkout = &Checkout{
			BookingID:   b.ID,
			PaymentID:   payment.ID,
			Attempt:     attempt,
			SessionRef:  sessionRef,
			AmountCents: payment.AmountCents,
			Split:       split,
			Status:      payment.Status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return checkout, nil
}

// ApplyGatewayResult moves the payment identified by the outcome's session.
// Re-delivering the same outcome is a no-op.
func (s *Service) ApplyGatewayResult(ctx context.Context, bookingID uuid.UUID, outcome gateway.Outcome) (*models.Booking, error) {
	if !outcome.Result.IsValid() {
		return nil, invalidOutcome("unknown result " + string(outcome.Result))
	}
	return s.bookings.Mutate(ctx, bookingID, types.SystemActor, func(ctx context.Context, b *models.Booking, uow *bookings.UnitOfWork) error {
		payment := paymentBySession(b, outcome.SessionRef)
		if payment == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "session does not belong to this booking").
				WithDetails(map[string]string{"sessionRef": outcome.SessionRef})
		}
		if outcome.EventID != "" && payment.LastEventID != nil && *payment.LastEventID == outcome.EventID {
			return nil
		}

		target := outcome.Result.PaymentStatus()
		if payment.Status == target {
			return nil
		}
		if payment.Status.Settled() && target == enums.PaymentStatusSucceeded {
			return nil
		}
		if !resultAllowed(payment.Status, target) {
			return pkgerrors.InvalidState("gateway outcome consistent with payment", string(payment.Status), allowedTargets(payment.Status)...)
		}
		if target == enums.PaymentStatusSucceeded && outcome.AmountCents != 0 && outcome.AmountCents != payment.AmountCents {
			return pkgerrors.New(pkgerrors.CodeValidation, "captured amount does not match payment").
				WithDetails(map[string]int64{"expected": payment.AmountCents, "reported": outcome.AmountCents})
		}

		from := payment.Status
		payment.Status = target
		if outcome.EventID != "" {
			eventID := outcome.EventID
			payment.LastEventID = &eventID
		}
		switch target {
		case enums.PaymentStatusSucceeded:
			now := s.bookings.Now()
			payment.SucceededAt = &now
			if err := uow.Record(ledger.RecordLedgerEventInput{
				BookingID:   &b.ID,
				Actor:       types.SystemActor,
				Type:        enums.LedgerEventPaymentCaptured,
				AmountCents: payment.AmountCents,
				Metadata: map[string]any{
					"payment_id":         payment.ID,
					"commission_cents":   payment.CommissionCents,
					"earnings_cents":     payment.EarningsCents,
					"commission_rate":    payment.CommissionRate.String(),
					"commission_version": payment.CommissionVersion,
				},
			}); err != nil {
				return err
			}
		case enums.PaymentStatusFailed:
			reason := outcome.FailureReason
			if reason == "" {
				reason = "payment failed"
			}
			payment.FailureReason = &reason
			if err := uow.Record(ledger.RecordLedgerEventInput{
				BookingID:   &b.ID,
				Actor:       types.SystemActor,
				Type:        enums.LedgerEventPaymentFailed,
				AmountCents: payment.AmountCents,
				Reason:      reason,
			}); err != nil {
				return err
			}
		}
		s.emitPaymentStatus(b, payment, from, types.SystemActor, uow)
		return nil
	})
}

// RefundInput describes a refund request.
type RefundInput struct {
	AmountCents int64
	Reason      enums.RefundReason
	Note        string
}

// RequestRefund opens a pending refund request. The bound covers the
// captured amount minus what is refunded or already reserved by open
// requests.
func (s *Service) RequestRefund(ctx context.Context, bookingID uuid.UUID, input RefundInput, requester types.Actor) (*models.RefundRequest, error) {
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown refund reason %q", input.Reason))
	}
	var created *models.RefundRequest
	_, err := s.bookings.Mutate(ctx, bookingID, requester, func(ctx context.Context, b *models.Booking, uow *bookings.UnitOfWork) error {
		if err := bookings.AuthorizeParticipant(b, requester); err != nil {
			return err
		}
		payment := b.CurrentPayment()
		if payment == nil || !payment.Status.Refundable() {
			return pkgerrors.InvalidState("payment refundable", paymentState(payment),
				string(enums.PaymentStatusSucceeded), string(enums.PaymentStatusPartiallyRefunded))
		}
		available := RefundableBalance(b, payment)
		if input.AmountCents > available {
			return exceedsRefund(input.AmountCents, available)
		}

		request := models.RefundRequest{
			ID:            uuid.New(),
			BookingID:     b.ID,
			PaymentID:     payment.ID,
			AmountCents:   input.AmountCents,
			Reason:        input.Reason,
			RequestedBy:   requester.ID,
			RequesterRole: requester.Role,
			Approval:      enums.RefundApprovalPending,
			CreatedAt:     s.bookings.Now(),
		}
		if note := strings.TrimSpace(input.Note); note != "" {
			request.Note = &note
		}
		b.RefundRequests = append(b.RefundRequests, request)
		if err := uow.Record(ledger.RecordLedgerEventInput{
			BookingID:   &b.ID,
			Actor:       requester,
			Type:        enums.LedgerEventRefundRequested,
			AmountCents: input.AmountCents,
			Reason:      string(input.Reason),
			Metadata:    map[string]any{"refund_request_id": request.ID},
		}); err != nil {
			return err
		}
		s.emitRefund(b, request, enums.EventRefundRequested, requester, uow)
		created = &request
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ResolveInput is an admin decision on a refund request.
type ResolveInput struct {
	Approve  bool
	Note     string
	Override bool
}

// ResolveRefund approves or denies a pending request exactly once.
func (s *Service) ResolveRefund(ctx context.Context, bookingID, requestID uuid.UUID, input ResolveInput, approver types.Actor) (*models.RefundRequest, error) {
	if !approver.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeNoAuthority, "admin identity required to resolve refunds")
	}
	var resolved *models.RefundRequest
	_, err := s.bookings.Mutate(ctx, bookingID, approver, func(ctx context.Context, b *models.Booking, uow *bookings.UnitOfWork) error {
		request := b.RefundRequest(requestID)
		if request == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "refund request not found")
		}
		if request.Approval != enums.RefundApprovalPending {
			return pkgerrors.InvalidState("refund resolved once", string(request.Approval), string(enums.RefundApprovalPending))
		}
		now := s.bookings.Now()
		request.Approval = enums.RefundApprovalDenied
		if input.Approve {
			request.Approval = enums.RefundApprovalApproved
		}
		request.ResolvedBy = &approver.ID
		request.ResolvedAt = &now
		request.AdminOverride = input.Override
		note := strings.TrimSpace(input.Note)
		if note != "" {
			request.ResolutionNote = &note
		}
		if err := uow.Record(ledger.RecordLedgerEventInput{
			BookingID:   &b.ID,
			Actor:       approver,
			Type:        enums.LedgerEventRefundResolved,
			AmountCents: request.AmountCents,
			Reason:      note,
			Metadata: map[string]any{
				"refund_request_id": request.ID,
				"approval":          request.Approval,
				"override":          input.Override,
			},
		}); err != nil {
			return err
		}
		copied := *request
		resolved = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// ApplyRefund books an approved refund against the payment and cascades to
// the payout and booking status.
func (s *Service) ApplyRefund(ctx context.Context, bookingID, requestID uuid.UUID, actor types.Actor) (*models.Booking, error) {
	if actor.Role != enums.ActorRoleSystem && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeNoAuthority, "only admins or the system may apply refunds")
	}
	return s.bookings.Mutate(ctx, bookingID, actor, func(ctx context.Context, b *models.Booking, uow *bookings.UnitOfWork) error {
		request := b.RefundRequest(requestID)
		if request == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "refund request not found")
		}
		if request.Approval != enums.RefundApprovalApproved || request.AppliedAt != nil {
			current := string(request.Approval)
			if request.AppliedAt != nil {
				current = "applied"
			}
			return pkgerrors.InvalidState("refund approved and unapplied", current, string(enums.RefundApprovalApproved))
		}
		payment := paymentByID(b, request.PaymentID)
		if payment == nil || !payment.Status.Refundable() {
			return pkgerrors.InvalidState("payment refundable", paymentState(payment),
				string(enums.PaymentStatusSucceeded), string(enums.PaymentStatusPartiallyRefunded))
		}
		if request.AmountCents > payment.RefundableCents() {
			return exceedsRefund(request.AmountCents, payment.RefundableCents())
		}

		from := payment.Status
		payment.RefundedCents += request.AmountCents
		if payment.RefundedCents == payment.AmountCents {
			payment.Status = enums.PaymentStatusRefunded
		} else {
			payment.Status = enums.PaymentStatusPartiallyRefunded
		}
		now := s.bookings.Now()
		request.AppliedAt = &now

		if err := uow.Record(ledger.RecordLedgerEventInput{
			BookingID:   &b.ID,
			Actor:       actor,
			Type:        enums.LedgerEventRefundApplied,
			AmountCents: request.AmountCents,
			Reason:      string(request.Reason),
			Metadata: map[string]any{
				"refund_request_id": request.ID,
				"refunded_cents":    payment.RefundedCents,
			},
		}); err != nil {
			return err
		}
		if err := payouts.ApplyRefundCascade(b, actor, request.AmountCents, uow); err != nil {
			return err
		}
		s.emitPaymentStatus(b, payment, from, actor, uow)
		s.emitRefund(b, *request, enums.EventRefundApplied, actor, uow)
		return nil
	})
}

// RefundableBalance is captured minus refunded minus open requests.
func RefundableBalance(b *models.Booking, payment *models.Payment) int64 {
	reserved := int64(0)
	for i := range b.RefundRequests {
		r := &b.RefundRequests[i]
		if r.PaymentID == payment.ID && r.Outstanding() {
			reserved += r.AmountCents
		}
	}
	available := payment.RefundableCents() - reserved
	if available < 0 {
		return 0
	}
	return available
}

// CommissionShare reports the platform's share of a refund at the frozen
// rate, for reporting only.
func CommissionShare(payment *models.Payment, refundCents int64) int64 {
	if payment == nil {
		return 0
	}
	return decimal.NewFromInt(refundCents).Mul(payment.CommissionRate).Floor().IntPart()
}

func resultAllowed(from, to enums.PaymentStatus) bool {
	switch from {
	case enums.PaymentStatusPending:
		return to == enums.PaymentStatusAuthorized || to == enums.PaymentStatusSucceeded || to == enums.PaymentStatusFailed
	case enums.PaymentStatusAuthorized:
		return to == enums.PaymentStatusSucceeded || to == enums.PaymentStatusFailed
	}
	return false
}

func allowedTargets(from enums.PaymentStatus) []string {
	switch from {
	case enums.PaymentStatusPending:
		return []string{string(enums.PaymentStatusAuthorized), string(enums.PaymentStatusSucceeded), string(enums.PaymentStatusFailed)}
	case enums.PaymentStatusAuthorized:
		return []string{string(enums.PaymentStatusSucceeded), string(enums.PaymentStatusFailed)}
	}
	return nil
}

func paymentBySession(b *models.Booking, sessionRef string) *models.Payment {
	for i := range b.Payments {
		if b.Payments[i].SessionRef != nil && *b.Payments[i].SessionRef == sessionRef {
			return &b.Payments[i]
		}
	}
	return nil
}

func paymentByID(b *models.Booking, id uuid.UUID) *models.Payment {
	for i := range b.Payments {
		if b.Payments[i].ID == id {
			return &b.Payments[i]
		}
	}
	return nil
}

func paymentState(p *models.Payment) string {
	if p == nil {
		return "none"
	}
	return string(p.Status)
}

func exceedsRefund(requested, available int64) error {
	return pkgerrors.New(pkgerrors.CodeExceedsRefund, fmt.Sprintf("refund of %d exceeds refundable balance %d", requested, available)).
		WithDetails(map[string]int64{"requested": requested, "available": available})
}

func (s *Service) emitPaymentStatus(b *models.Booking, payment *models.Payment, from enums.PaymentStatus, actor types.Actor, uow *bookings.UnitOfWork) {
	uow.Emit(outbox.DomainEvent{
		EventType:     enums.EventPaymentStatusChanged,
		AggregateType: enums.AggregateBooking,
		AggregateID:   b.ID,
		Actor:         bookings.ActorRef(actor),
		Data: payloads.PaymentStatusChangedEvent{
			BookingID:     b.ID,
			PaymentID:     payment.ID,
			From:          from,
			To:            payment.Status,
			AmountCents:   payment.AmountCents,
			RefundedCents: payment.RefundedCents,
		},
	})
}

func (s *Service) emitRefund(b *models.Booking, request models.RefundRequest, eventType enums.OutboxEventType, actor types.Actor, uow *bookings.UnitOfWork) {
	uow.Emit(outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateBooking,
		AggregateID:   b.ID,
		Actor:         bookings.ActorRef(actor),
		Data: payloads.RefundEvent{
			BookingID:       b.ID,
			RefundRequestID: request.ID,
			AmountCents:     request.AmountCents,
			Reason:          request.Reason,
			Approval:        request.Approval,
		},
	})
}

func (s *Service) observe(outcome string) {
	if s.observer != nil {
		s.observer.GatewayCall(operationCheckout, outcome)
	}
}
