package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fireguard/booking-payments/internal/gateway"
	"github.com/fireguard/booking-payments/internal/ledger"
	"github.com/fireguard/booking-payments/internal/pricing"
	"github.com/fireguard/booking-payments/pkg/db/models"
	dbtypes "github.com/fireguard/booking-payments/pkg/db/types"
	"github.com/fireguard/booking-payments/pkg/enums"
	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
	"github.com/fireguard/booking-payments/pkg/logger"
	"github.com/fireguard/booking-payments/pkg/outbox"
	"github.com/fireguard/booking-payments/pkg/outbox/payloads"
	"github.com/fireguard/booking-payments/pkg/types"
)

// MutateFunc changes a loaded booking. It must not write b.Status.
type MutateFunc func(ctx context.Context, b *models.Booking, uow *UnitOfWork) error

// TransitionObserver is notified after a status change is committed.
type TransitionObserver interface {
	BookingTransition(from, to enums.BookingStatus)
}

type commitThenFail struct {
	err error
}

func (c *commitThenFail) Error() string { return c.err.Error() }
func (c *commitThenFail) Unwrap() error { return c.err }

// CommitThenFail lets a MutateFunc persist what it recorded (for example a
// failed gateway attempt) and still return err to the caller.
func CommitThenFail(err error) error {
	if err == nil {
		return nil
	}
	return &commitThenFail{err: err}
}

type Service struct {
	store    Store
	locker   Locker
	pricing  *pricing.Calculator
	logg     *logger.Logger
	observer TransitionObserver
	now      func() time.Time
}

func NewService(store Store, locker Locker, calc *pricing.Calculator, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("booking store required")
	}
	if locker == nil {
		locker = NewKeyedMutex()
	}
	if calc == nil {
		return nil, fmt.Errorf("pricing calculator required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		store:   store,
		locker:  locker,
		pricing: calc,
		logg:    logg,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithObserver attaches a transition observer such as metrics.
func (s *Service) WithObserver(observer TransitionObserver) *Service {
	s.observer = observer
	return s
}

// Now returns the service clock.
func (s *Service) Now() time.Time {
	return s.now()
}

// SetClock overrides the clock, used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

type CreateInput struct {
	CustomerID     uuid.UUID
	ProfessionalID uuid.UUID
	ServiceType    enums.ServiceType
	Attributes     pricing.Attributes
}

func (s *Service) Create(ctx context.Context, actor types.Actor, input CreateInput) (*models.Booking, error) {
	if !actor.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor is required")
	}
	if input.CustomerID == uuid.Nil || input.ProfessionalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer and professional are required")
	}
	if actor.Role == enums.ActorRoleCustomer && actor.ID != input.CustomerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "customers may only book for themselves")
	}
	price, err := s.pricing.ComputePrice(input.ServiceType, input.Attributes)
	if err != nil {
		return nil, err
	}

	b := &models.Booking{
		ID:                   uuid.New(),
		CustomerID:           input.CustomerID,
		ProfessionalID:       input.ProfessionalID,
		ServiceType:          input.ServiceType,
		BasePriceCents:       input.Attributes.BasePriceCents,
		FinalPriceCents:      price,
		Termination:          enums.TerminationNone,
		RequiredDeliverables: dbtypes.DeliverableTypes(input.ServiceType.RequiredDeliverables()),
		CreatedAt:            s.now(),
		UpdatedAt:            s.now(),
	}
	if input.ServiceType.IsAssessment() {
		b.PropertySize = input.Attributes.PropertySize
		b.RiskLevel = input.Attributes.RiskLevel
	}
	Refresh(b)

	uow := &UnitOfWork{}
	uow.Emit(outbox.DomainEvent{
		EventType:     enums.EventBookingCreated,
		AggregateType: enums.AggregateBooking,
		AggregateID:   b.ID,
		Actor:         ActorRef(actor),
		Data: payloads.BookingCreatedEvent{
			BookingID:       b.ID,
			CustomerID:      b.CustomerID,
			ProfessionalID:  b.ProfessionalID,
			ServiceType:     b.ServiceType,
			FinalPriceCents: b.FinalPriceCents,
		},
	})
	if err := s.store.Create(ctx, b, uow); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithBookingID(ctx, b.ID.String()), "booking created")
	return b, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return s.store.Get(ctx, id)
}

// Mutate runs fn under the booking lock, re-derives the status and commits
// the aggregate with everything fn recorded.
func (s *Service) Mutate(ctx context.Context, id uuid.UUID, actor types.Actor, fn MutateFunc) (*models.Booking, error) {
	if !actor.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor is required")
	}
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	expected := b.Version
	before := b.Status

	uow := &UnitOfWork{}
	var deferred *commitThenFail
	if fnErr := fn(ctx, b, uow); fnErr != nil {
		if !errors.As(fnErr, &deferred) {
			return nil, fnErr
		}
	}
	if b.Status != before {
		return nil, pkgerrors.InvalidState("booking status is derived", string(b.Status), string(before))
	}

	from, changed := Refresh(b)
	if changed {
		uow.Emit(outbox.DomainEvent{
			EventType:     enums.EventBookingStatusChanged,
			AggregateType: enums.AggregateBooking,
			AggregateID:   b.ID,
			Actor:         ActorRef(actor),
			Data: payloads.BookingStatusChangedEvent{
				BookingID: b.ID,
				From:      from,
				To:        b.Status,
			},
		})
	}
	b.UpdatedAt = s.now()
	if err := s.store.Commit(ctx, b, expected, uow); err != nil {
		return nil, err
	}

	if changed {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"booking_id": b.ID.String(),
			"from":       from,
			"to":         b.Status,
		})
		s.logg.Info(logCtx, "booking status changed")
		if s.observer != nil {
			s.observer.BookingTransition(from, b.Status)
		}
	}
	if deferred != nil {
		return b, deferred.err
	}
	return b, nil
}

// Cancel terminates a booking that has not completed.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor types.Actor, reason string) (*models.Booking, error) {
	reason = strings.TrimSpace(reason)
	return s.Mutate(ctx, id, actor, func(ctx context.Context, b *models.Booking, uow *UnitOfWork) error {
		if err := AuthorizeParticipant(b, actor); err != nil {
			return err
		}
		if !b.Status.Cancellable() {
			return pkgerrors.InvalidState("booking cancellable", string(b.Status),
				string(enums.BookingStatusCreated), string(enums.BookingStatusConfirmed), string(enums.BookingStatusInProgress))
		}
		if payment := b.CurrentPayment(); payment != nil && payment.Status.InFlight() {
			return pkgerrors.InvalidState("no checkout in flight", string(payment.Status), string(enums.PaymentStatusFailed))
		}
		b.Termination = enums.TerminationCancelled
		if reason != "" {
			b.TerminationReason = &reason
		}
		return uow.Record(ledger.RecordLedgerEventInput{
			BookingID: &b.ID,
			Actor:     actor,
			Type:      enums.LedgerEventBookingCancelled,
			Reason:    reason,
		})
	})
}

// Close archives a completed booking once money movement is final.
func (s *Service) Close(ctx context.Context, id uuid.UUID, actor types.Actor, reason string) (*models.Booking, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeNoAuthority, "admin identity required to close bookings")
	}
	reason = strings.TrimSpace(reason)
	return s.Mutate(ctx, id, actor, func(ctx context.Context, b *models.Booking, uow *UnitOfWork) error {
		if b.Status != enums.BookingStatusCompleted {
			return pkgerrors.InvalidState("booking closable", string(b.Status), string(enums.BookingStatusCompleted))
		}
		if !moneySettled(b) {
			current := "payout pending"
			if b.Payout != nil {
				current = string(b.Payout.Status)
			}
			return pkgerrors.InvalidState("money movement final", current,
				string(enums.PayoutStatusPaid), string(enums.PayoutStatusCancelled), string(enums.PaymentStatusRefunded))
		}
		b.Termination = enums.TerminationClosed
		if reason != "" {
			b.TerminationReason = &reason
		}
		return uow.Record(ledger.RecordLedgerEventInput{
			BookingID: &b.ID,
			Actor:     actor,
			Type:      enums.LedgerEventBookingClosed,
			Reason:    reason,
		})
	})
}

// SubmitDeliverable records one deliverable. Resubmitting a type replaces
// its artifact reference.
func (s *Service) SubmitDeliverable(ctx context.Context, id uuid.UUID, actor types.Actor, deliverable gateway.SubmittedDeliverable) (*models.Booking, error) {
	if !deliverable.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown deliverable type %q", deliverable.Type))
	}
	if strings.TrimSpace(deliverable.ArtifactRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "artifact reference is required")
	}
	return s.Mutate(ctx, id, actor, func(ctx context.Context, b *models.Booking, uow *UnitOfWork) error {
		if actor.Role != enums.ActorRoleSystem && actor.Role != enums.ActorRoleAdmin && actor.ID != b.ProfessionalID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the assigned professional may submit deliverables")
		}
		if b.Termination != enums.TerminationNone {
			return pkgerrors.InvalidState("booking active", string(b.Status))
		}
		if s.applyDeliverables(b, []gateway.SubmittedDeliverable{deliverable}) {
			s.emitDeliverables(b, actor, uow)
		}
		return nil
	})
}

// SyncDeliverables pulls the submitted set from the deliverable store.
func (s *Service) SyncDeliverables(ctx context.Context, id uuid.UUID, source gateway.DeliverableStore) (*models.Booking, error) {
	if source == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "deliverable store not configured")
	}
	submitted, err := source.ListSubmitted(ctx, id.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list submitted deliverables")
	}
	return s.Mutate(ctx, id, types.SystemActor, func(ctx context.Context, b *models.Booking, uow *UnitOfWork) error {
		if b.Termination != enums.TerminationNone {
			return nil
		}
		if s.applyDeliverables(b, submitted) {
			s.emitDeliverables(b, types.SystemActor, uow)
		}
		return nil
	})
}

func (s *Service) ListPayoutCandidates(ctx context.Context, limit, maxAttempts int) ([]uuid.UUID, error) {
	return s.store.ListPayoutCandidates(ctx, limit, maxAttempts)
}

func (s *Service) applyDeliverables(b *models.Booking, submitted []gateway.SubmittedDeliverable) bool {
	changed := false
	for _, incoming := range submitted {
		if !incoming.Type.IsValid() {
			continue
		}
		at := incoming.SubmittedAt
		if at.IsZero() {
			at = s.now()
		}
		found := false
		for i := range b.Deliverables {
			if b.Deliverables[i].Type != incoming.Type {
				continue
			}
			found = true
			if b.Deliverables[i].ArtifactRef != incoming.ArtifactRef {
				b.Deliverables[i].ArtifactRef = incoming.ArtifactRef
				b.Deliverables[i].SubmittedAt = at
				changed = true
			}
		}
		if !found {
			b.Deliverables = append(b.Deliverables, models.Deliverable{
				ID:          uuid.New(),
				BookingID:   b.ID,
				Type:        incoming.Type,
				ArtifactRef: incoming.ArtifactRef,
				SubmittedAt: at,
			})
			changed = true
		}
	}
	return changed
}

func (s *Service) emitDeliverables(b *models.Booking, actor types.Actor, uow *UnitOfWork) {
	uow.Emit(outbox.DomainEvent{
		EventType:     enums.EventDeliverablesSynchronized,
		AggregateType: enums.AggregateBooking,
		AggregateID:   b.ID,
		Actor:         ActorRef(actor),
		Data: payloads.DeliverablesSynchronizedEvent{
			BookingID: b.ID,
			Submitted: b.SubmittedTypes(),
			Missing:   b.MissingDeliverables(),
		},
	})
}

func moneySettled(b *models.Booking) bool {
	if payment := b.CurrentPayment(); payment != nil && payment.Status == enums.PaymentStatusRefunded {
		return true
	}
	if b.Payout == nil {
		return false
	}
	return b.Payout.Status.IsTerminal()
}

// AuthorizeParticipant allows admins, the system and the booking's own
// customer or professional.
func AuthorizeParticipant(b *models.Booking, actor types.Actor) error {
	switch actor.Role {
	case enums.ActorRoleAdmin, enums.ActorRoleSystem:
		return nil
	case enums.ActorRoleCustomer:
		if actor.ID == b.CustomerID {
			return nil
		}
	case enums.ActorRoleProfessional:
		if actor.ID == b.ProfessionalID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "actor is not a participant of this booking")
}

// ActorRef converts an actor into the outbox envelope reference.
func ActorRef(actor types.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{ID: actor.ID, Role: string(actor.Role)}
}
