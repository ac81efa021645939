package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fireguard/booking-payments/api/responses"
	"github.com/fireguard/booking-payments/api/validators"
	"github.com/fireguard/booking-payments/internal/bookings"
	"github.com/fireguard/booking-payments/internal/commission"
	"github.com/fireguard/booking-payments/internal/gateway"
	"github.com/fireguard/booking-payments/internal/pricing"
	"github.com/fireguard/booking-payments/pkg/db/models"
	"github.com/fireguard/booking-payments/pkg/enums"
	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
	"github.com/fireguard/booking-payments/pkg/logger"
	"github.com/fireguard/booking-payments/pkg/types"
)

type BookingService interface {
	Create(ctx context.Context, actor types.Actor, input bookings.CreateInput) (*models.Booking, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	Cancel(ctx context.Context, id uuid.UUID, actor types.Actor, reason string) (*models.Booking, error)
	SubmitDeliverable(ctx context.Context, id uuid.UUID, actor types.Actor, deliverable gateway.SubmittedDeliverable) (*models.Booking, error)
	SyncDeliverables(ctx context.Context, id uuid.UUID, source gateway.DeliverableStore) (*models.Booking, error)
}

type Pricer interface {
	ComputePrice(serviceType enums.ServiceType, attrs pricing.Attributes) (int64, error)
}

type Splitter interface {
	Split(ctx context.Context, priceCents int64, serviceType enums.ServiceType) (commission.Split, error)
}

type quoteRequest struct {
	ServiceType    string  `json:"service_type" validate:"required"`
	BasePriceCents int64   `json:"base_price_cents" validate:"gt=0"`
	PropertySize   *string `json:"property_size,omitempty"`
	RiskLevel      *string `json:"risk_level,omitempty"`
}

func (q quoteRequest) parse() (enums.ServiceType, pricing.Attributes, error) {
	serviceType, err := enums.ParseServiceType(q.ServiceType)
	if err != nil {
		return "", pricing.Attributes{}, pkgerrors.Wrap(pkgerrors.CodeInvalidPrice, err, "unknown service type")
	}
	attrs := pricing.Attributes{BasePriceCents: q.BasePriceCents}
	if q.PropertySize != nil {
		size, err := enums.ParsePropertySize(*q.PropertySize)
		if err != nil {
			return "", pricing.Attributes{}, pkgerrors.Wrap(pkgerrors.CodeInvalidPrice, err, "unknown property size")
		}
		attrs.PropertySize = &size
	}
	if q.RiskLevel != nil {
		risk, err := enums.ParseRiskLevel(*q.RiskLevel)
		if err != nil {
			return "", pricing.Attributes{}, pkgerrors.Wrap(pkgerrors.CodeInvalidPrice, err, "unknown risk level")
		}
		attrs.RiskLevel = &risk
	}
	return serviceType, attrs, nil
}

type quoteResponse struct {
	ServiceType       enums.ServiceType `json:"service_type"`
	FinalPriceCents   int64             `json:"final_price_cents"`
	CommissionCents   int64             `json:"commission_cents"`
	EarningsCents     int64             `json:"earnings_cents"`
	CommissionRate    string            `json:"commission_rate"`
	CommissionVersion int               `json:"commission_version"`
}

// Quote prices a service and previews the split at the current rate. The
// split is only frozen once a checkout is opened.
func Quote(pricer Pricer, splitter Splitter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pricer == nil || splitter == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing unavailable"))
			return
		}
		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		serviceType, attrs, err := payload.parse()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		price, err := pricer.ComputePrice(serviceType, attrs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		split, err := splitter.Split(r.Context(), price, serviceType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quoteResponse{
			ServiceType:       serviceType,
			FinalPriceCents:   price,
			CommissionCents:   split.CommissionCents,
			EarningsCents:     split.EarningsCents,
			CommissionRate:    split.Rate.String(),
			CommissionVersion: split.Version,
		})
	}
}

type createBookingRequest struct {
	quoteRequest
	CustomerID     *uuid.UUID `json:"customer_id,omitempty"`
	ProfessionalID uuid.UUID  `json:"professional_id" validate:"required"`
}

// CreateBooking books a service for a customer. Customers book for
// themselves; admins must name the customer.
func CreateBooking(svc BookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}
		actor, err := RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload createBookingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		serviceType, attrs, err := payload.parse()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customerID := actor.ID
		if payload.CustomerID != nil {
			customerID = *payload.CustomerID
		} else if actor.Role != enums.ActorRoleCustomer {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "customer_id is required"))
			return
		}

		b, err := svc.Create(r.Context(), actor, bookings.CreateInput{
			CustomerID:     customerID,
			ProfessionalID: payload.ProfessionalID,
			ServiceType:    serviceType,
			Attributes:     attrs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, NewBookingResponse(b))
	}
}

func GetBooking(svc BookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, actor, err := bookingAndActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		b, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := bookings.AuthorizeParticipant(b, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, NewBookingResponse(b))
	}
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func CancelBooking(svc BookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, actor, err := bookingAndActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload reasonRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		b, err := svc.Cancel(r.Context(), id, actor, validators.SanitizeString(payload.Reason, 500))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, NewBookingResponse(b))
	}
}

type deliverableRequest struct {
	Type        string `json:"type" validate:"required"`
	ArtifactRef string `json:"artifact_ref" validate:"required,max=1024"`
}

func SubmitDeliverable(svc BookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, actor, err := bookingAndActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload deliverableRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		kind, err := enums.ParseDeliverableType(payload.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown deliverable type"))
			return
		}
		b, err := svc.SubmitDeliverable(r.Context(), id, actor, gateway.SubmittedDeliverable{
			Type:        kind,
			ArtifactRef: validators.SanitizeString(payload.ArtifactRef, 1024),
			SubmittedAt: time.Now().UTC(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, NewBookingResponse(b))
	}
}

// SyncDeliverables pulls the submitted set from the deliverable store on
// behalf of a participant.
func SyncDeliverables(svc BookingService, source gateway.DeliverableStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, actor, err := bookingAndActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		current, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := bookings.AuthorizeParticipant(current, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		b, err := svc.SyncDeliverables(r.Context(), id, source)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, NewBookingResponse(b))
	}
}
