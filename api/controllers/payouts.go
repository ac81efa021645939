package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/fireguard/booking-payments/api/responses"
	"github.com/fireguard/booking-payments/api/validators"
	"github.com/fireguard/booking-payments/internal/bookings"
	"github.com/fireguard/booking-payments/internal/payouts"
	"github.com/fireguard/booking-payments/pkg/db/models"
	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
	"github.com/fireguard/booking-payments/pkg/logger"
	"github.com/fireguard/booking-payments/pkg/types"
)

type PayoutService interface {
	CheckEligibility(ctx context.Context, bookingID uuid.UUID) (payouts.Eligibility, error)
	CreatePayout(ctx context.Context, bookingID uuid.UUID, accountRef string, actor types.Actor) (*models.Payout, error)
	ExecutePayout(ctx context.Context, bookingID uuid.UUID, actor types.Actor) (*models.Payout, error)
}

// PayoutEligibility explains whether the booking can be paid out, listing
// every unmet condition.
func PayoutEligibility(bookingSvc BookingService, svc PayoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, actor, err := bookingAndActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		b, err := bookingSvc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := bookings.AuthorizeParticipant(b, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		eligibility, err := svc.CheckEligibility(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, eligibility)
	}
}

type createPayoutRequest struct {
	AccountRef string `json:"account_ref" validate:"max=255"`
}

func CreatePayout(svc PayoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, actor, err := bookingAndActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload createPayoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payout, err := svc.CreatePayout(r.Context(), id, validators.SanitizeString(payload.AccountRef, 255), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, NewPayoutResponse(payout))
	}
}

// ExecutePayout disburses a scheduled or failed payout. A declined
// disbursement is reported in the payout body, not as an error.
func ExecutePayout(svc PayoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, actor, err := bookingAndActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payout, err := svc.ExecutePayout(r.Context(), id, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payout == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout missing after execution"))
			return
		}
		responses.WriteSuccess(w, NewPayoutResponse(payout))
	}
}
