package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/fireguard/booking-payments/api/responses"
	"github.com/fireguard/booking-payments/api/validators"
	"github.com/fireguard/booking-payments/internal/payments"
	"github.com/fireguard/booking-payments/pkg/db/models"
	"github.com/fireguard/booking-payments/pkg/enums"
	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
	"github.com/fireguard/booking-payments/pkg/logger"
	"github.com/fireguard/booking-payments/pkg/types"
)

type PaymentService interface {
	CreateCheckoutSession(ctx context.Context, bookingID uuid.UUID, actor types.Actor) (*payments.Checkout, error)
	RequestRefund(ctx context.Context, bookingID uuid.UUID, input payments.RefundInput, requester types.Actor) (*models.RefundRequest, error)
}

type checkoutResponse struct {
	BookingID         uuid.UUID           `json:"booking_id"`
	PaymentID         uuid.UUID           `json:"payment_id"`
	Attempt           int                 `json:"attempt"`
	SessionRef        string              `json:"session_ref"`
	Status            enums.PaymentStatus `json:"status"`
	AmountCents       int64               `json:"amount_cents"`
	CommissionCents   int64               `json:"commission_cents"`
	EarningsCents     int64               `json:"earnings_cents"`
	CommissionRate    string              `json:"commission_rate"`
	CommissionVersion int                 `json:"commission_version"`
}

// CreateCheckout opens a gateway checkout session and freezes the split.
func CreateCheckout(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		id, actor, err := bookingAndActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		checkout, err := svc.CreateCheckoutSession(r.Context(), id, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			BookingID:         checkout.BookingID,
			PaymentID:         checkout.PaymentID,
			Attempt:           checkout.Attempt,
			SessionRef:        checkout.SessionRef,
			Status:            checkout.Status,
			AmountCents:       checkout.AmountCents,
			CommissionCents:   checkout.Split.CommissionCents,
			EarningsCents:     checkout.Split.EarningsCents,
			CommissionRate:    checkout.Split.Rate.String(),
			CommissionVersion: checkout.Split.Version,
		})
	}
}

type refundRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"gt=0"`
	Reason      string `json:"reason" validate:"required"`
	Note        string `json:"note" validate:"max=1000"`
}

func RequestRefund(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, actor, err := bookingAndActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload refundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reason, err := enums.ParseRefundReason(payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown refund reason"))
			return
		}
		request, err := svc.RequestRefund(r.Context(), id, payments.RefundInput{
			AmountCents: payload.AmountCents,
			Reason:      reason,
			Note:        validators.SanitizeString(payload.Note, 1000),
		}, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, NewRefundRequestResponse(request))
	}
}
