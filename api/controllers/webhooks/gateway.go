package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fireguard/booking-payments/api/controllers"
	"github.com/fireguard/booking-payments/api/responses"
	"github.com/fireguard/booking-payments/internal/gateway"
	"github.com/fireguard/booking-payments/internal/payments"
	"github.com/fireguard/booking-payments/pkg/db/models"
	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
	"github.com/fireguard/booking-payments/pkg/logger"
)

const SignatureHeader = "X-Gateway-Signature"

type OutcomeService interface {
	ApplyGatewayResult(ctx context.Context, bookingID uuid.UUID, outcome gateway.Outcome) (*models.Booking, error)
}

// CallbackGuard dedupes gateway event ids.
type CallbackGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// GatewayCallback ingests a signed payment outcome for one booking. Replays
// of an event id are acknowledged without reprocessing; failed deliveries
// release the event id so the gateway can retry.
func GatewayCallback(svc OutcomeService, secret string, guard CallbackGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		if secret == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gateway webhook secret not configured"))
			return
		}

		bookingID, err := controllers.UUIDParam(r, "bookingId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if err := gateway.VerifySignature(secret, payload, r.Header.Get(SignatureHeader), time.Now()); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "verify signature"))
			return
		}

		var raw payments.RawOutcome
		decoder := json.NewDecoder(bytes.NewReader(payload))
		if err := decoder.Decode(&raw); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid callback body"))
			return
		}
		outcome, err := payments.NormalizeOutcome(raw)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			ctx = logg.WithBookingID(ctx, bookingID.String())
			ctx = logg.WithField(ctx, "gateway_event_id", outcome.EventID)
		}

		guarded := guard != nil && outcome.EventID != ""
		if guarded {
			seen, err := guard.CheckAndMark(ctx, outcome.EventID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if seen {
				responses.WriteSuccess(w, map[string]any{"duplicate": true})
				return
			}
		}

		b, err := svc.ApplyGatewayResult(ctx, bookingID, outcome)
		if err != nil {
			if guarded {
				_ = guard.Delete(ctx, outcome.EventID)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, "gateway outcome applied")
		}
		responses.WriteSuccess(w, controllers.NewBookingResponse(b))
	}
}
