package admin

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fireguard/booking-payments/api/controllers"
	"github.com/fireguard/booking-payments/api/responses"
	"github.com/fireguard/booking-payments/api/validators"
	adminsvc "github.com/fireguard/booking-payments/internal/admin"
	"github.com/fireguard/booking-payments/pkg/db/models"
	"github.com/fireguard/booking-payments/pkg/enums"
	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
	"github.com/fireguard/booking-payments/pkg/logger"
)

type Service interface {
	ApproveRefund(ctx context.Context, admin adminsvc.Identity, bookingID, requestID uuid.UUID, reason string, override bool) (*models.Booking, error)
	DenyRefund(ctx context.Context, admin adminsvc.Identity, bookingID, requestID uuid.UUID, reason string) (*models.RefundRequest, error)
	ForcePayout(ctx context.Context, admin adminsvc.Identity, bookingID uuid.UUID, amountCents int64, accountRef, reason string) (*models.Payout, error)
	HoldPayout(ctx context.Context, admin adminsvc.Identity, bookingID uuid.UUID, reason string) (*models.Payout, error)
	ResolveHeldPayout(ctx context.Context, admin adminsvc.Identity, bookingID uuid.UUID, resolution enums.HeldResolution, reason string) (*models.Payout, error)
	UpdateCommissionRate(ctx context.Context, admin adminsvc.Identity, serviceType enums.ServiceType, rate decimal.Decimal, reason string) (models.CommissionConfig, error)
	CloseBooking(ctx context.Context, admin adminsvc.Identity, bookingID uuid.UUID, reason string) (*models.Booking, error)
}

type RateReader interface {
	Current(ctx context.Context, serviceType enums.ServiceType) (models.CommissionConfig, error)
	History(ctx context.Context, serviceType enums.ServiceType) ([]models.CommissionConfig, error)
}

type LedgerReader interface {
	ListForBooking(ctx context.Context, bookingID uuid.UUID) ([]models.LedgerEvent, error)
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type approveRefundRequest struct {
	Reason   string `json:"reason" validate:"required,max=500"`
	Override bool   `json:"override"`
}

type forcePayoutRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"gte=0"`
	AccountRef  string `json:"account_ref" validate:"max=255"`
	Reason      string `json:"reason" validate:"required,max=500"`
}

type resolveHeldRequest struct {
	Resolution string `json:"resolution" validate:"required,oneof=release clawback"`
	Reason     string `json:"reason" validate:"required,max=500"`
}

type updateRateRequest struct {
	Rate   *decimal.Decimal `json:"rate" validate:"required"`
	Reason string           `json:"reason" validate:"required,max=500"`
}

type commissionConfigResponse struct {
	ID          uuid.UUID         `json:"id"`
	ServiceType enums.ServiceType `json:"service_type"`
	Version     int               `json:"version"`
	Rate        string            `json:"rate"`
	ModifiedBy  uuid.UUID         `json:"modified_by"`
	Reason      *string           `json:"reason,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

func newCommissionConfigResponse(cfg models.CommissionConfig) commissionConfigResponse {
	return commissionConfigResponse{
		ID:          cfg.ID,
		ServiceType: cfg.ServiceType,
		Version:     cfg.Version,
		Rate:        cfg.Rate.String(),
		ModifiedBy:  cfg.ModifiedBy,
		Reason:      cfg.Reason,
		CreatedAt:   cfg.CreatedAt,
	}
}

func serviceTypeParam(r *http.Request) (enums.ServiceType, error) {
	serviceType, err := enums.ParseServiceType(chi.URLParam(r, "serviceType"))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown service type")
	}
	return serviceType, nil
}

func bookingAndRequest(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	bookingID, err := controllers.UUIDParam(r, "bookingId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	requestID, err := controllers.UUIDParam(r, "requestId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return bookingID, requestID, nil
}

// CommissionRate returns the current rate and its version history.
func CommissionRate(rates RateReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serviceType, err := serviceTypeParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		current, err := rates.Current(r.Context(), serviceType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		history, err := rates.History(r.Context(), serviceType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		versions := make([]commissionConfigResponse, 0, len(history))
		for _, cfg := range history {
			versions = append(versions, newCommissionConfigResponse(cfg))
		}
		responses.WriteSuccess(w, map[string]any{
			"current": newCommissionConfigResponse(current),
			"history": versions,
		})
	}
}

func UpdateCommissionRate(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := controllers.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		serviceType, err := serviceTypeParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateRateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cfg, err := svc.UpdateCommissionRate(r.Context(), actor, serviceType, *payload.Rate, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCommissionConfigResponse(cfg))
	}
}

func BookingLedger(ledger LedgerReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := controllers.UUIDParam(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultLedgerLimit, 1, maxLedgerLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, math.MaxInt32)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		events, err := ledger.ListForBooking(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set(totalCountHeader, strconv.Itoa(len(events)))
		responses.WriteSuccess(w, ledgerPage(events, offset, limit))
	}
}

const (
	defaultLedgerLimit = 100
	maxLedgerLimit     = 500
	totalCountHeader   = "X-Total-Count"
)

// ledgerPage slices the oldest-first ledger listing.
func ledgerPage(events []models.LedgerEvent, offset, limit int) []models.LedgerEvent {
	if offset >= len(events) {
		return []models.LedgerEvent{}
	}
	end := min(offset+limit, len(events))
	return events[offset:end]
}

func ApproveRefund(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := controllers.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bookingID, requestID, err := bookingAndRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload approveRefundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		b, err := svc.ApproveRefund(r.Context(), actor, bookingID, requestID, payload.Reason, payload.Override)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, controllers.NewBookingResponse(b))
	}
}

func DenyRefund(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := controllers.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bookingID, requestID, err := bookingAndRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload reasonRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		request, err := svc.DenyRefund(r.Context(), actor, bookingID, requestID, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, controllers.NewRefundRequestResponse(request))
	}
}

func ForcePayout(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := controllers.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bookingID, err := controllers.UUIDParam(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload forcePayoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payout, err := svc.ForcePayout(r.Context(), actor, bookingID, payload.AmountCents, payload.AccountRef, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, controllers.NewPayoutResponse(payout))
	}
}

func HoldPayout(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := controllers.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bookingID, err := controllers.UUIDParam(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload reasonRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payout, err := svc.HoldPayout(r.Context(), actor, bookingID, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, controllers.NewPayoutResponse(payout))
	}
}

func ResolveHeldPayout(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := controllers.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bookingID, err := controllers.UUIDParam(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload resolveHeldRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resolution, err := enums.ParseHeldResolution(payload.Resolution)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid resolution"))
			return
		}
		payout, err := svc.ResolveHeldPayout(r.Context(), actor, bookingID, resolution, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, controllers.NewPayoutResponse(payout))
	}
}

func CloseBooking(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := controllers.RequestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bookingID, err := controllers.UUIDParam(r, "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload reasonRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		b, err := svc.CloseBooking(r.Context(), actor, bookingID, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, controllers.NewBookingResponse(b))
	}
}
