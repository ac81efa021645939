package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fireguard/booking-payments/api/controllers"
	admincontrollers "github.com/fireguard/booking-payments/api/controllers/admin"
	webhookcontrollers "github.com/fireguard/booking-payments/api/controllers/webhooks"
	"github.com/fireguard/booking-payments/api/middleware"
	"github.com/fireguard/booking-payments/internal/gateway"
	"github.com/fireguard/booking-payments/pkg/config"
	"github.com/fireguard/booking-payments/pkg/enums"
	"github.com/fireguard/booking-payments/pkg/logger"
	"github.com/fireguard/booking-payments/pkg/redis"
)

// RouterParams carries the collaborators the HTTP surface needs. Optional
// dependencies may be nil: readiness skips nil pingers, idempotency and the
// webhook guard are disabled without Redis.
type RouterParams struct {
	Config *config.Config
	Logger *logger.Logger

	DB    controllers.Pinger
	Redis controllers.Pinger

	Idempotency  redis.IdempotencyStore
	WebhookGuard *gateway.IdempotencyGuard
	Gatherer     prometheus.Gatherer

	Pricer       controllers.Pricer
	Splitter     controllers.Splitter
	Bookings     controllers.BookingService
	Payments     controllers.PaymentService
	Outcomes     webhookcontrollers.OutcomeService
	Payouts      controllers.PayoutService
	Deliverables gateway.DeliverableStore
	Admin        admincontrollers.Service
	Rates        admincontrollers.RateReader
	Ledger       admincontrollers.LedgerReader
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    p.DB,
			"redis": p.Redis,
		}))
	})

	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	// a nil *IdempotencyGuard must stay a nil interface
	var guard webhookcontrollers.CallbackGuard
	if p.WebhookGuard != nil {
		guard = p.WebhookGuard
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/gateway/bookings/{bookingId}",
			webhookcontrollers.GatewayCallback(p.Outcomes, cfg.Gateway.WebhookSecret, guard, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			if p.Idempotency != nil {
				r.Use(middleware.Idempotency(p.Idempotency, logg))
			}

			r.Post("/quotes", controllers.Quote(p.Pricer, p.Splitter, logg))

			r.With(middleware.RequireRole(logg, enums.ActorRoleCustomer, enums.ActorRoleAdmin)).
				Post("/bookings", controllers.CreateBooking(p.Bookings, logg))

			r.Route("/bookings/{bookingId}", func(r chi.Router) {
				r.Get("/", controllers.GetBooking(p.Bookings, logg))
				r.With(middleware.RequireRole(logg, enums.ActorRoleCustomer, enums.ActorRoleAdmin)).
					Post("/checkout", controllers.CreateCheckout(p.Payments, logg))
				r.Post("/cancel", controllers.CancelBooking(p.Bookings, logg))
				r.With(middleware.RequireRole(logg, enums.ActorRoleProfessional, enums.ActorRoleAdmin)).
					Post("/deliverables", controllers.SubmitDeliverable(p.Bookings, logg))
				r.Post("/deliverables/sync", controllers.SyncDeliverables(p.Bookings, p.Deliverables, logg))
				r.Post("/refunds", controllers.RequestRefund(p.Payments, logg))
				r.Get("/payout/eligibility", controllers.PayoutEligibility(p.Bookings, p.Payouts, logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin))
					r.Post("/payout", controllers.CreatePayout(p.Payouts, logg))
					r.Post("/payout/execute", controllers.ExecutePayout(p.Payouts, logg))
				})
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin))
				r.Get("/admin/commission-rates/{serviceType}", admincontrollers.CommissionRate(p.Rates, logg))
				r.Put("/admin/commission-rates/{serviceType}", admincontrollers.UpdateCommissionRate(p.Admin, logg))
				r.Get("/admin/bookings/{bookingId}/ledger", admincontrollers.BookingLedger(p.Ledger, logg))
				r.Post("/admin/bookings/{bookingId}/refunds/{requestId}/approve", admincontrollers.ApproveRefund(p.Admin, logg))
				r.Post("/admin/bookings/{bookingId}/refunds/{requestId}/deny", admincontrollers.DenyRefund(p.Admin, logg))
				r.Post("/admin/bookings/{bookingId}/payout/force", admincontrollers.ForcePayout(p.Admin, logg))
				r.Post("/admin/bookings/{bookingId}/payout/hold", admincontrollers.HoldPayout(p.Admin, logg))
				r.Post("/admin/bookings/{bookingId}/payout/resolve", admincontrollers.ResolveHeldPayout(p.Admin, logg))
				r.Post("/admin/bookings/{bookingId}/close", admincontrollers.CloseBooking(p.Admin, logg))
			})
		})
	})

	return r
}
