// Package app assembles the booking services shared by the API and the
// payout worker.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fireguard/booking-payments/internal/admin"
	"github.com/fireguard/booking-payments/internal/bookings"
	"github.com/fireguard/booking-payments/internal/commission"
	"github.com/fireguard/booking-payments/internal/gateway"
	"github.com/fireguard/booking-payments/internal/ledger"
	"github.com/fireguard/booking-payments/internal/payments"
	"github.com/fireguard/booking-payments/internal/payouts"
	"github.com/fireguard/booking-payments/internal/pricing"
	"github.com/fireguard/booking-payments/pkg/config"
	"github.com/fireguard/booking-payments/pkg/db"
	"github.com/fireguard/booking-payments/pkg/logger"
	"github.com/fireguard/booking-payments/pkg/metrics"
	"github.com/fireguard/booking-payments/pkg/outbox"
	"github.com/fireguard/booking-payments/pkg/redis"
)

const gatewayModeSandbox = "sandbox"

type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         *db.Client
	Redis      redis.LockStore
	Registerer prometheus.Registerer
}

type Services struct {
	Pricing    *pricing.Calculator
	Commission *commission.Engine
	Bookings   *bookings.Service
	Payments   *payments.Service
	Payouts    *payouts.Service
	Admin      *admin.Service
	Ledger     ledger.Service
	Outbox     *outbox.Repository
	Gateway    *gateway.Sandbox
	Metrics    *metrics.BookingMetrics
}

// Build wires the domain services over the database and seeds commission
// version 0 for any service type without history.
func Build(ctx context.Context, p Params) (*Services, error) {
	if p.Config == nil || p.Logger == nil || p.DB == nil {
		return nil, fmt.Errorf("config, logger and db are required")
	}
	cfg, logg := p.Config, p.Logger

	if mode := strings.ToLower(strings.TrimSpace(cfg.Gateway.Mode)); mode != gatewayModeSandbox {
		return nil, fmt.Errorf("unsupported gateway mode %q", cfg.Gateway.Mode)
	}
	sandbox := gateway.NewSandbox()

	sizeOverrides, riskOverrides, err := cfg.Pricing.Multipliers()
	if err != nil {
		return nil, err
	}
	table, err := pricing.DefaultTable().WithOverrides(sizeOverrides, riskOverrides)
	if err != nil {
		return nil, fmt.Errorf("pricing: %w", err)
	}
	calc, err := pricing.NewCalculator(table)
	if err != nil {
		return nil, fmt.Errorf("pricing: %w", err)
	}

	conn := p.DB.DB()
	ledgerRepo := ledger.NewRepository(conn)
	ledgerSvc, err := ledger.NewService(ledgerRepo)
	if err != nil {
		return nil, err
	}
	outboxRepo := outbox.NewRepository(conn)
	outboxSvc := outbox.NewService(outboxRepo, logg)

	defaults, err := commission.DefaultsFromConfig(cfg.Commission)
	if err != nil {
		return nil, err
	}
	engine, err := commission.NewEngine(commission.NewGormRepository(conn, ledgerRepo, outboxSvc), defaults, logg)
	if err != nil {
		return nil, err
	}
	if err := engine.Seed(ctx); err != nil {
		return nil, fmt.Errorf("seed commission rates: %w", err)
	}

	var locker bookings.Locker = bookings.NewKeyedMutex()
	if cfg.FeatureFlags.RedisLocks && p.Redis != nil {
		locker, err = bookings.NewRedisLocker(p.Redis, cfg.Idempotency.BookingLock)
		if err != nil {
			return nil, err
		}
	}

	observer := metrics.NewBookingMetrics(p.Registerer)
	bookingSvc, err := bookings.NewService(bookings.NewGormStore(conn, ledgerRepo, outboxSvc), locker, calc, logg)
	if err != nil {
		return nil, err
	}
	bookingSvc = bookingSvc.WithObserver(observer)

	paymentSvc, err := payments.NewService(bookingSvc, engine, sandbox, logg, observer)
	if err != nil {
		return nil, err
	}
	payoutSvc, err := payouts.NewService(bookingSvc, sandbox, logg, observer)
	if err != nil {
		return nil, err
	}
	adminSvc, err := admin.NewService(bookingSvc, paymentSvc, payoutSvc, engine, logg)
	if err != nil {
		return nil, err
	}

	return &Services{
		Pricing:    calc,
		Commission: engine,
		Bookings:   bookingSvc,
		Payments:   paymentSvc,
		Payouts:    payoutSvc,
		Admin:      adminSvc,
		Ledger:     ledgerSvc,
		Outbox:     outboxRepo,
		Gateway:    sandbox,
		Metrics:    observer,
	}, nil
}
