package commission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fireguard/booking-payments/internal/ledger"
	"github.com/fireguard/booking-payments/pkg/config"
	"github.com/fireguard/booking-payments/pkg/db/models"
	"github.com/fireguard/booking-payments/pkg/enums"
	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
	"github.com/fireguard/booking-payments/pkg/logger"
	"github.com/fireguard/booking-payments/pkg/outbox"
	"github.com/fireguard/booking-payments/pkg/outbox/payloads"
	"github.com/fireguard/booking-payments/pkg/types"
)

// SeedVersion is the version assigned to configured default rates.
const SeedVersion = 0

var maxRate = decimal.NewFromInt(1)

// Split is the platform/professional division of one price. It is frozen
// onto the payment at checkout.
type Split struct {
	ServiceType     enums.ServiceType `json:"serviceType"`
	PriceCents      int64             `json:"priceCents"`
	CommissionCents int64             `json:"commissionCents"`
	EarningsCents   int64             `json:"earningsCents"`
	Rate            decimal.Decimal   `json:"rate"`
	Version         int               `json:"version"`
}

// Compute floors the commission to the cent and gives the remainder to the
// professional, so commission+earnings always equals the price.
func Compute(priceCents int64, rate decimal.Decimal) (int64, int64) {
	commission := decimal.NewFromInt(priceCents).Mul(rate).Floor().IntPart()
	return commission, priceCents - commission
}

// rateScale matches the numeric(6,4) columns rates are stored in.
const rateScale = 4

// ValidateRate enforces the [0,1) domain and the stored precision.
func ValidateRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThanOrEqual(maxRate) {
		return pkgerrors.New(pkgerrors.CodeInvalidRate, fmt.Sprintf("rate %s outside [0,1)", rate.String())).
			WithDetails(map[string]string{"rate": rate.String()})
	}
	if !rate.Equal(rate.Truncate(rateScale)) {
		return pkgerrors.New(pkgerrors.CodeInvalidRate, fmt.Sprintf("rate %s has more than %d decimal places", rate.String(), rateScale)).
			WithDetails(map[string]string{"rate": rate.String()})
	}
	return nil
}

// DefaultsFromConfig parses the configured seed rates.
func DefaultsFromConfig(cfg config.CommissionConfig) (map[enums.ServiceType]decimal.Decimal, error) {
	raw, err := cfg.Rates()
	if err != nil {
		return nil, err
	}
	out := make(map[enums.ServiceType]decimal.Decimal, len(raw))
	for name, rate := range raw {
		serviceType, err := enums.ParseServiceType(name)
		if err != nil {
			return nil, err
		}
		out[serviceType] = rate
	}
	return out, nil
}

type Engine struct {
	repo     Repository
	defaults map[enums.ServiceType]decimal.Decimal
	logg     *logger.Logger
	now      func() time.Time
}

func NewEngine(repo Repository, defaults map[enums.ServiceType]decimal.Decimal, logg *logger.Logger) (*Engine, error) {
	if repo == nil {
		return nil, fmt.Errorf("commission repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	copied := make(map[enums.ServiceType]decimal.Decimal, len(defaults))
	for serviceType, rate := range defaults {
		if !serviceType.IsValid() {
			return nil, fmt.Errorf("unknown service type %q", serviceType)
		}
		if err := ValidateRate(rate); err != nil {
			return nil, fmt.Errorf("default rate for %s: %w", serviceType, err)
		}
		copied[serviceType] = rate
	}
	return &Engine{
		repo:     repo,
		defaults: copied,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Current returns the latest version for the service type, falling back to
// the configured seed when nothing has been persisted yet.
func (e *Engine) Current(ctx context.Context, serviceType enums.ServiceType) (models.CommissionConfig, error) {
	if !serviceType.IsValid() {
		return models.CommissionConfig{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown service type %q", serviceType))
	}
	latest, err := e.repo.Latest(ctx, serviceType)
	if err != nil {
		return models.CommissionConfig{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission config")
	}
	if latest != nil {
		return *latest, nil
	}
	rate, ok := e.defaults[serviceType]
	if !ok {
		return models.CommissionConfig{}, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no commission rate for %s", serviceType))
	}
	return models.CommissionConfig{
		ServiceType: serviceType,
		Version:     SeedVersion,
		Rate:        rate,
		ModifiedBy:  types.SystemActor.ID,
	}, nil
}

func (e *Engine) Split(ctx context.Context, priceCents int64, serviceType enums.ServiceType) (Split, error) {
	if priceCents < 0 {
		return Split{}, pkgerrors.New(pkgerrors.CodeInvalidPrice, "price must not be negative")
	}
	cfg, err := e.Current(ctx, serviceType)
	if err != nil {
		return Split{}, err
	}
	commission, earnings := Compute(priceCents, cfg.Rate)
	return Split{
		ServiceType:     serviceType,
		PriceCents:      priceCents,
		CommissionCents: commission,
		EarningsCents:   earnings,
		Rate:            cfg.Rate,
		Version:         cfg.Version,
	}, nil
}

func (e *Engine) History(ctx context.Context, serviceType enums.ServiceType) ([]models.CommissionConfig, error) {
	if !serviceType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown service type %q", serviceType))
	}
	rows, err := e.repo.History(ctx, serviceType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission history")
	}
	return rows, nil
}

// UpdateRate appends a new version. Bookings that already froze a split
// keep the rate they were charged with.
func (e *Engine) UpdateRate(ctx context.Context, serviceType enums.ServiceType, rate decimal.Decimal, actor types.Actor, reason string) (models.CommissionConfig, error) {
	if !actor.IsAdmin() {
		return models.CommissionConfig{}, pkgerrors.New(pkgerrors.CodeNoAuthority, "admin identity required to change commission")
	}
	if err := ValidateRate(rate); err != nil {
		return models.CommissionConfig{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.CommissionConfig{}, pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}
	current, err := e.Current(ctx, serviceType)
	if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return models.CommissionConfig{}, err
	}

	next := models.CommissionConfig{
		ID:          uuid.New(),
		ServiceType: serviceType,
		Version:     current.Version + 1,
		Rate:        rate,
		ModifiedBy:  actor.ID,
		Reason:      &reason,
		CreatedAt:   e.now(),
	}
	if err != nil {
		next.Version = SeedVersion + 1
	}

	record, err := e.buildRecord(next, actor, reason, current.Rate)
	if err != nil {
		return models.CommissionConfig{}, err
	}
	if err := e.repo.Append(ctx, record); err != nil {
		return models.CommissionConfig{}, err
	}

	logCtx := e.logg.WithFields(ctx, map[string]any{
		"service_type": serviceType,
		"version":      next.Version,
		"rate":         rate.String(),
		"actor_id":     actor.ID.String(),
	})
	e.logg.Info(logCtx, "commission rate updated")
	return next, nil
}

// Seed persists version 0 for every configured service type that has no
// history yet.
func (e *Engine) Seed(ctx context.Context) error {
	for _, serviceType := range enums.ServiceTypes() {
		rate, ok := e.defaults[serviceType]
		if !ok {
			continue
		}
		latest, err := e.repo.Latest(ctx, serviceType)
		if err != nil {
			return err
		}
		if latest != nil {
			continue
		}
		seed := models.CommissionConfig{
			ID:          uuid.New(),
			ServiceType: serviceType,
			Version:     SeedVersion,
			Rate:        rate,
			ModifiedBy:  types.SystemActor.ID,
			CreatedAt:   e.now(),
		}
		if err := e.repo.Append(ctx, AppendRecord{Config: seed}); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
				continue
			}
			return err
		}
	}
	return nil
}

func (e *Engine) buildRecord(cfg models.CommissionConfig, actor types.Actor, reason string, previous decimal.Decimal) (AppendRecord, error) {
	audit, err := ledger.NewEvent(ledger.RecordLedgerEventInput{
		Actor:  actor,
		Type:   enums.LedgerEventCommissionUpdated,
		Reason: reason,
		Metadata: map[string]any{
			"service_type":  cfg.ServiceType,
			"version":       cfg.Version,
			"rate":          cfg.Rate.String(),
			"previous_rate": previous.String(),
		},
	})
	if err != nil {
		return AppendRecord{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build commission audit")
	}
	return AppendRecord{
		Config: cfg,
		Audit:  &audit,
		Event: &outbox.DomainEvent{
			EventType:     enums.EventCommissionRateUpdated,
			AggregateType: enums.AggregateCommissionConfig,
			AggregateID:   cfg.ID,
			Actor:         &outbox.ActorRef{ID: actor.ID, Role: string(actor.Role)},
			Data: payloads.CommissionRateUpdatedEvent{
				ServiceType: cfg.ServiceType,
				Version:     cfg.Version,
				Rate:        cfg.Rate.String(),
				ModifiedBy:  actor.ID,
				ModifiedAt:  cfg.CreatedAt,
			},
			OccurredAt: cfg.CreatedAt,
		},
	}, nil
}
