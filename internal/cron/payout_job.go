package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/fireguard/booking-payments/pkg/db/models"
	"github.com/fireguard/booking-payments/pkg/enums"
	"github.com/fireguard/booking-payments/pkg/logger"
	"github.com/fireguard/booking-payments/pkg/types"
)

const (
	defaultPayoutBatch       = 100
	defaultPayoutMaxAttempts = 5
)

type payoutCandidates interface {
	ListPayoutCandidates(ctx context.Context, limit, maxAttempts int) ([]uuid.UUID, error)
}

type payoutRunner interface {
	CreatePayout(ctx context.Context, bookingID uuid.UUID, accountRef string, actor types.Actor) (*models.Payout, error)
	ExecutePayout(ctx context.Context, bookingID uuid.UUID, actor types.Actor) (*models.Payout, error)
}

type PayoutJobParams struct {
	Logger      *logger.Logger
	Candidates  payoutCandidates
	Payouts     payoutRunner
	BatchSize   int
	MaxAttempts int
}

// NewPayoutJob schedules payouts for completed bookings and executes or
// retries scheduled and failed ones until MaxAttempts.
func NewPayoutJob(params PayoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Candidates == nil {
		return nil, fmt.Errorf("candidate source required")
	}
	if params.Payouts == nil {
		return nil, fmt.Errorf("payout service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultPayoutBatch
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultPayoutMaxAttempts
	}
	return &payoutJob{
		logg:        params.Logger,
		candidates:  params.Candidates,
		payouts:     params.Payouts,
		batch:       batch,
		maxAttempts: maxAttempts,
	}, nil
}

type payoutJob struct {
	logg        *logger.Logger
	candidates  payoutCandidates
	payouts     payoutRunner
	batch       int
	maxAttempts int
}

func (j *payoutJob) Name() string { return "payout-runner" }

func (j *payoutJob) Run(ctx context.Context) error {
	ids, err := j.candidates.ListPayoutCandidates(ctx, j.batch, j.maxAttempts)
	if err != nil {
		return fmt.Errorf("list payout candidates: %w", err)
	}

	var errs error
	counts := map[enums.PayoutStatus]int{}
	for _, id := range ids {
		if ctx.Err() != nil {
			return multierr.Append(errs, ctx.Err())
		}
		status, err := j.process(ctx, id)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("booking %s: %w", id, err))
		}
		if status != "" {
			counts[status]++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(ids),
		"paid":       counts[enums.PayoutStatusPaid],
		"failed":     counts[enums.PayoutStatusFailed],
		"errors":     len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "payout run complete")
	return errs
}

func (j *payoutJob) process(ctx context.Context, bookingID uuid.UUID) (enums.PayoutStatus, error) {
	payout, err := j.payouts.CreatePayout(ctx, bookingID, "", types.SystemActor)
	if err != nil {
		return "", err
	}
	if !payout.Status.Executable() {
		return payout.Status, nil
	}
	payout, err = j.payouts.ExecutePayout(ctx, bookingID, types.SystemActor)
	if payout == nil {
		return "", err
	}
	return payout.Status, err
}
