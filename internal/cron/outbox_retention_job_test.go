package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/fireguard/booking-payments/pkg/logger"
)

func TestOutboxRetentionJobUsesCutoffAndAttempts(t *testing.T) {
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeOutboxPruner{}
	job := newRetentionJob(t, repo, 7*24*time.Hour, 4)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.Add(-7 * 24 * time.Hour); !repo.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.cutoff)
	}
	if repo.minAttempts != 4 || repo.called != 1 {
		t.Fatalf("unexpected call attempts=%d called=%d", repo.minAttempts, repo.called)
	}
}

func TestOutboxRetentionJobDefaults(t *testing.T) {
	repo := &fakeOutboxPruner{}
	job := newRetentionJob(t, repo, 0, 0)
	if job.retention != defaultOutboxRetention || job.minAttempts != defaultOutboxMinAttempts {
		t.Fatalf("unexpected defaults retention=%s attempts=%d", job.retention, job.minAttempts)
	}
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	job := newRetentionJob(t, &fakeOutboxPruner{err: errors.New("boom")}, 0, 0)
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newRetentionJob(t *testing.T, repo *fakeOutboxPruner, retention time.Duration, attempts int) *outboxRetentionJob {
	t.Helper()
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:      logger.Nop(),
		DB:          passthroughTx{},
		Repository:  repo,
		Retention:   retention,
		MinAttempts: attempts,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job, ok := jobIface.(*outboxRetentionJob)
	if !ok {
		t.Fatalf("expected outboxRetentionJob, got %T", jobIface)
	}
	return job
}

type fakeOutboxPruner struct {
	cutoff      time.Time
	minAttempts int
	called      int
	err         error
}

func (f *fakeOutboxPruner) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	f.called++
	f.cutoff = cutoff
	f.minAttempts = minAttemptCount
	if f.err != nil {
		return 0, f.err
	}
	return 3, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
