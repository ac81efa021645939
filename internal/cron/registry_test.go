package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndRejectsDuplicates(t *testing.T) {
	registry := NewRegistry(nil)
	jobA := &stubJob{name: "payout-runner"}
	jobB := &stubJob{name: "outbox-retention"}
	if !registry.Register(jobA) || !registry.Register(jobB) {
		t.Fatalf("expected both jobs to register")
	}
	if registry.Register(&stubJob{name: "payout-runner"}) {
		t.Fatalf("expected duplicate name to be rejected")
	}
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("jobs returned out of order")
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}
