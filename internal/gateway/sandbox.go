package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrSandboxUnavailable is returned while the sandbox simulates an outage.
var ErrSandboxUnavailable = errors.New("sandbox gateway unavailable")

// Sandbox is a deterministic in-process gateway, disbursement rail and
// deliverable store for development and tests.
type Sandbox struct {
	mu           sync.Mutex
	sessions     map[string]string
	payouts      map[string]DisbursementResult
	failAccounts map[string]string
	deliverables map[string][]SubmittedDeliverable
	unavailable  bool
	checkouts    []CheckoutRequest
	disbursed    []DisbursementRequest
}

func NewSandbox() *Sandbox {
	return &Sandbox{
		sessions:     make(map[string]string),
		payouts:      make(map[string]DisbursementResult),
		failAccounts: make(map[string]string),
		deliverables: make(map[string][]SubmittedDeliverable),
	}
}

func (s *Sandbox) CreateCheckoutSession(_ context.Context, req CheckoutRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return "", ErrSandboxUnavailable
	}
	if req.IdempotencyKey == "" {
		return "", errors.New("idempotency key is required")
	}
	s.checkouts = append(s.checkouts, req)
	if ref, ok := s.sessions[req.IdempotencyKey]; ok {
		return ref, nil
	}
	ref := "cs_sandbox_" + digest(req.IdempotencyKey)
	s.sessions[req.IdempotencyKey] = ref
	return ref, nil
}

func (s *Sandbox) Payout(_ context.Context, req DisbursementRequest) (DisbursementResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return DisbursementResult{}, ErrSandboxUnavailable
	}
	if req.IdempotencyKey == "" {
		return DisbursementResult{}, errors.New("idempotency key is required")
	}
	s.disbursed = append(s.disbursed, req)
	if prior, ok := s.payouts[req.IdempotencyKey]; ok && prior.Status == DisbursementPaid {
		return prior, nil
	}
	if reason, ok := s.failAccounts[req.AccountRef]; ok {
		result := DisbursementResult{Status: DisbursementFailed, FailureReason: reason}
		s.payouts[req.IdempotencyKey] = result
		return result, nil
	}
	result := DisbursementResult{Status: DisbursementPaid, ExternalRef: "po_sandbox_" + digest(req.IdempotencyKey)}
	s.payouts[req.IdempotencyKey] = result
	return result, nil
}

func (s *Sandbox) ListSubmitted(_ context.Context, bookingRef string) ([]SubmittedDeliverable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return nil, ErrSandboxUnavailable
	}
	out := append([]SubmittedDeliverable(nil), s.deliverables[bookingRef]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

// Submit records a deliverable as if the professional uploaded it.
func (s *Sandbox) Submit(bookingRef string, d SubmittedDeliverable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.SubmittedAt.IsZero() {
		d.SubmittedAt = time.Now().UTC()
	}
	s.deliverables[bookingRef] = append(s.deliverables[bookingRef], d)
}

// FailAccount makes payouts to accountRef fail with reason until cleared.
func (s *Sandbox) FailAccount(accountRef, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reason == "" {
		delete(s.failAccounts, accountRef)
		return
	}
	s.failAccounts[accountRef] = reason
}

// SetUnavailable toggles a simulated outage.
func (s *Sandbox) SetUnavailable(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = down
}

// Checkouts returns every checkout request received.
func (s *Sandbox) Checkouts() []CheckoutRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CheckoutRequest(nil), s.checkouts...)
}

// Disbursements returns every payout request received.
func (s *Sandbox) Disbursements() []DisbursementRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DisbursementRequest(nil), s.disbursed...)
}

func digest(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}
