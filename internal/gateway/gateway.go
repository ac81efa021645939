package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fireguard/booking-payments/pkg/enums"
)

// CheckoutRequest opens a hosted checkout for one payment attempt.
type CheckoutRequest struct {
	AmountCents    int64
	Currency       string
	BookingRef     string
	IdempotencyKey string
}

// Outcome is a normalized gateway callback.
type Outcome struct {
	SessionRef    string
	Result        enums.GatewayResult
	AmountCents   int64
	EventID       string
	FailureReason string
}

type DisbursementStatus string

const (
	DisbursementPaid   DisbursementStatus = "paid"
	DisbursementFailed DisbursementStatus = "failed"
)

type DisbursementRequest struct {
	AccountRef     string
	AmountCents    int64
	IdempotencyKey string
}

type DisbursementResult struct {
	Status        DisbursementStatus
	ExternalRef   string
	FailureReason string
}

// SubmittedDeliverable is what the deliverable store reports for a booking.
type SubmittedDeliverable struct {
	Type        enums.DeliverableType `json:"type"`
	ArtifactRef string                `json:"artifactRef"`
	SubmittedAt time.Time             `json:"submittedAt"`
}

// Client opens checkout sessions. Settlement is always reported later
// through an Outcome.
type Client interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
}

// DisbursementClient pays professionals. Calls with the same idempotency
// key must not pay twice.
type DisbursementClient interface {
	Payout(ctx context.Context, req DisbursementRequest) (DisbursementResult, error)
}

type DeliverableStore interface {
	ListSubmitted(ctx context.Context, bookingRef string) ([]SubmittedDeliverable, error)
}

// CheckoutKey is the idempotency key for a checkout attempt.
func CheckoutKey(bookingID uuid.UUID, attempt int) string {
	return fmt.Sprintf("booking:%s:checkout:%d", bookingID, attempt)
}

// PayoutKey is the idempotency key for the single payout of a booking.
func PayoutKey(bookingID uuid.UUID) string {
	return fmt.Sprintf("booking:%s:payout", bookingID)
}
