package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column.
type OutboxAggregateType string

const (
	AggregateBooking          OutboxAggregateType = "booking"
	AggregateCommissionConfig OutboxAggregateType = "commission_config"
)

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateBooking || a == AggregateCommissionConfig
}

// OutboxEventType maps to the event_type column.
type OutboxEventType string

const (
	EventBookingCreated           OutboxEventType = "booking_created"
	EventBookingStatusChanged     OutboxEventType = "booking_status_changed"
	EventCheckoutStarted          OutboxEventType = "checkout_started"
	EventPaymentStatusChanged     OutboxEventType = "payment_status_changed"
	EventRefundRequested          OutboxEventType = "refund_requested"
	EventRefundApplied            OutboxEventType = "refund_applied"
	EventPayoutStatusChanged      OutboxEventType = "payout_status_changed"
	EventCommissionRateUpdated    OutboxEventType = "commission_rate_updated"
	EventDeliverablesSynchronized OutboxEventType = "deliverables_synchronized"
)

var validOutboxEventTypes = []OutboxEventType{
	EventBookingCreated,
	EventBookingStatusChanged,
	EventCheckoutStarted,
	EventPaymentStatusChanged,
	EventRefundRequested,
	EventRefundApplied,
	EventPayoutStatusChanged,
	EventCommissionRateUpdated,
	EventDeliverablesSynchronized,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxDLQErrorReason explains why an event landed in the dead-letter table.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
