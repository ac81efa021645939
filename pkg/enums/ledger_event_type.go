package enums

import "fmt"

// LedgerEventType maps to the ledger_event_type column.
type LedgerEventType string

const (
	LedgerEventPaymentCaptured   LedgerEventType = "payment_captured"
	LedgerEventPaymentFailed     LedgerEventType = "payment_failed"
	LedgerEventRefundRequested   LedgerEventType = "refund_requested"
	LedgerEventRefundResolved    LedgerEventType = "refund_resolved"
	LedgerEventRefundApplied     LedgerEventType = "refund_applied"
	LedgerEventPayoutScheduled   LedgerEventType = "payout_scheduled"
	LedgerEventPayoutPaid        LedgerEventType = "payout_paid"
	LedgerEventPayoutFailed      LedgerEventType = "payout_failed"
	LedgerEventPayoutHeld        LedgerEventType = "payout_held"
	LedgerEventPayoutReleased    LedgerEventType = "payout_released"
	LedgerEventPayoutForced      LedgerEventType = "payout_forced"
	LedgerEventClawbackRequired  LedgerEventType = "clawback_required"
	LedgerEventPayoutClawedBack  LedgerEventType = "payout_clawed_back"
	LedgerEventCommissionUpdated LedgerEventType = "commission_updated"
	LedgerEventBookingCancelled  LedgerEventType = "booking_cancelled"
	LedgerEventBookingClosed     LedgerEventType = "booking_closed"
)

var validLedgerEventTypes = []LedgerEventType{
	LedgerEventPaymentCaptured,
	LedgerEventPaymentFailed,
	LedgerEventRefundRequested,
	LedgerEventRefundResolved,
	LedgerEventRefundApplied,
	LedgerEventPayoutScheduled,
	LedgerEventPayoutPaid,
	LedgerEventPayoutFailed,
	LedgerEventPayoutHeld,
	LedgerEventPayoutReleased,
	LedgerEventPayoutForced,
	LedgerEventClawbackRequired,
	LedgerEventPayoutClawedBack,
	LedgerEventCommissionUpdated,
	LedgerEventBookingCancelled,
	LedgerEventBookingClosed,
}

// IsValid reports whether the value matches the canonical ledger event enum.
func (t LedgerEventType) IsValid() bool {
	for _, candidate := range validLedgerEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLedgerEventType converts raw input into LedgerEventType.
func ParseLedgerEventType(value string) (LedgerEventType, error) {
	for _, candidate := range validLedgerEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger event type %q", value)
}
