package enums

import "fmt"

// PayoutStatus tracks professional payout execution.
type PayoutStatus string

const (
	PayoutStatusNotEligible PayoutStatus = "not_eligible"
	PayoutStatusEligible    PayoutStatus = "eligible"
	PayoutStatusScheduled   PayoutStatus = "scheduled"
	PayoutStatusPaid        PayoutStatus = "paid"
	PayoutStatusFailed      PayoutStatus = "failed"
	PayoutStatusHeld        PayoutStatus = "held"
	// PayoutStatusCancelled is reached only when an admin resolves a held
	// payout as clawed back.
	PayoutStatusCancelled PayoutStatus = "cancelled"
)

var validPayoutStatuses = []PayoutStatus{
	PayoutStatusNotEligible,
	PayoutStatusEligible,
	PayoutStatusScheduled,
	PayoutStatusPaid,
	PayoutStatusFailed,
	PayoutStatusHeld,
	PayoutStatusCancelled,
}

func (p PayoutStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PayoutStatus.
func (p PayoutStatus) IsValid() bool {
	for _, candidate := range validPayoutStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the payout can no longer move.
func (p PayoutStatus) IsTerminal() bool {
	return p == PayoutStatusPaid || p == PayoutStatusCancelled
}

// Executable reports whether a disbursement attempt may run.
func (p PayoutStatus) Executable() bool {
	return p == PayoutStatusScheduled || p == PayoutStatusFailed
}

// ParsePayoutStatus converts raw input into a PayoutStatus.
func ParsePayoutStatus(value string) (PayoutStatus, error) {
	for _, candidate := range validPayoutStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout status %q", value)
}

// HeldResolution is how an admin settles a held payout.
type HeldResolution string

const (
	HeldResolutionRelease  HeldResolution = "release"
	HeldResolutionClawback HeldResolution = "clawback"
)

// ParseHeldResolution converts raw input into a HeldResolution.
func ParseHeldResolution(value string) (HeldResolution, error) {
	switch HeldResolution(value) {
	case HeldResolutionRelease, HeldResolutionClawback:
		return HeldResolution(value), nil
	default:
		return "", fmt.Errorf("invalid held payout resolution %q", value)
	}
}
