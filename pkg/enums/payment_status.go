package enums

import "fmt"

// PaymentStatus tracks the lifecycle of a booking payment.
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusAuthorized        PaymentStatus = "authorized"
	PaymentStatusSucceeded         PaymentStatus = "succeeded"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentStatusRefunded          PaymentStatus = "refunded"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusAuthorized,
	PaymentStatusSucceeded,
	PaymentStatusFailed,
	PaymentStatusPartiallyRefunded,
	PaymentStatusRefunded,
}

// PaymentStatuses returns every known payment status.
func PaymentStatuses() []PaymentStatus {
	out := make([]PaymentStatus, len(validPaymentStatuses))
	copy(out, validPaymentStatuses)
	return out
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// Settled reports whether funds were captured, regardless of later refunds.
func (p PaymentStatus) Settled() bool {
	switch p {
	case PaymentStatusSucceeded, PaymentStatusPartiallyRefunded, PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

// InFlight reports whether a checkout is awaiting the gateway outcome.
func (p PaymentStatus) InFlight() bool {
	return p == PaymentStatusPending || p == PaymentStatusAuthorized
}

// Refundable reports whether a refund may be requested or applied.
func (p PaymentStatus) Refundable() bool {
	return p == PaymentStatusSucceeded || p == PaymentStatusPartiallyRefunded
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}

// GatewayResult is the normalized outcome reported by the payment gateway.
type GatewayResult string

const (
	GatewayResultAuthorized GatewayResult = "authorized"
	GatewayResultSucceeded  GatewayResult = "succeeded"
	GatewayResultFailed     GatewayResult = "failed"
)

func (g GatewayResult) IsValid() bool {
	switch g {
	case GatewayResultAuthorized, GatewayResultSucceeded, GatewayResultFailed:
		return true
	default:
		return false
	}
}

// PaymentStatus maps the gateway result onto the payment state it produces.
func (g GatewayResult) PaymentStatus() PaymentStatus {
	switch g {
	case GatewayResultAuthorized:
		return PaymentStatusAuthorized
	case GatewayResultSucceeded:
		return PaymentStatusSucceeded
	default:
		return PaymentStatusFailed
	}
}
