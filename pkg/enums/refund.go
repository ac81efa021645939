package enums

import "fmt"

// RefundReason is why a refund was requested.
type RefundReason string

const (
	RefundReasonServiceNotDelivered RefundReason = "service_not_delivered"
	RefundReasonUnsatisfactoryWork  RefundReason = "unsatisfactory_work"
	RefundReasonCustomerCancelled   RefundReason = "customer_cancelled"
	RefundReasonProfessionalNoShow  RefundReason = "professional_no_show"
	RefundReasonDuplicatePayment    RefundReason = "duplicate_payment"
	RefundReasonOther               RefundReason = "other"
)

var validRefundReasons = []RefundReason{
	RefundReasonServiceNotDelivered,
	RefundReasonUnsatisfactoryWork,
	RefundReasonCustomerCancelled,
	RefundReasonProfessionalNoShow,
	RefundReasonDuplicatePayment,
	RefundReasonOther,
}

// IsValid reports whether the value is a known RefundReason.
func (r RefundReason) IsValid() bool {
	for _, candidate := range validRefundReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRefundReason converts raw input into a RefundReason.
func ParseRefundReason(value string) (RefundReason, error) {
	for _, candidate := range validRefundReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund reason %q", value)
}

// RefundApproval tracks the one-time resolution of a refund request.
type RefundApproval string

const (
	RefundApprovalPending  RefundApproval = "pending"
	RefundApprovalApproved RefundApproval = "approved"
	RefundApprovalDenied   RefundApproval = "denied"
)

func (r RefundApproval) IsValid() bool {
	switch r {
	case RefundApprovalPending, RefundApprovalApproved, RefundApprovalDenied:
		return true
	default:
		return false
	}
}

// Resolved reports whether the request has been decided.
func (r RefundApproval) Resolved() bool {
	return r == RefundApprovalApproved || r == RefundApprovalDenied
}
