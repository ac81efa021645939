package payouts

import (
	"github.com/fireguard/booking-payments/internal/bookings"
	"github.com/fireguard/booking-payments/pkg/db/models"
	"github.com/fireguard/booking-payments/pkg/enums"
)

// Reason codes explaining why a booking cannot be paid out.
const (
	ReasonPaymentMissing      = "payment_missing"
	ReasonPaymentNotSettled   = "payment_not_settled"
	ReasonPaymentRefunded     = "payment_refunded"
	ReasonDeliverablesMissing = "deliverables_missing"
	ReasonBookingTerminated   = "booking_terminated"
	ReasonPayoutExists        = "payout_exists"
)

type Reason struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Missing []enums.DeliverableType `json:"missing,omitempty"`
}

type Eligibility struct {
	Eligible    bool               `json:"eligible"`
	Status      enums.PayoutStatus `json:"status"`
	Reasons     []Reason           `json:"reasons"`
	AmountCents int64              `json:"amountCents"`
}

// Evaluate reports whether a payout may be created for the booking. Every
// failing condition is listed, not just the first.
func Evaluate(b *models.Booking) Eligibility {
	result := Eligibility{Reasons: []Reason{}}

	payment := b.CurrentPayment()
	switch {
	case payment == nil:
		result.Reasons = append(result.Reasons, Reason{Code: ReasonPaymentMissing, Message: "booking has no payment"})
	case payment.Status == enums.PaymentStatusRefunded:
		result.Reasons = append(result.Reasons, Reason{Code: ReasonPaymentRefunded, Message: "payment has been refunded"})
	case payment.Status == enums.PaymentStatusPartiallyRefunded && MaxPayableCents(payment) <= 0:
		result.Reasons = append(result.Reasons, Reason{Code: ReasonPaymentRefunded, Message: "refunds exceed professional earnings"})
	case !payment.Status.Settled():
		result.Reasons = append(result.Reasons, Reason{Code: ReasonPaymentNotSettled, Message: "payment has not succeeded"})
	}

	if !bookings.WorkComplete(bookings.SnapshotOf(b)) {
		result.Reasons = append(result.Reasons, Reason{
			Code:    ReasonDeliverablesMissing,
			Message: "required deliverables not submitted",
			Missing: b.MissingDeliverables(),
		})
	}
	if b.Termination != enums.TerminationNone {
		result.Reasons = append(result.Reasons, Reason{Code: ReasonBookingTerminated, Message: "booking is " + string(b.Termination)})
	}
	if b.Payout != nil {
		result.Reasons = append(result.Reasons, Reason{Code: ReasonPayoutExists, Message: "payout already " + string(b.Payout.Status)})
	}

	if payment != nil {
		result.AmountCents = PayableEarningsCents(payment)
	}
	result.Eligible = len(result.Reasons) == 0
	switch {
	case b.Payout != nil:
		result.Status = b.Payout.Status
	case result.Eligible:
		result.Status = enums.PayoutStatusEligible
	default:
		result.Status = enums.PayoutStatusNotEligible
	}
	return result
}

// PayableEarningsCents is the frozen earnings, reduced to what is still
// payable once refunds eat into them.
func PayableEarningsCents(payment *models.Payment) int64 {
	if payment == nil {
		return 0
	}
	if !payment.Status.Settled() {
		return payment.EarningsCents
	}
	return min(payment.EarningsCents, MaxPayableCents(payment))
}

// MaxPayableCents is what the professional may still receive:
// payment - commission - refunded.
func MaxPayableCents(payment *models.Payment) int64 {
	if payment == nil || !payment.Status.Settled() {
		return 0
	}
	remaining := payment.AmountCents - payment.CommissionCents - payment.RefundedCents
	if remaining < 0 {
		return 0
	}
	return remaining
}
