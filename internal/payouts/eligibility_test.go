package payouts

import (
	"testing"

	"github.com/google/uuid"

	"github.com/fireguard/booking-payments/pkg/db/models"
	"github.com/fireguard/booking-payments/pkg/enums"
)

func bookingWith(payment *enums.PaymentStatus, submitted ...enums.DeliverableType) *models.Booking {
	b := &models.Booking{
		ID:                   uuid.New(),
		ServiceType:          enums.ServiceFireRiskAssessment,
		Termination:          enums.TerminationNone,
		RequiredDeliverables: enums.ServiceFireRiskAssessment.RequiredDeliverables(),
	}
	if payment != nil {
		b.Payments = []models.Payment{{
			ID:              uuid.New(),
			Attempt:         1,
			Status:          *payment,
			AmountCents:     30000,
			CommissionCents: 4500,
			EarningsCents:   25500,
		}}
	}
	for _, d := range submitted {
		b.Deliverables = append(b.Deliverables, models.Deliverable{ID: uuid.New(), BookingID: b.ID, Type: d, ArtifactRef: "ref"})
	}
	return b
}

func hasReason(e Eligibility, code string) bool {
	for _, r := range e.Reasons {
		if r.Code == code {
			return true
		}
	}
	return false
}

func TestEvaluateEveryPaymentAndDeliverableCombination(t *testing.T) {
	deliverableSets := map[string][]enums.DeliverableType{
		"none":    nil,
		"partial": {enums.DeliverableAssessmentReport},
		"all":     {enums.DeliverableAssessmentReport, enums.DeliverableActionPlan},
	}
	payments := append([]enums.PaymentStatus{""}, enums.PaymentStatuses()...)

	for _, status := range payments {
		for name, set := range deliverableSets {
			status, set := status, set
			t.Run(string(status)+"/"+name, func(t *testing.T) {
				var ps *enums.PaymentStatus
				if status != "" {
					ps = &status
				}
				got := Evaluate(bookingWith(ps, set...))

				payable := status == enums.PaymentStatusSucceeded || status == enums.PaymentStatusPartiallyRefunded
				wantEligible := payable && name == "all"
				if got.Eligible != wantEligible {
					t.Fatalf("eligible=%v want %v reasons=%+v", got.Eligible, wantEligible, got.Reasons)
				}
				if got.Eligible && (len(got.Reasons) != 0 || got.Status != enums.PayoutStatusEligible) {
					t.Fatalf("eligible result must have no reasons, got %+v", got)
				}
				if !got.Eligible && (len(got.Reasons) == 0 || got.Status != enums.PayoutStatusNotEligible) {
					t.Fatalf("ineligible result must explain why, got %+v", got)
				}

				switch status {
				case "":
					if !hasReason(got, ReasonPaymentMissing) {
						t.Fatalf("expected payment_missing, got %+v", got.Reasons)
					}
				case enums.PaymentStatusRefunded:
					if !hasReason(got, ReasonPaymentRefunded) {
						t.Fatalf("expected payment_refunded, got %+v", got.Reasons)
					}
				case enums.PaymentStatusSucceeded, enums.PaymentStatusPartiallyRefunded:
				default:
					if !hasReason(got, ReasonPaymentNotSettled) {
						t.Fatalf("expected payment_not_settled, got %+v", got.Reasons)
					}
				}
				if (name != "all") != hasReason(got, ReasonDeliverablesMissing) {
					t.Fatalf("deliverables reason mismatch for %s: %+v", name, got.Reasons)
				}
			})
		}
	}
}

func TestEvaluateListsMissingDeliverables(t *testing.T) {
	status := enums.PaymentStatusSucceeded
	got := Evaluate(bookingWith(&status, enums.DeliverableAssessmentReport))
	for _, r := range got.Reasons {
		if r.Code == ReasonDeliverablesMissing {
			if len(r.Missing) != 1 || r.Missing[0] != enums.DeliverableActionPlan {
				t.Fatalf("unexpected missing list %v", r.Missing)
			}
			return
		}
	}
	t.Fatalf("expected deliverables_missing reason")
}

func TestEvaluateTerminatedAndExistingPayout(t *testing.T) {
	status := enums.PaymentStatusSucceeded
	b := bookingWith(&status, enums.DeliverableAssessmentReport, enums.DeliverableActionPlan)
	b.Termination = enums.TerminationCancelled
	if got := Evaluate(b); got.Eligible || !hasReason(got, ReasonBookingTerminated) {
		t.Fatalf("expected terminated booking to be ineligible, got %+v", got)
	}

	b = bookingWith(&status, enums.DeliverableAssessmentReport, enums.DeliverableActionPlan)
	b.Payout = &models.Payout{ID: uuid.New(), Status: enums.PayoutStatusScheduled}
	got := Evaluate(b)
	if got.Eligible || !hasReason(got, ReasonPayoutExists) || got.Status != enums.PayoutStatusScheduled {
		t.Fatalf("expected existing payout to be reported, got %+v", got)
	}
}

func TestEvaluatePartialRefundAgainstEarnings(t *testing.T) {
	cases := []struct {
		name       string
		refunded   int64
		eligible   bool
		wantAmount int64
	}{
		{"within commission", 1000, true, 25500},
		{"into earnings", 10000, true, 15500},
		{"exactly earnings", 25500, false, 0},
		{"past earnings", 28000, false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status := enums.PaymentStatusPartiallyRefunded
			b := bookingWith(&status, enums.DeliverableAssessmentReport, enums.DeliverableActionPlan)
			b.Payments[0].RefundedCents = tc.refunded

			got := Evaluate(b)
			if got.Eligible != tc.eligible {
				t.Fatalf("eligible=%v want %v reasons=%+v", got.Eligible, tc.eligible, got.Reasons)
			}
			if got.AmountCents != tc.wantAmount {
				t.Fatalf("expected amount %d, got %d", tc.wantAmount, got.AmountCents)
			}
			if !tc.eligible && !hasReason(got, ReasonPaymentRefunded) {
				t.Fatalf("expected payment_refunded, got %+v", got.Reasons)
			}
		})
	}
}

func TestMaxPayableCents(t *testing.T) {
	cases := []struct {
		name    string
		payment *models.Payment
		want    int64
	}{
		{"nil", nil, 0},
		{"pending", &models.Payment{Status: enums.PaymentStatusPending, AmountCents: 30000, CommissionCents: 4500}, 0},
		{"succeeded", &models.Payment{Status: enums.PaymentStatusSucceeded, AmountCents: 30000, CommissionCents: 4500}, 25500},
		{"partial", &models.Payment{Status: enums.PaymentStatusPartiallyRefunded, AmountCents: 30000, CommissionCents: 4500, RefundedCents: 10000}, 15500},
		{"refunded past earnings", &models.Payment{Status: enums.PaymentStatusPartiallyRefunded, AmountCents: 30000, CommissionCents: 4500, RefundedCents: 28000}, 0},
	}
	for _, tc := range cases {
		if got := MaxPayableCents(tc.payment); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}
