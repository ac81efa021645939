package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fireguard/booking-payments/pkg/enums"
)

// Gateway call outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeDeclined = "declined"
)

// BookingMetrics counts booking status transitions and gateway calls.
type BookingMetrics struct {
	transitions  *prometheus.CounterVec
	gatewayCalls *prometheus.CounterVec
	payouts      *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	if reg == nil {
		return &BookingMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "booking_transitions_total",
		Help:      "Booking status transitions by source and target status.",
	}, []string{"from", "to"})
	gatewayCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_calls_total",
		Help:      "Outbound gateway calls by operation and outcome.",
	}, []string{"operation", "outcome"})
	payouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payout_status_total",
		Help:      "Payout status changes by resulting status.",
	}, []string{"status"})
	reg.MustRegister(transitions, gatewayCalls, payouts)
	return &BookingMetrics{
		transitions:  transitions,
		gatewayCalls: gatewayCalls,
		payouts:      payouts,
	}
}

func (m *BookingMetrics) BookingTransition(from, to enums.BookingStatus) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(string(from)), normalizeLabel(string(to))).Inc()
}

func (m *BookingMetrics) GatewayCall(operation, outcome string) {
	if m == nil || m.gatewayCalls == nil {
		return
	}
	m.gatewayCalls.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

func (m *BookingMetrics) PayoutStatus(status enums.PayoutStatus) {
	if m == nil || m.payouts == nil {
		return
	}
	m.payouts.WithLabelValues(normalizeLabel(string(status))).Inc()
}
