package bookings

import (
	"github.com/fireguard/booking-payments/pkg/db/models"
	"github.com/fireguard/booking-payments/pkg/enums"
)

// Snapshot is everything the booking status depends on.
type Snapshot struct {
	Termination   enums.BookingTermination
	PaymentStatus *enums.PaymentStatus
	PayoutStatus  *enums.PayoutStatus
	Submitted     []enums.DeliverableType
	Required      []enums.DeliverableType
}

// SnapshotOf captures the derivation inputs of a booking.
func SnapshotOf(b *models.Booking) Snapshot {
	snap := Snapshot{
		Termination: b.Termination,
		Submitted:   b.SubmittedTypes(),
		Required:    append([]enums.DeliverableType(nil), b.RequiredDeliverables...),
	}
	if payment := b.CurrentPayment(); payment != nil {
		status := payment.Status
		snap.PaymentStatus = &status
	}
	if b.Payout != nil {
		status := b.Payout.Status
		snap.PayoutStatus = &status
	}
	return snap
}

// WorkComplete reports whether every required deliverable was submitted.
func WorkComplete(s Snapshot) bool {
	if len(s.Required) == 0 {
		return false
	}
	submitted := make(map[enums.DeliverableType]struct{}, len(s.Submitted))
	for _, d := range s.Submitted {
		submitted[d] = struct{}{}
	}
	for _, r := range s.Required {
		if _, ok := submitted[r]; !ok {
			return false
		}
	}
	return true
}

// DeriveStatus is the only definition of booking status.
func DeriveStatus(s Snapshot) enums.BookingStatus {
	switch s.Termination {
	case enums.TerminationClosed:
		return enums.BookingStatusClosed
	case enums.TerminationCancelled:
		return enums.BookingStatusCancelled
	}

	if s.PaymentStatus == nil {
		return enums.BookingStatusCreated
	}
	switch *s.PaymentStatus {
	case enums.PaymentStatusRefunded:
		if WorkComplete(s) {
			return enums.BookingStatusCompleted
		}
		return enums.BookingStatusCancelled
	case enums.PaymentStatusSucceeded, enums.PaymentStatusPartiallyRefunded:
		if WorkComplete(s) {
			return enums.BookingStatusCompleted
		}
		if len(s.Submitted) > 0 {
			return enums.BookingStatusInProgress
		}
		return enums.BookingStatusConfirmed
	default:
		return enums.BookingStatusCreated
	}
}

// Refresh writes the derived status onto the booking and reports the
// previous value.
func Refresh(b *models.Booking) (enums.BookingStatus, bool) {
	previous := b.Status
	b.Status = DeriveStatus(SnapshotOf(b))
	return previous, previous != b.Status
}
