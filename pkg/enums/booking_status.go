package enums

import "fmt"

// BookingStatus is always derived; it is never written directly.
type BookingStatus string

const (
	BookingStatusCreated    BookingStatus = "created"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusClosed     BookingStatus = "closed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

var validBookingStatuses = []BookingStatus{
	BookingStatusCreated,
	BookingStatusConfirmed,
	BookingStatusInProgress,
	BookingStatusCompleted,
	BookingStatusClosed,
	BookingStatusCancelled,
}

func (b BookingStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BookingStatus.
func (b BookingStatus) IsValid() bool {
	for _, candidate := range validBookingStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (b BookingStatus) IsTerminal() bool {
	return b == BookingStatusClosed || b == BookingStatusCancelled
}

// Cancellable reports whether a booking in this status may be cancelled.
func (b BookingStatus) Cancellable() bool {
	switch b {
	case BookingStatusCreated, BookingStatusConfirmed, BookingStatusInProgress:
		return true
	default:
		return false
	}
}

// ParseBookingStatus converts raw input into a BookingStatus.
func ParseBookingStatus(value string) (BookingStatus, error) {
	for _, candidate := range validBookingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid booking status %q", value)
}

// BookingTermination records an explicit end-of-life decision on a booking.
type BookingTermination string

const (
	TerminationNone      BookingTermination = "none"
	TerminationCancelled BookingTermination = "cancelled"
	TerminationClosed    BookingTermination = "closed"
)

func (t BookingTermination) IsValid() bool {
	switch t {
	case TerminationNone, TerminationCancelled, TerminationClosed:
		return true
	default:
		return false
	}
}
