package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/fireguard/booking-payments/pkg/enums"
)

type BookingCreatedEvent struct {
	BookingID       uuid.UUID         `json:"bookingId"`
	CustomerID      uuid.UUID         `json:"customerId"`
	ProfessionalID  uuid.UUID         `json:"professionalId"`
	ServiceType     enums.ServiceType `json:"serviceType"`
	FinalPriceCents int64             `json:"finalPriceCents"`
}

type BookingStatusChangedEvent struct {
	BookingID uuid.UUID           `json:"bookingId"`
	From      enums.BookingStatus `json:"from"`
	To        enums.BookingStatus `json:"to"`
}

type CheckoutStartedEvent struct {
	BookingID   uuid.UUID `json:"bookingId"`
	PaymentID   uuid.UUID `json:"paymentId"`
	Attempt     int       `json:"attempt"`
	AmountCents int64     `json:"amountCents"`
	SessionRef  string    `json:"sessionRef"`
}

type PaymentStatusChangedEvent struct {
	BookingID     uuid.UUID           `json:"bookingId"`
	PaymentID     uuid.UUID           `json:"paymentId"`
	From          enums.PaymentStatus `json:"from"`
	To            enums.PaymentStatus `json:"to"`
	AmountCents   int64               `json:"amountCents"`
	RefundedCents int64               `json:"refundedCents"`
}

type RefundEvent struct {
	BookingID       uuid.UUID            `json:"bookingId"`
	RefundRequestID uuid.UUID            `json:"refundRequestId"`
	AmountCents     int64                `json:"amountCents"`
	Reason          enums.RefundReason   `json:"reason"`
	Approval        enums.RefundApproval `json:"approval"`
}

type PayoutStatusChangedEvent struct {
	BookingID   uuid.UUID          `json:"bookingId"`
	PayoutID    uuid.UUID          `json:"payoutId"`
	From        enums.PayoutStatus `json:"from,omitempty"`
	To          enums.PayoutStatus `json:"to"`
	AmountCents int64              `json:"amountCents"`
	Forced      bool               `json:"forced,omitempty"`
}

type DeliverablesSynchronizedEvent struct {
	BookingID uuid.UUID               `json:"bookingId"`
	Submitted []enums.DeliverableType `json:"submitted"`
	Missing   []enums.DeliverableType `json:"missing"`
}

type CommissionRateUpdatedEvent struct {
	ServiceType enums.ServiceType `json:"serviceType"`
	Version     int               `json:"version"`
	Rate        string            `json:"rate"`
	ModifiedBy  uuid.UUID         `json:"modifiedBy"`
	ModifiedAt  time.Time         `json:"modifiedAt"`
}
