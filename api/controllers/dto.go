package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/fireguard/booking-payments/pkg/db/models"
	"github.com/fireguard/booking-payments/pkg/enums"
)

type BookingResponse struct {
	ID                    uuid.UUID               `json:"id"`
	CustomerID            uuid.UUID               `json:"customer_id"`
	ProfessionalID        uuid.UUID               `json:"professional_id"`
	ServiceType           enums.ServiceType       `json:"service_type"`
	BasePriceCents        int64                   `json:"base_price_cents"`
	FinalPriceCents       int64                   `json:"final_price_cents"`
	PropertySize          *enums.PropertySize     `json:"property_size,omitempty"`
	RiskLevel             *enums.RiskLevel        `json:"risk_level,omitempty"`
	Status                enums.BookingStatus     `json:"status"`
	TerminationReason     *string                 `json:"termination_reason,omitempty"`
	RequiredDeliverables  []enums.DeliverableType `json:"required_deliverables"`
	SubmittedDeliverables []enums.DeliverableType `json:"submitted_deliverables"`
	Payment               *PaymentResponse        `json:"payment,omitempty"`
	Payout                *PayoutResponse         `json:"payout,omitempty"`
	RefundRequests        []RefundRequestResponse `json:"refund_requests"`
	Version               int64                   `json:"version"`
	CreatedAt             time.Time               `json:"created_at"`
	UpdatedAt             time.Time               `json:"updated_at"`
}

type PaymentResponse struct {
	ID                uuid.UUID           `json:"id"`
	Attempt           int                 `json:"attempt"`
	Status            enums.PaymentStatus `json:"status"`
	AmountCents       int64               `json:"amount_cents"`
	RefundedCents     int64               `json:"refunded_cents"`
	CommissionCents   int64               `json:"commission_cents"`
	EarningsCents     int64               `json:"earnings_cents"`
	CommissionRate    string              `json:"commission_rate"`
	CommissionVersion int                 `json:"commission_version"`
	SessionRef        *string             `json:"session_ref,omitempty"`
	FailureReason     *string             `json:"failure_reason,omitempty"`
	SucceededAt       *time.Time          `json:"succeeded_at,omitempty"`
}

type PayoutResponse struct {
	ID               uuid.UUID          `json:"id"`
	Status           enums.PayoutStatus `json:"status"`
	AmountCents      int64              `json:"amount_cents"`
	AccountRef       string             `json:"account_ref"`
	ExternalRef      *string            `json:"external_ref,omitempty"`
	Attempts         int                `json:"attempts"`
	LastError        *string            `json:"last_error,omitempty"`
	Forced           bool               `json:"forced"`
	HoldReason       *string            `json:"hold_reason,omitempty"`
	ClawbackRequired bool               `json:"clawback_required"`
	ScheduledAt      time.Time          `json:"scheduled_at"`
	ExecutedAt       *time.Time         `json:"executed_at,omitempty"`
}

type RefundRequestResponse struct {
	ID             uuid.UUID            `json:"id"`
	PaymentID      uuid.UUID            `json:"payment_id"`
	AmountCents    int64                `json:"amount_cents"`
	Reason         enums.RefundReason   `json:"reason"`
	Note           *string              `json:"note,omitempty"`
	RequestedBy    uuid.UUID            `json:"requested_by"`
	Approval       enums.RefundApproval `json:"approval"`
	ResolvedBy     *uuid.UUID           `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time           `json:"resolved_at,omitempty"`
	ResolutionNote *string              `json:"resolution_note,omitempty"`
	AdminOverride  bool                 `json:"admin_override"`
	AppliedAt      *time.Time           `json:"applied_at,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

func NewBookingResponse(b *models.Booking) BookingResponse {
	resp := BookingResponse{
		ID:                    b.ID,
		CustomerID:            b.CustomerID,
		ProfessionalID:        b.ProfessionalID,
		ServiceType:           b.ServiceType,
		BasePriceCents:        b.BasePriceCents,
		FinalPriceCents:       b.FinalPriceCents,
		PropertySize:          b.PropertySize,
		RiskLevel:             b.RiskLevel,
		Status:                b.Status,
		TerminationReason:     b.TerminationReason,
		RequiredDeliverables:  append([]enums.DeliverableType{}, b.RequiredDeliverables...),
		SubmittedDeliverables: b.SubmittedTypes(),
		RefundRequests:        make([]RefundRequestResponse, 0, len(b.RefundRequests)),
		Version:               b.Version,
		CreatedAt:             b.CreatedAt,
		UpdatedAt:             b.UpdatedAt,
	}
	if p := b.CurrentPayment(); p != nil {
		payment := NewPaymentResponse(p)
		resp.Payment = &payment
	}
	if b.Payout != nil {
		payout := NewPayoutResponse(b.Payout)
		resp.Payout = &payout
	}
	for i := range b.RefundRequests {
		resp.RefundRequests = append(resp.RefundRequests, NewRefundRequestResponse(&b.RefundRequests[i]))
	}
	return resp
}

func NewPaymentResponse(p *models.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                p.ID,
		Attempt:           p.Attempt,
		Status:            p.Status,
		AmountCents:       p.AmountCents,
		RefundedCents:     p.RefundedCents,
		CommissionCents:   p.CommissionCents,
		EarningsCents:     p.EarningsCents,
		CommissionRate:    p.CommissionRate.String(),
		CommissionVersion: p.CommissionVersion,
		SessionRef:        p.SessionRef,
		FailureReason:     p.FailureReason,
		SucceededAt:       p.SucceededAt,
	}
}

func NewPayoutResponse(p *models.Payout) PayoutResponse {
	return PayoutResponse{
		ID:               p.ID,
		Status:           p.Status,
		AmountCents:      p.AmountCents,
		AccountRef:       p.AccountRef,
		ExternalRef:      p.ExternalRef,
		Attempts:         p.Attempts,
		LastError:        p.LastError,
		Forced:           p.Forced,
		HoldReason:       p.HoldReason,
		ClawbackRequired: p.ClawbackRequired,
		ScheduledAt:      p.ScheduledAt,
		ExecutedAt:       p.ExecutedAt,
	}
}

func NewRefundRequestResponse(r *models.RefundRequest) RefundRequestResponse {
	return RefundRequestResponse{
		ID:             r.ID,
		PaymentID:      r.PaymentID,
		AmountCents:    r.AmountCents,
		Reason:         r.Reason,
		Note:           r.Note,
		RequestedBy:    r.RequestedBy,
		Approval:       r.Approval,
		ResolvedBy:     r.ResolvedBy,
		ResolvedAt:     r.ResolvedAt,
		ResolutionNote: r.ResolutionNote,
		AdminOverride:  r.AdminOverride,
		AppliedAt:      r.AppliedAt,
		CreatedAt:      r.CreatedAt,
	}
}
