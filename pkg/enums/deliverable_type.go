package enums

import "fmt"

// DeliverableType is a submission the professional owes for a booking.
type DeliverableType string

const (
	DeliverableAssessmentReport      DeliverableType = "assessment_report"
	DeliverableActionPlan            DeliverableType = "action_plan"
	DeliverableInspectionCertificate DeliverableType = "inspection_certificate"
	DeliverableConsultationNotes     DeliverableType = "consultation_notes"
	DeliverableAttendanceRecord      DeliverableType = "attendance_record"
	DeliverableDeliveryConfirmation  DeliverableType = "delivery_confirmation"
	DeliverablePhotoEvidence         DeliverableType = "photo_evidence"
)

var validDeliverableTypes = []DeliverableType{
	DeliverableAssessmentReport,
	DeliverableActionPlan,
	DeliverableInspectionCertificate,
	DeliverableConsultationNotes,
	DeliverableAttendanceRecord,
	DeliverableDeliveryConfirmation,
	DeliverablePhotoEvidence,
}

// IsValid reports whether the value is a known DeliverableType.
func (d DeliverableType) IsValid() bool {
	for _, candidate := range validDeliverableTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDeliverableType converts raw input into a DeliverableType.
func ParseDeliverableType(value string) (DeliverableType, error) {
	for _, candidate := range validDeliverableTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid deliverable type %q", value)
}
