package enums

import "fmt"

// ServiceType identifies the fire-safety service being booked.
type ServiceType string

const (
	ServiceFireRiskAssessment  ServiceType = "fire_risk_assessment"
	ServiceFireSafetyAudit     ServiceType = "fire_safety_audit"
	ServiceEquipmentInspection ServiceType = "equipment_inspection"
	ServiceConsultation        ServiceType = "consultation"
	ServiceTraining            ServiceType = "training"
	ServiceEquipmentDelivery   ServiceType = "equipment_delivery"
)

var validServiceTypes = []ServiceType{
	ServiceFireRiskAssessment,
	ServiceFireSafetyAudit,
	ServiceEquipmentInspection,
	ServiceConsultation,
	ServiceTraining,
	ServiceEquipmentDelivery,
}

// ServiceTypes returns every known service type.
func ServiceTypes() []ServiceType {
	out := make([]ServiceType, len(validServiceTypes))
	copy(out, validServiceTypes)
	return out
}

func (s ServiceType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ServiceType.
func (s ServiceType) IsValid() bool {
	for _, candidate := range validServiceTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsAssessment reports whether pricing for the service scales with
// property size and risk level.
func (s ServiceType) IsAssessment() bool {
	switch s {
	case ServiceFireRiskAssessment, ServiceFireSafetyAudit, ServiceEquipmentInspection:
		return true
	default:
		return false
	}
}

// RequiredDeliverables lists what the professional must submit before a
// booking of this type can complete.
func (s ServiceType) RequiredDeliverables() []DeliverableType {
	switch s {
	case ServiceFireRiskAssessment, ServiceFireSafetyAudit:
		return []DeliverableType{DeliverableAssessmentReport, DeliverableActionPlan}
	case ServiceEquipmentInspection:
		return []DeliverableType{DeliverableInspectionCertificate}
	case ServiceConsultation:
		return []DeliverableType{DeliverableConsultationNotes}
	case ServiceTraining:
		return []DeliverableType{DeliverableAttendanceRecord}
	case ServiceEquipmentDelivery:
		return []DeliverableType{DeliverableDeliveryConfirmation}
	default:
		return nil
	}
}

// ParseServiceType converts raw input into a ServiceType.
func ParseServiceType(value string) (ServiceType, error) {
	for _, candidate := range validServiceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid service type %q", value)
}
