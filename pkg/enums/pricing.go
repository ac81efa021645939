package enums

import "fmt"

// PropertySize buckets the premises being assessed. Order matters: each
// value is at least as large as the previous one.
type PropertySize string

const (
	PropertySizeSmall     PropertySize = "small"
	PropertySizeMedium    PropertySize = "medium"
	PropertySizeLarge     PropertySize = "large"
	PropertySizeVeryLarge PropertySize = "very_large"
)

var validPropertySizes = []PropertySize{
	PropertySizeSmall,
	PropertySizeMedium,
	PropertySizeLarge,
	PropertySizeVeryLarge,
}

// PropertySizes returns sizes in ascending order.
func PropertySizes() []PropertySize {
	out := make([]PropertySize, len(validPropertySizes))
	copy(out, validPropertySizes)
	return out
}

func (p PropertySize) IsValid() bool {
	for _, candidate := range validPropertySizes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePropertySize converts raw input into a PropertySize.
func ParsePropertySize(value string) (PropertySize, error) {
	for _, candidate := range validPropertySizes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid property size %q", value)
}

// RiskLevel is the assessed fire risk of the premises, ascending.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

var validRiskLevels = []RiskLevel{
	RiskLevelLow,
	RiskLevelMedium,
	RiskLevelHigh,
	RiskLevelCritical,
}

// RiskLevels returns risk levels in ascending order.
func RiskLevels() []RiskLevel {
	out := make([]RiskLevel, len(validRiskLevels))
	copy(out, validRiskLevels)
	return out
}

func (r RiskLevel) IsValid() bool {
	for _, candidate := range validRiskLevels {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRiskLevel converts raw input into a RiskLevel.
func ParseRiskLevel(value string) (RiskLevel, error) {
	for _, candidate := range validRiskLevels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid risk level %q", value)
}
