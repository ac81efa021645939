package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fireguard/booking-payments/pkg/enums"
	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
)

// Attributes are the customer-selected inputs to a quote.
type Attributes struct {
	BasePriceCents int64               `json:"basePriceCents"`
	PropertySize   *enums.PropertySize `json:"propertySize,omitempty"`
	RiskLevel      *enums.RiskLevel    `json:"riskLevel,omitempty"`
}

// Table holds the multipliers applied to assessment-style services.
type Table struct {
	Size map[enums.PropertySize]decimal.Decimal
	Risk map[enums.RiskLevel]decimal.Decimal
}

// DefaultTable returns the platform multipliers.
func DefaultTable() Table {
	return Table{
		Size: map[enums.PropertySize]decimal.Decimal{
			enums.PropertySizeSmall:     decimal.RequireFromString("1.00"),
			enums.PropertySizeMedium:    decimal.RequireFromString("1.25"),
			enums.PropertySizeLarge:     decimal.RequireFromString("1.60"),
			enums.PropertySizeVeryLarge: decimal.RequireFromString("2.00"),
		},
		Risk: map[enums.RiskLevel]decimal.Decimal{
			enums.RiskLevelLow:      decimal.RequireFromString("1.00"),
			enums.RiskLevelMedium:   decimal.RequireFromString("1.15"),
			enums.RiskLevelHigh:     decimal.RequireFromString("1.35"),
			enums.RiskLevelCritical: decimal.RequireFromString("1.60"),
		},
	}
}

// Validate checks every bucket has a positive multiplier and that
// multipliers never decrease as size or risk grows.
func (t Table) Validate() error {
	prev := decimal.Zero
	for _, size := range enums.PropertySizes() {
		m, ok := t.Size[size]
		if !ok {
			return fmt.Errorf("missing size multiplier for %s", size)
		}
		if !m.IsPositive() || m.LessThan(prev) {
			return fmt.Errorf("size multiplier for %s must be positive and non-decreasing", size)
		}
		prev = m
	}
	prev = decimal.Zero
	for _, risk := range enums.RiskLevels() {
		m, ok := t.Risk[risk]
		if !ok {
			return fmt.Errorf("missing risk multiplier for %s", risk)
		}
		if !m.IsPositive() || m.LessThan(prev) {
			return fmt.Errorf("risk multiplier for %s must be positive and non-decreasing", risk)
		}
		prev = m
	}
	return nil
}

// WithOverrides returns a copy of t with the named buckets replaced. Keys
// are size or risk enum values; unknown keys are rejected.
func (t Table) WithOverrides(size, risk map[string]decimal.Decimal) (Table, error) {
	out := Table{
		Size: make(map[enums.PropertySize]decimal.Decimal, len(t.Size)),
		Risk: make(map[enums.RiskLevel]decimal.Decimal, len(t.Risk)),
	}
	for k, v := range t.Size {
		out.Size[k] = v
	}
	for k, v := range t.Risk {
		out.Risk[k] = v
	}
	for raw, m := range size {
		bucket, err := enums.ParsePropertySize(raw)
		if err != nil {
			return Table{}, err
		}
		out.Size[bucket] = m
	}
	for raw, m := range risk {
		bucket, err := enums.ParseRiskLevel(raw)
		if err != nil {
			return Table{}, err
		}
		out.Risk[bucket] = m
	}
	return out, nil
}

// Calculator turns service attributes into a final price in cents. It holds
// no mutable state and is safe for concurrent use.
type Calculator struct {
	table Table
}

func NewCalculator(table Table) (*Calculator, error) {
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("pricing table: %w", err)
	}
	return &Calculator{table: table}, nil
}

// ComputePrice returns the customer-facing price in cents. Assessment
// services scale the base by size and risk multipliers, rounded half away
// from zero to the cent. Flat-rate services return the base unchanged.
func (c *Calculator) ComputePrice(serviceType enums.ServiceType, attrs Attributes) (int64, error) {
	if !serviceType.IsValid() {
		return 0, invalidInput("service_type", fmt.Sprintf("unknown service type %q", serviceType))
	}
	if attrs.BasePriceCents < 0 {
		return 0, invalidInput("base_price_cents", "base price must not be negative")
	}
	if !serviceType.IsAssessment() {
		return attrs.BasePriceCents, nil
	}

	if attrs.PropertySize == nil {
		return 0, invalidInput("property_size", "property size is required for assessment services")
	}
	if attrs.RiskLevel == nil {
		return 0, invalidInput("risk_level", "risk level is required for assessment services")
	}
	sizeMul, ok := c.table.Size[*attrs.PropertySize]
	if !ok {
		return 0, invalidInput("property_size", fmt.Sprintf("unknown property size %q", *attrs.PropertySize))
	}
	riskMul, ok := c.table.Risk[*attrs.RiskLevel]
	if !ok {
		return 0, invalidInput("risk_level", fmt.Sprintf("unknown risk level %q", *attrs.RiskLevel))
	}

	price := decimal.NewFromInt(attrs.BasePriceCents).Mul(sizeMul).Mul(riskMul).Round(0)
	return price.IntPart(), nil
}

func invalidInput(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidPrice, message).WithDetails(map[string]any{
		"field": field,
	})
}
