package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fireguard/booking-payments/pkg/enums"
	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
)

func newCalculator(t *testing.T) *Calculator {
	t.Helper()
	calc, err := NewCalculator(DefaultTable())
	if err != nil {
		t.Fatalf("NewCalculator: %v", err)
	}
	return calc
}

func sizePtr(v enums.PropertySize) *enums.PropertySize { return &v }
func riskPtr(v enums.RiskLevel) *enums.RiskLevel       { return &v }

func TestComputePriceAssessment(t *testing.T) {
	calc := newCalculator(t)
	price, err := calc.ComputePrice(enums.ServiceFireRiskAssessment, Attributes{
		BasePriceCents: 20000,
		PropertySize:   sizePtr(enums.PropertySizeMedium),
		RiskLevel:      riskPtr(enums.RiskLevelHigh),
	})
	if err != nil {
		t.Fatalf("ComputePrice: %v", err)
	}
	// 20000 * 1.25 * 1.35 = 33750
	if price != 33750 {
		t.Fatalf("expected 33750, got %d", price)
	}
}

func TestComputePriceRoundsToCent(t *testing.T) {
	calc := newCalculator(t)
	price, err := calc.ComputePrice(enums.ServiceFireSafetyAudit, Attributes{
		BasePriceCents: 999,
		PropertySize:   sizePtr(enums.PropertySizeSmall),
		RiskLevel:      riskPtr(enums.RiskLevelMedium),
	})
	if err != nil {
		t.Fatalf("ComputePrice: %v", err)
	}
	// 999 * 1.15 = 1148.85
	if price != 1149 {
		t.Fatalf("expected 1149, got %d", price)
	}
}

func TestComputePriceFlatRateIgnoresAttributes(t *testing.T) {
	calc := newCalculator(t)
	for _, st := range []enums.ServiceType{enums.ServiceConsultation, enums.ServiceEquipmentDelivery, enums.ServiceTraining} {
		price, err := calc.ComputePrice(st, Attributes{
			BasePriceCents: 12345,
			PropertySize:   sizePtr(enums.PropertySizeVeryLarge),
			RiskLevel:      riskPtr(enums.RiskLevelCritical),
		})
		if err != nil {
			t.Fatalf("%s: %v", st, err)
		}
		if price != 12345 {
			t.Fatalf("%s: expected base price unchanged, got %d", st, price)
		}
	}
}

func TestComputePriceMonotonic(t *testing.T) {
	calc := newCalculator(t)
	for _, st := range enums.ServiceTypes() {
		for _, base := range []int64{0, 1, 999, 15000, 123457} {
			prevBySize := int64(-1)
			for _, size := range enums.PropertySizes() {
				prevByRisk := int64(-1)
				for _, risk := range enums.RiskLevels() {
					price, err := calc.ComputePrice(st, Attributes{
						BasePriceCents: base,
						PropertySize:   sizePtr(size),
						RiskLevel:      riskPtr(risk),
					})
					if err != nil {
						t.Fatalf("%s/%s/%s: %v", st, size, risk, err)
					}
					if price < prevByRisk {
						t.Fatalf("%s base=%d size=%s: price decreased with risk %s (%d < %d)", st, base, size, risk, price, prevByRisk)
					}
					prevByRisk = price
				}
				lowRisk, _ := calc.ComputePrice(st, Attributes{
					BasePriceCents: base,
					PropertySize:   sizePtr(size),
					RiskLevel:      riskPtr(enums.RiskLevelLow),
				})
				if lowRisk < prevBySize {
					t.Fatalf("%s base=%d: price decreased with size %s", st, base, size)
				}
				prevBySize = lowRisk
			}
		}
	}
}

func TestComputePriceInvalidInput(t *testing.T) {
	calc := newCalculator(t)
	bogusSize := enums.PropertySize("huge")
	cases := map[string]struct {
		service enums.ServiceType
		attrs   Attributes
	}{
		"negative base":   {enums.ServiceConsultation, Attributes{BasePriceCents: -1}},
		"unknown service": {enums.ServiceType("chimney_sweep"), Attributes{BasePriceCents: 100}},
		"missing size":    {enums.ServiceFireRiskAssessment, Attributes{BasePriceCents: 100, RiskLevel: riskPtr(enums.RiskLevelLow)}},
		"missing risk":    {enums.ServiceFireRiskAssessment, Attributes{BasePriceCents: 100, PropertySize: sizePtr(enums.PropertySizeSmall)}},
		"unknown size":    {enums.ServiceEquipmentInspection, Attributes{BasePriceCents: 100, PropertySize: &bogusSize, RiskLevel: riskPtr(enums.RiskLevelLow)}},
	}
	for name, tc := range cases {
		price, err := calc.ComputePrice(tc.service, tc.attrs)
		if err == nil {
			t.Fatalf("%s: expected error, got price %d", name, price)
		}
		if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidPrice) {
			t.Fatalf("%s: expected INVALID_PRICING_INPUT, got %v", name, err)
		}
	}
}

func TestNewCalculatorRejectsNonMonotonicTable(t *testing.T) {
	table := DefaultTable()
	table.Risk[enums.RiskLevelCritical] = decimal.RequireFromString("1.10")
	if _, err := NewCalculator(table); err == nil {
		t.Fatal("expected non-monotonic table to be rejected")
	}

	table = DefaultTable()
	delete(table.Size, enums.PropertySizeLarge)
	if _, err := NewCalculator(table); err == nil {
		t.Fatal("expected missing bucket to be rejected")
	}
}

func TestTableWithOverrides(t *testing.T) {
	base := DefaultTable()
	table, err := base.WithOverrides(
		map[string]decimal.Decimal{"very_large": decimal.RequireFromString("2.50")},
		map[string]decimal.Decimal{"critical": decimal.RequireFromString("1.80")},
	)
	if err != nil {
		t.Fatalf("WithOverrides: %v", err)
	}
	if !table.Size[enums.PropertySizeVeryLarge].Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("override not applied: %s", table.Size[enums.PropertySizeVeryLarge])
	}
	if !base.Size[enums.PropertySizeVeryLarge].Equal(decimal.RequireFromString("2.0")) {
		t.Fatal("base table must not be mutated")
	}
	if _, err := NewCalculator(table); err != nil {
		t.Fatalf("overridden table should stay valid: %v", err)
	}

	if _, err := base.WithOverrides(map[string]decimal.Decimal{"huge": decimal.NewFromInt(3)}, nil); err == nil {
		t.Fatal("expected unknown bucket to be rejected")
	}

	shrunk, err := base.WithOverrides(map[string]decimal.Decimal{"large": decimal.RequireFromString("0.9")}, nil)
	if err != nil {
		t.Fatalf("WithOverrides: %v", err)
	}
	if _, err := NewCalculator(shrunk); err == nil {
		t.Fatal("expected override breaking monotonicity to be rejected")
	}
}
