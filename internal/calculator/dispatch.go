package calculator

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownKind is returned for calculator names outside the Kind enum.
var ErrUnknownKind = errors.New("unknown calculator")

// Kind selects one of the three calculators.
type Kind int

const (
	KindSystemSize Kind = iota + 1
	KindPayback
	KindBattery
)

// Kinds lists every calculator in display order.
func Kinds() []Kind {
	return []Kind{KindSystemSize, KindPayback, KindBattery}
}

func (k Kind) String() string {
	switch k {
	case KindSystemSize:
		return "system-size"
	case KindPayback:
		return "payback"
	case KindBattery:
		return "battery"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps a URL or CLI name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "system-size", "systemsize", "size":
		return KindSystemSize, nil
	case "payback":
		return KindPayback, nil
	case "battery":
		return KindBattery, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// MarshalText lets Kind travel as its name in JSON.
func (k Kind) MarshalText() ([]byte, error) {
	switch k {
	case KindSystemSize, KindPayback, KindBattery:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
}

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Result is a tagged union: exactly one of the result pointers matching Kind
// is set.
type Result struct {
	Kind       Kind              `json:"kind"`
	SystemSize *SystemSizeResult `json:"system_size,omitempty"`
	Payback    *PaybackResult    `json:"payback,omitempty"`
	Battery    *BatteryResult    `json:"battery,omitempty"`
}

// Calculate parses the raw form fields for kind and runs the matching
// calculator. Missing fields are treated as empty strings. Inputs whose
// result overflows to NaN or Inf fail with an *InputError.
func Calculate(kind Kind, fields map[string]string) (Result, error) {
	switch kind {
	case KindSystemSize:
		in, err := ParseSystemSizeForm(SystemSizeForm{
			MonthlyBill:     fields[FieldMonthlyBill],
			ElectricityRate: fields[FieldElectricityRate],
			SunHours:        fields[FieldSunHours],
		})
		if err != nil {
			return Result{}, err
		}
		out := SystemSize(in)
		switch {
		case !finite(out.MonthlyUsageKWh):
			return Result{}, outOfRange(FieldElectricityRate)
		case !finite(out.DailyUsageKWh, out.SystemSizeKW):
			return Result{}, outOfRange(FieldSunHours)
		case !finite(out.AnnualProductionKWh, out.AnnualSavingsUSD, out.EstimatedCostUSD, out.EstimatedCostWithCredit):
			return Result{}, outOfRange(FieldMonthlyBill)
		}
		return Result{Kind: kind, SystemSize: &out}, nil

	case KindPayback:
		in, err := ParsePaybackForm(PaybackForm{
			SystemCost:     fields[FieldSystemCost],
			MonthlySavings: fields[FieldMonthlySavings],
		})
		if err != nil {
			return Result{}, err
		}
		out := Payback(in)
		if !finite(out.AnnualSavingsUSD, out.PaybackYears, out.Lifetime25YearsUSD, out.ROIPercent, out.NetProfitUSD) {
			return Result{}, outOfRange(FieldMonthlySavings)
		}
		return Result{Kind: kind, Payback: &out}, nil

	case KindBattery:
		in, err := ParseBatteryForm(BatteryForm{
			CriticalLoads: fields[FieldCriticalLoads],
			BackupHours:   fields[FieldBackupHours],
		})
		if err != nil {
			return Result{}, err
		}
		out := Battery(in)
		if !finite(out.EnergyNeededKWh, out.RecommendedSizeKWh, out.EstimatedCostUSD) {
			return Result{}, outOfRange(FieldCriticalLoads)
		}
		return Result{Kind: kind, Battery: &out}, nil

	default:
		return Result{}, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
}

// finite reports whether every value is a real number. Parsed inputs are
// finite, but extreme magnitudes can still overflow inside a formula.
func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func outOfRange(field string) error {
	return &InputError{Field: field, Reason: "is out of range"}
}

// Fields returns the form field names a calculator reads, in form order.
func Fields(kind Kind) []string {
	switch kind {
	case KindSystemSize:
		return []string{FieldMonthlyBill, FieldElectricityRate, FieldSunHours}
	case KindPayback:
		return []string{FieldSystemCost, FieldMonthlySavings}
	case KindBattery:
		return []string{FieldCriticalLoads, FieldBackupHours}
	default:
		return nil
	}
}
