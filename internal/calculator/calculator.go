// Package calculator implements the solar-economics formulas behind the
// site's system-size, payback and battery calculators.
//
// The formula functions (SystemSize, Payback, Battery) are pure and perform
// no validation: NaN and Inf flow through exactly as the arithmetic produces
// them. Input hardening lives at the string boundary (ParseSystemSizeForm and
// friends), which is what the HTTP API and CLI use.
package calculator

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	// SystemEfficiency models inverter, wiring and soiling losses.
	SystemEfficiency = 0.8
	// DaysPerMonth is the flat month length used to turn monthly usage into daily usage.
	DaysPerMonth = 30
	// DIYCostPerKW is the materials-only price of 1 kW of panels ($1.30/W).
	DIYCostPerKW = 1300
	// TaxCreditFraction is the share of system cost recovered through the federal credit.
	TaxCreditFraction = 0.3

	// EscalationMultiplier is applied once to 25 years of savings. It is
	// intentionally not compounded per year.
	EscalationMultiplier = 1.03
	// LifetimeYears is the horizon of the payback projection.
	LifetimeYears = 25

	// BatterySafetyBuffer oversizes the storage bank by 20%.
	BatterySafetyBuffer = 1.2
	// BatteryCostPerKWh is the installed cost assumption for storage.
	BatteryCostPerKWh = 1000
	// PowerwallCapacityKWh is the usable capacity of one reference battery unit.
	PowerwallCapacityKWh = 13.5
)

// Round rounds the shortest decimal form of x to places decimals, half away
// from zero, so 1.005 rounds to 1.01. Rounding the binary value instead, as
// math.Round(x*100)/100 does, can differ on such ties. NaN and Inf are
// returned unchanged since decimal cannot represent them.
func Round(x float64, places int32) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}
