package calculator

import "math"

// BatteryInput holds the parsed inputs of the battery sizing calculator.
type BatteryInput struct {
	CriticalLoadsW float64 `json:"critical_loads_w"`
	BackupHours    float64 `json:"backup_hours"`
}

// BatteryResult is the output of Battery.
type BatteryResult struct {
	EnergyNeededKWh    float64 `json:"energy_needed_kwh"`
	RecommendedSizeKWh float64 `json:"recommended_size_kwh"`
	EstimatedCostUSD   float64 `json:"estimated_cost_usd"`
	NumberOfPowerwalls int     `json:"number_of_powerwalls"`
}

// Battery sizes backup storage for the given critical loads.
func Battery(in BatteryInput) BatteryResult {
	energy := Round(in.CriticalLoadsW*in.BackupHours/1000, 1)
	recommended := Round(energy*BatterySafetyBuffer, 1)

	return BatteryResult{
		EnergyNeededKWh:    energy,
		RecommendedSizeKWh: recommended,
		EstimatedCostUSD:   Round(recommended*BatteryCostPerKWh, 0),
		NumberOfPowerwalls: int(math.Ceil(recommended / PowerwallCapacityKWh)),
	}
}
