package calculator

// SystemSizeInput holds the parsed inputs of the system-size calculator.
type SystemSizeInput struct {
	MonthlyBill     float64 `json:"monthly_bill"`     // USD per month
	ElectricityRate float64 `json:"electricity_rate"` // USD per kWh
	SunHours        float64 `json:"sun_hours"`        // peak sun hours per day
}

// SystemSizeResult is the output of SystemSize. Money values are raw numbers;
// formatting is left to the caller.
type SystemSizeResult struct {
	MonthlyUsageKWh         float64 `json:"monthly_usage_kwh"`
	DailyUsageKWh           float64 `json:"daily_usage_kwh"`
	SystemSizeKW            float64 `json:"system_size_kw"`
	AnnualProductionKWh     float64 `json:"annual_production_kwh"`
	AnnualSavingsUSD        float64 `json:"annual_savings_usd"`
	EstimatedCostUSD        float64 `json:"estimated_cost_usd"`
	EstimatedCostWithCredit float64 `json:"estimated_cost_with_credit_usd"`
}

// SystemSize sizes a grid-tied array that offsets the given monthly bill.
// Production is computed from the rounded system size, matching what the
// visitor sees on screen.
func SystemSize(in SystemSizeInput) SystemSizeResult {
	monthlyUsage := in.MonthlyBill / in.ElectricityRate
	dailyUsage := monthlyUsage / DaysPerMonth
	size := Round(dailyUsage/in.SunHours/SystemEfficiency, 2)
	production := Round(size*in.SunHours*365*SystemEfficiency, 0)
	savings := Round(production*in.ElectricityRate, 0)
	cost := size * DIYCostPerKW

	return SystemSizeResult{
		MonthlyUsageKWh:         monthlyUsage,
		DailyUsageKWh:           dailyUsage,
		SystemSizeKW:            size,
		AnnualProductionKWh:     production,
		AnnualSavingsUSD:        savings,
		EstimatedCostUSD:        cost,
		EstimatedCostWithCredit: cost * (1 - TaxCreditFraction),
	}
}
