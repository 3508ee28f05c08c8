package calculator

// PaybackInput holds the parsed inputs of the payback calculator.
type PaybackInput struct {
	SystemCost     float64 `json:"system_cost"` // after tax credit
	MonthlySavings float64 `json:"monthly_savings"`
}

// PaybackResult is the output of Payback.
type PaybackResult struct {
	AnnualSavingsUSD   float64 `json:"annual_savings_usd"`
	PaybackYears       float64 `json:"payback_years"`
	Lifetime25YearsUSD float64 `json:"lifetime_25_years_usd"`
	ROIPercent         float64 `json:"roi_percent"`
	NetProfitUSD       float64 `json:"net_profit_usd"`
}

// Payback projects simple payback and 25-year return. Rate escalation is a
// single 3% uplift on the whole horizon, not an annual compounding.
func Payback(in PaybackInput) PaybackResult {
	annual := in.MonthlySavings * 12
	lifetime := Round(annual*LifetimeYears*EscalationMultiplier, 0)

	return PaybackResult{
		AnnualSavingsUSD:   annual,
		PaybackYears:       Round(in.SystemCost/annual, 1),
		Lifetime25YearsUSD: lifetime,
		ROIPercent:         Round((lifetime-in.SystemCost)/in.SystemCost*100, 0),
		NetProfitUSD:       Round(lifetime-in.SystemCost, 0),
	}
}
