package calculator

import (
	"math"

	"github.com/dustin/go-humanize"
)

// FormatUSD renders a whole-dollar amount with thousands separators, e.g.
// "$12,506". Used by the CLI and the email digest; the API returns raw numbers.
func FormatUSD(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	if v < 0 {
		return "-$" + humanize.Commaf(math.Round(-v))
	}
	return "$" + humanize.Commaf(math.Round(v))
}

// FormatKWh renders an energy amount, e.g. "14,045 kWh".
func FormatKWh(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return humanize.Commaf(v) + " kWh"
}
