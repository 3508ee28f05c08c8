package states

import (
	"errors"
	"os"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// ErrUnknownState is returned for state codes without a landing page.
var ErrUnknownState = errors.New("unknown state")

// Profile holds the defaults shown on a state landing page and used to
// pre-fill the system-size calculator.
type Profile struct {
	Code             string  `json:"code"`
	Name             string  `json:"name"`
	AvgRateUSDPerKWh float64 `json:"avgRateUsdPerKwh"`
	PeakSunHours     float64 `json:"peakSunHours"`
	NetMetering      bool    `json:"netMetering"`
	Notes            string  `json:"notes,omitempty"`

	// RateSource is "default" or "rate-sheet" once resolved by Service.
	RateSource string `json:"rateSource,omitempty"`
}

const profilesEnv = "SOLARQUOTE_STATES_JSON"

func defaultProfiles() []Profile {
	return []Profile{
		{Code: "AZ", Name: "Arizona", AvgRateUSDPerKWh: 0.145, PeakSunHours: 6.5, Notes: "Net billing at the avoided-cost export rate"},
		{Code: "CA", Name: "California", AvgRateUSDPerKWh: 0.32, PeakSunHours: 5.8, Notes: "NEM 3.0 export rates favour adding storage"},
		{Code: "CO", Name: "Colorado", AvgRateUSDPerKWh: 0.15, PeakSunHours: 5.5, NetMetering: true},
		{Code: "FL", Name: "Florida", AvgRateUSDPerKWh: 0.155, PeakSunHours: 5.3, NetMetering: true, Notes: "Hurricane wind-load engineering required"},
		{Code: "MT", Name: "Montana", AvgRateUSDPerKWh: 0.125, PeakSunHours: 4.6, NetMetering: true},
		{Code: "NC", Name: "North Carolina", AvgRateUSDPerKWh: 0.135, PeakSunHours: 5.0, NetMetering: true},
		{Code: "NJ", Name: "New Jersey", AvgRateUSDPerKWh: 0.18, PeakSunHours: 4.6, NetMetering: true, Notes: "SREC-II certificates available"},
		{Code: "NV", Name: "Nevada", AvgRateUSDPerKWh: 0.14, PeakSunHours: 6.4},
		{Code: "NY", Name: "New York", AvgRateUSDPerKWh: 0.235, PeakSunHours: 4.3, NetMetering: true},
		{Code: "TN", Name: "Tennessee", AvgRateUSDPerKWh: 0.125, PeakSunHours: 4.8},
		{Code: "TX", Name: "Texas", AvgRateUSDPerKWh: 0.15, PeakSunHours: 5.4, Notes: "Buyback plans vary by retail provider"},
		{Code: "UT", Name: "Utah", AvgRateUSDPerKWh: 0.115, PeakSunHours: 5.7},
	}
}

// Profiles returns the state profiles, honouring a JSON override in
// SOLARQUOTE_STATES_JSON. An empty or invalid override falls back to the
// built-in list.
func Profiles() []Profile {
	raw := os.Getenv(profilesEnv)
	if raw == "" {
		return defaultProfiles()
	}
	var out []Profile
	if err := json.Unmarshal([]byte(raw), &out); err != nil || len(out) == 0 {
		return defaultProfiles()
	}
	for i := range out {
		out[i].Code = strings.ToUpper(out[i].Code)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Lookup finds a profile by two-letter code, case-insensitively.
func Lookup(code string) (Profile, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, p := range Profiles() {
		if p.Code == code {
			return p, true
		}
	}
	return Profile{}, false
}
