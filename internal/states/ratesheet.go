package states

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	pdf "github.com/ledongthuc/pdf"
)

// ErrNoEnergyCharge means the rate sheet text had no recognisable energy charge.
var ErrNoEnergyCharge = errors.New("rate sheet: no energy charge found")

// RateSheet is what we extract from a utility residential tariff.
type RateSheet struct {
	CustomerChargeUSD float64 `json:"customer_charge_usd"`
	EnergyUSDPerKWh   float64 `json:"energy_usd_per_kwh"`
	FuelUSDPerKWh     float64 `json:"fuel_usd_per_kwh"`
}

// TotalUSDPerKWh is the volumetric rate a customer pays per kWh.
func (r RateSheet) TotalUSDPerKWh() float64 {
	return r.EnergyUSDPerKWh + r.FuelUSDPerKWh
}

var (
	customerChargeRe = regexp.MustCompile(`(?i)Customer Charge[:\s]*\$?([0-9]+(?:\.[0-9]+)?)`)
	// Some utilities express energy charge directly in $/kWh.
	energyUSDRe = regexp.MustCompile(`(?i)Energy Charge[:\s]*\$?([0-9]*\.?[0-9]+)\s*(?:\$\s*)?per kWh`)
	// Others use cents per kWh.
	energyCentsRe = regexp.MustCompile(`(?i)Energy Charge[:\s]*([0-9]*\.?[0-9]+)\s*cents?\s*per kWh`)
	fuelUSDRe     = regexp.MustCompile(`(?i)Fuel (?:Charge|(?:Cost )?Adjustment)[:\s]*\$?([0-9]*\.?[0-9]+)\s*(?:\$\s*)?per kWh`)
	fuelCentsRe   = regexp.MustCompile(`(?i)Fuel (?:Charge|(?:Cost )?Adjustment)[:\s]*([0-9]*\.?[0-9]+)\s*cents?\s*per kWh`)
)

func parseFirstFloat(re *regexp.Regexp, s string) float64 {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseRateSheetText extracts rates from the plain text of a tariff using
// regex heuristics. Cents are normalised to USD.
func ParseRateSheetText(text string) (RateSheet, error) {
	rs := RateSheet{CustomerChargeUSD: parseFirstFloat(customerChargeRe, text)}

	if cents := parseFirstFloat(energyCentsRe, text); cents > 0 {
		rs.EnergyUSDPerKWh = cents / 100
	} else {
		rs.EnergyUSDPerKWh = parseFirstFloat(energyUSDRe, text)
	}
	if cents := parseFirstFloat(fuelCentsRe, text); cents > 0 {
		rs.FuelUSDPerKWh = cents / 100
	} else {
		rs.FuelUSDPerKWh = parseFirstFloat(fuelUSDRe, text)
	}

	if rs.EnergyUSDPerKWh <= 0 {
		return RateSheet{}, ErrNoEnergyCharge
	}
	return rs, nil
}

// ParseRateSheetPDF opens a tariff PDF, extracts its text and delegates to
// ParseRateSheetText.
func ParseRateSheetPDF(path string) (RateSheet, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return RateSheet{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	rc, err := r.GetPlainText()
	if err != nil {
		return RateSheet{}, fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return RateSheet{}, fmt.Errorf("read pdf text: %w", err)
	}
	return ParseRateSheetText(buf.String())
}

// writeFileAtomically writes r to path through a temp file in the same
// directory so readers never see a partial upload.
func writeFileAtomically(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
