package calculator

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidInput is matched by every *InputError.
var ErrInvalidInput = errors.New("invalid input")

// InputError reports which form field was rejected and why.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// Form field names, shared by the HTTP API, CLI flags and stored estimates.
const (
	FieldMonthlyBill     = "monthlyBill"
	FieldElectricityRate = "electricityRate"
	FieldSunHours        = "sunHours"
	FieldSystemCost      = "systemCost"
	FieldMonthlySavings  = "monthlySavings"
	FieldCriticalLoads   = "criticalLoads"
	FieldBackupHours     = "backupHours"
)

// SystemSizeForm is the system-size calculator input as typed into the form.
type SystemSizeForm struct {
	MonthlyBill     string `json:"monthlyBill"`
	ElectricityRate string `json:"electricityRate"`
	SunHours        string `json:"sunHours"`
}

// PaybackForm is the payback calculator input as typed into the form.
type PaybackForm struct {
	SystemCost     string `json:"systemCost"`
	MonthlySavings string `json:"monthlySavings"`
}

// BatteryForm is the battery calculator input as typed into the form.
type BatteryForm struct {
	CriticalLoads string `json:"criticalLoads"`
	BackupHours   string `json:"backupHours"`
}

// ParseSystemSizeForm validates and converts a SystemSizeForm.
func ParseSystemSizeForm(f SystemSizeForm) (SystemSizeInput, error) {
	var in SystemSizeInput
	var err error
	if in.MonthlyBill, err = parseAmount(FieldMonthlyBill, f.MonthlyBill, false); err != nil {
		return SystemSizeInput{}, err
	}
	if in.ElectricityRate, err = parseAmount(FieldElectricityRate, f.ElectricityRate, true); err != nil {
		return SystemSizeInput{}, err
	}
	if in.SunHours, err = parseAmount(FieldSunHours, f.SunHours, true); err != nil {
		return SystemSizeInput{}, err
	}
	return in, nil
}

// ParsePaybackForm validates and converts a PaybackForm.
func ParsePaybackForm(f PaybackForm) (PaybackInput, error) {
	var in PaybackInput
	var err error
	if in.SystemCost, err = parseAmount(FieldSystemCost, f.SystemCost, true); err != nil {
		return PaybackInput{}, err
	}
	if in.MonthlySavings, err = parseAmount(FieldMonthlySavings, f.MonthlySavings, true); err != nil {
		return PaybackInput{}, err
	}
	return in, nil
}

// ParseBatteryForm validates and converts a BatteryForm.
func ParseBatteryForm(f BatteryForm) (BatteryInput, error) {
	var in BatteryInput
	var err error
	if in.CriticalLoadsW, err = parseAmount(FieldCriticalLoads, f.CriticalLoads, false); err != nil {
		return BatteryInput{}, err
	}
	if in.BackupHours, err = parseAmount(FieldBackupHours, f.BackupHours, false); err != nil {
		return BatteryInput{}, err
	}
	return in, nil
}

var amountCleaner = strings.NewReplacer("$", "", ",", "", " ", "")

// parseAmount parses a form value such as "150", " $1,250.50 " or "0.13".
// nonZero marks fields used as a denominator.
func parseAmount(field, raw string, nonZero bool) (float64, error) {
	s := amountCleaner.Replace(strings.TrimSpace(raw))
	if s == "" {
		return 0, &InputError{Field: field, Reason: "is required"}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &InputError{Field: field, Reason: fmt.Sprintf("must be a number (got %q)", raw)}
	}
	if v < 0 {
		return 0, &InputError{Field: field, Reason: "must not be negative"}
	}
	if nonZero && v == 0 {
		return 0, &InputError{Field: field, Reason: "must be greater than zero"}
	}
	return v, nil
}
