package calculator

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemSize_WorkedExample(t *testing.T) {
	res := SystemSize(SystemSizeInput{MonthlyBill: 150, ElectricityRate: 0.13, SunHours: 5})

	assert.InDelta(t, 1153.846, res.MonthlyUsageKWh, 0.001)
	assert.InDelta(t, 38.4615, res.DailyUsageKWh, 0.0001)
	assert.Equal(t, 9.62, res.SystemSizeKW)
	assert.Equal(t, 14045.0, res.AnnualProductionKWh)
	assert.Equal(t, 1826.0, res.AnnualSavingsUSD)
	assert.InDelta(t, 12506, res.EstimatedCostUSD, 1e-6)
	assert.InDelta(t, 8754.2, res.EstimatedCostWithCredit, 1e-6)
}

func TestSystemSize_MatchesClosedForm(t *testing.T) {
	cases := []SystemSizeInput{
		{MonthlyBill: 80, ElectricityRate: 0.11, SunHours: 4.2},
		{MonthlyBill: 225, ElectricityRate: 0.31, SunHours: 5.8},
		{MonthlyBill: 410, ElectricityRate: 0.16, SunHours: 6.5},
		{MonthlyBill: 1, ElectricityRate: 1, SunHours: 1},
	}
	for _, in := range cases {
		want := math.Round(in.MonthlyBill/in.ElectricityRate/30/in.SunHours/0.8*100) / 100
		got := SystemSize(in).SystemSizeKW
		assert.InDelta(t, want, got, 1e-9, "input %+v", in)
	}
}

func TestSystemSize_ZeroRatePropagatesInf(t *testing.T) {
	res := SystemSize(SystemSizeInput{MonthlyBill: 150, ElectricityRate: 0, SunHours: 5})
	assert.True(t, math.IsInf(res.SystemSizeKW, 1))
}

func TestSystemSize_ZeroSunHoursPropagates(t *testing.T) {
	res := SystemSize(SystemSizeInput{MonthlyBill: 150, ElectricityRate: 0.13, SunHours: 0})
	assert.True(t, math.IsInf(res.SystemSizeKW, 1))
	// Inf * 0 sun hours.
	assert.True(t, math.IsNaN(res.AnnualProductionKWh))
}

func TestPayback_WorkedExample(t *testing.T) {
	res := Payback(PaybackInput{SystemCost: 8500, MonthlySavings: 150})

	assert.Equal(t, 1800.0, res.AnnualSavingsUSD)
	assert.Equal(t, 4.7, res.PaybackYears)
	assert.Equal(t, 46350.0, res.Lifetime25YearsUSD)
	assert.Equal(t, 445.0, res.ROIPercent)
	assert.Equal(t, 37850.0, res.NetProfitUSD)
}

func TestPayback_EscalationIsNotCompounded(t *testing.T) {
	res := Payback(PaybackInput{SystemCost: 10000, MonthlySavings: 100})
	// 1200 * 25 * 1.03, not 1200 * sum(1.03^n).
	assert.Equal(t, 30900.0, res.Lifetime25YearsUSD)
}

func TestBattery_WorkedExample(t *testing.T) {
	res := Battery(BatteryInput{CriticalLoadsW: 3000, BackupHours: 8})

	assert.Equal(t, 24.0, res.EnergyNeededKWh)
	assert.Equal(t, 28.8, res.RecommendedSizeKWh)
	assert.Equal(t, 28800.0, res.EstimatedCostUSD)
	assert.Equal(t, 3, res.NumberOfPowerwalls)
}

func TestBattery_UnitBoundary(t *testing.T) {
	// 11.2 kWh * 1.2 = 13.44 -> 13.4 kWh, fits one unit.
	res := Battery(BatteryInput{CriticalLoadsW: 1400, BackupHours: 8})
	assert.Equal(t, 11.2, res.EnergyNeededKWh)
	assert.Equal(t, 13.4, res.RecommendedSizeKWh)
	assert.Equal(t, 1, res.NumberOfPowerwalls)

	// 11.3 kWh * 1.2 = 13.56 -> 13.6 kWh, needs a second unit.
	res = Battery(BatteryInput{CriticalLoadsW: 1130, BackupHours: 10})
	assert.Equal(t, 13.6, res.RecommendedSizeKWh)
	assert.Equal(t, 2, res.NumberOfPowerwalls)
}

func TestCalculators_Idempotent(t *testing.T) {
	ss := SystemSizeInput{MonthlyBill: 199.99, ElectricityRate: 0.1427, SunHours: 4.7}
	pb := PaybackInput{SystemCost: 12345.67, MonthlySavings: 142.5}
	bt := BatteryInput{CriticalLoadsW: 2750, BackupHours: 12}

	for i := 0; i < 5; i++ {
		assert.Equal(t, SystemSize(ss), SystemSize(ss))
		assert.Equal(t, Payback(pb), Payback(pb))
		assert.Equal(t, Battery(bt), Battery(bt))
	}
}

func TestRound_HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, 4.7, Round(4.65, 1))
	assert.Equal(t, 3.0, Round(2.5, 0))
	// the decimal form of 1.005 is a tie even though the binary value is below it
	assert.Equal(t, 1.01, Round(1.005, 2))
	assert.True(t, math.IsNaN(Round(math.NaN(), 2)))
	assert.True(t, math.IsInf(Round(math.Inf(-1), 2), -1))
}

func TestParseSystemSizeForm(t *testing.T) {
	in, err := ParseSystemSizeForm(SystemSizeForm{MonthlyBill: " $1,250.50 ", ElectricityRate: "0.13", SunHours: "5"})
	require.NoError(t, err)
	assert.Equal(t, 1250.5, in.MonthlyBill)
	assert.Equal(t, 0.13, in.ElectricityRate)
	assert.Equal(t, 5.0, in.SunHours)
}

func TestParseForms_Rejections(t *testing.T) {
	cases := []struct {
		name  string
		parse func() error
		field string
	}{
		{"non-numeric bill", func() error {
			_, err := ParseSystemSizeForm(SystemSizeForm{MonthlyBill: "abc", ElectricityRate: "0.13", SunHours: "5"})
			return err
		}, FieldMonthlyBill},
		{"zero rate", func() error {
			_, err := ParseSystemSizeForm(SystemSizeForm{MonthlyBill: "150", ElectricityRate: "0", SunHours: "5"})
			return err
		}, FieldElectricityRate},
		{"missing sun hours", func() error {
			_, err := ParseSystemSizeForm(SystemSizeForm{MonthlyBill: "150", ElectricityRate: "0.13"})
			return err
		}, FieldSunHours},
		{"zero savings", func() error {
			_, err := ParsePaybackForm(PaybackForm{SystemCost: "8500", MonthlySavings: "0"})
			return err
		}, FieldMonthlySavings},
		{"negative cost", func() error {
			_, err := ParsePaybackForm(PaybackForm{SystemCost: "-1", MonthlySavings: "10"})
			return err
		}, FieldSystemCost},
		{"negative loads", func() error {
			_, err := ParseBatteryForm(BatteryForm{CriticalLoads: "-3000", BackupHours: "8"})
			return err
		}, FieldCriticalLoads},
		{"NaN hours", func() error {
			_, err := ParseBatteryForm(BatteryForm{CriticalLoads: "3000", BackupHours: "NaN"})
			return err
		}, FieldBackupHours},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.parse()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
			var ie *InputError
			require.True(t, errors.As(err, &ie))
			assert.Equal(t, tc.field, ie.Field)
		})
	}
}

func TestParseBatteryForm_AllowsZeroHours(t *testing.T) {
	in, err := ParseBatteryForm(BatteryForm{CriticalLoads: "3000", BackupHours: "0"})
	require.NoError(t, err)
	assert.Equal(t, 0, Battery(in).NumberOfPowerwalls)
}
