package calculator

import (
	"errors"
	"math"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for name, want := range map[string]Kind{
		"system-size": KindSystemSize,
		"Payback":     KindPayback,
		" battery ":   KindBattery,
	} {
		got, err := ParseKind(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}

	_, err := ParseKind("roof-pitch")
	assert.True(t, errors.Is(err, ErrUnknownKind))
}

func TestCalculate_DispatchesByKind(t *testing.T) {
	res, err := Calculate(KindSystemSize, map[string]string{
		FieldMonthlyBill:     "150",
		FieldElectricityRate: "0.13",
		FieldSunHours:        "5",
	})
	require.NoError(t, err)
	require.NotNil(t, res.SystemSize)
	assert.Nil(t, res.Payback)
	assert.Nil(t, res.Battery)
	assert.Equal(t, 9.62, res.SystemSize.SystemSizeKW)

	res, err = Calculate(KindPayback, map[string]string{
		FieldSystemCost:     "8500",
		FieldMonthlySavings: "150",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Payback)
	assert.Equal(t, 445.0, res.Payback.ROIPercent)

	res, err = Calculate(KindBattery, map[string]string{
		FieldCriticalLoads: "3000",
		FieldBackupHours:   "8",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Battery)
	assert.Equal(t, 3, res.Battery.NumberOfPowerwalls)
}

func TestCalculate_UnknownKindDoesNotFallThrough(t *testing.T) {
	_, err := Calculate(Kind(42), map[string]string{FieldMonthlyBill: "150"})
	assert.True(t, errors.Is(err, ErrUnknownKind))

	_, err = Calculate(Kind(0), nil)
	assert.True(t, errors.Is(err, ErrUnknownKind))
}

func TestCalculate_InvalidInput(t *testing.T) {
	_, err := Calculate(KindPayback, map[string]string{FieldSystemCost: "8500"})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestResult_JSONUsesKindName(t *testing.T) {
	res, err := Calculate(KindBattery, map[string]string{
		FieldCriticalLoads: "3000",
		FieldBackupHours:   "8",
	})
	require.NoError(t, err)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"kind":"battery"`)
	assert.NotContains(t, string(b), `"payback"`)

	var back Result
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, KindBattery, back.Kind)
	assert.Equal(t, res.Battery, back.Battery)
}

func TestCalculate_RejectsOverflow(t *testing.T) {
	cases := []struct {
		name   string
		kind   Kind
		fields map[string]string
		field  string
	}{
		{"subnormal rate", KindSystemSize, map[string]string{
			FieldMonthlyBill: "150", FieldElectricityRate: "1e-320", FieldSunHours: "5",
		}, FieldElectricityRate},
		{"subnormal sun hours", KindSystemSize, map[string]string{
			FieldMonthlyBill: "1e300", FieldElectricityRate: "1", FieldSunHours: "1e-300",
		}, FieldSunHours},
		{"payback overflow", KindPayback, map[string]string{
			FieldSystemCost: "1e308", FieldMonthlySavings: "1e-320",
		}, FieldMonthlySavings},
		{"battery overflow", KindBattery, map[string]string{
			FieldCriticalLoads: "1e308", FieldBackupHours: "1e308",
		}, FieldCriticalLoads},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Calculate(tc.kind, tc.fields)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
			var ie *InputError
			require.True(t, errors.As(err, &ie))
			assert.Equal(t, tc.field, ie.Field)
		})
	}

	// the pure formulas still propagate
	out := SystemSize(SystemSizeInput{MonthlyBill: 150, ElectricityRate: 1e-320, SunHours: 5})
	assert.True(t, math.IsInf(out.MonthlyUsageKWh, 1))
}

func TestFields(t *testing.T) {
	assert.Equal(t, []string{FieldSystemCost, FieldMonthlySavings}, Fields(KindPayback))
	assert.Nil(t, Fields(Kind(9)))
}

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "$12,506", FormatUSD(12506.000000000002))
	assert.Equal(t, "$0", FormatUSD(0))
	assert.Equal(t, "-$1,200", FormatUSD(-1200))
	assert.Equal(t, "14,045 kWh", FormatKWh(14045))
}
