package estimates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bher20/solarquote/internal/cache"
	"github.com/bher20/solarquote/internal/calculator"
	"github.com/bher20/solarquote/internal/states"
	"github.com/bher20/solarquote/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.MemoryStorage) {
	t.Helper()
	st := storage.NewMemory()
	svc := NewService(st, Options{Cache: cache.NewMemory(), CacheTTL: time.Hour})
	return svc, st
}

func TestCalculate_SystemSizePersists(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)

	est, err := svc.Calculate(ctx, Request{
		Kind: calculator.KindSystemSize,
		Fields: map[string]string{
			calculator.FieldMonthlyBill:     "150",
			calculator.FieldElectricityRate: "0.13",
			calculator.FieldSunHours:        "5",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, est.Result.SystemSize)
	assert.Equal(t, 9.62, est.Result.SystemSize.SystemSizeKW)
	assert.Equal(t, 14045.0, est.Result.SystemSize.AnnualProductionKWh)
	assert.False(t, est.Cached)

	rec, err := st.GetEstimate(ctx, est.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "system-size", rec.Kind)

	got, err := svc.Get(ctx, est.ID)
	require.NoError(t, err)
	assert.Equal(t, est.Result, got.Result)
	assert.Equal(t, "150", got.Inputs[calculator.FieldMonthlyBill])
}

func TestCalculate_CacheHit(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)

	req := Request{
		Kind: calculator.KindPayback,
		Fields: map[string]string{
			calculator.FieldSystemCost:     "25000",
			calculator.FieldMonthlySavings: "150",
		},
	}
	first, err := svc.Calculate(ctx, req)
	require.NoError(t, err)

	// whitespace differences share the cache entry
	req.Fields[calculator.FieldSystemCost] = " 25000 "
	second, err := svc.Calculate(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 46350.0, second.Result.Payback.Lifetime25YearsUSD)

	list, err := st.ListEstimates(ctx, storage.EstimateQuery{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCalculate_FillsFromState(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	est, err := svc.Calculate(ctx, Request{
		Kind:   calculator.KindSystemSize,
		State:  "az",
		Fields: map[string]string{calculator.FieldMonthlyBill: "200"},
	})
	require.NoError(t, err)

	p, ok := states.Lookup("AZ")
	require.True(t, ok)
	want := calculator.SystemSize(calculator.SystemSizeInput{
		MonthlyBill:     200,
		ElectricityRate: p.AvgRateUSDPerKWh,
		SunHours:        p.PeakSunHours,
	})
	assert.Equal(t, want, *est.Result.SystemSize)
	assert.Equal(t, "AZ", est.State)
}

func TestCalculate_ExplicitFieldsBeatState(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	est, err := svc.Calculate(ctx, Request{
		Kind:  calculator.KindSystemSize,
		State: "AZ",
		Fields: map[string]string{
			calculator.FieldMonthlyBill:     "150",
			calculator.FieldElectricityRate: "0.13",
			calculator.FieldSunHours:        "5",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 9.62, est.Result.SystemSize.SystemSizeKW)
}

func TestCalculate_Errors(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)

	_, err := svc.Calculate(ctx, Request{Kind: calculator.KindSystemSize, State: "ZZ"})
	assert.True(t, errors.Is(err, states.ErrUnknownState))

	_, err = svc.Calculate(ctx, Request{Kind: calculator.Kind(9)})
	assert.True(t, errors.Is(err, calculator.ErrUnknownKind))

	_, err = svc.Calculate(ctx, Request{
		Kind:   calculator.KindBattery,
		Fields: map[string]string{calculator.FieldCriticalLoads: "abc", calculator.FieldBackupHours: "8"},
	})
	var ie *calculator.InputError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, calculator.FieldCriticalLoads, ie.Field)

	list, _ := st.ListEstimates(ctx, storage.EstimateQuery{})
	assert.Empty(t, list, "rejected requests must not be stored")
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	run := func(req Request) {
		t.Helper()
		_, err := svc.Calculate(ctx, req)
		require.NoError(t, err)
	}
	run(Request{Kind: calculator.KindSystemSize, State: "TX", Fields: map[string]string{calculator.FieldMonthlyBill: "150"}})
	run(Request{Kind: calculator.KindSystemSize, State: "TX", Fields: map[string]string{calculator.FieldMonthlyBill: "250"}})
	run(Request{Kind: calculator.KindSystemSize, State: "AZ", Fields: map[string]string{calculator.FieldMonthlyBill: "150"}})
	run(Request{Kind: calculator.KindBattery, Fields: map[string]string{calculator.FieldCriticalLoads: "2000", calculator.FieldBackupHours: "12"}})
	run(Request{Kind: calculator.KindBattery, Fields: map[string]string{calculator.FieldCriticalLoads: "1000", calculator.FieldBackupHours: "10"}})

	// outside the window
	svc.now = func() time.Time { return now.Add(-48 * time.Hour) }
	run(Request{Kind: calculator.KindPayback, Fields: map[string]string{calculator.FieldSystemCost: "1000", calculator.FieldMonthlySavings: "10"}})

	sum, err := svc.Summarize(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Total)
	assert.Equal(t, 3, sum.ByKind["system-size"])
	assert.Equal(t, 0, sum.ByKind["payback"])
	assert.Equal(t, 2, sum.ByKind["battery"])
	assert.Equal(t, []string{"TX", "AZ"}, sum.TopStates(5))
	// 28.8 kWh and 12 kWh
	assert.Equal(t, 20.4, sum.AvgBatteryKWh)
	assert.Equal(t, 0.0, sum.AvgPaybackYears)
	assert.Greater(t, sum.AvgSystemSizeKW, 0.0)
}
