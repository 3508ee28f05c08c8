package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openSQLite(t *testing.T) *GormStorage {
	t.Helper()
	st, err := NewGormStorage("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st
}

func TestGormStorage_Estimates(t *testing.T) {
	ctx := context.Background()
	st := openSQLite(t)

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, kind := range []string{"system-size", "payback", "system-size"} {
		e := Estimate{
			ID:        string(rune('a' + i)),
			Kind:      kind,
			Input:     []byte(`{}`),
			Result:    []byte(`{}`),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := st.SaveEstimate(ctx, e); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	got, err := st.ListEstimates(ctx, EstimateQuery{Kind: "system-size"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c" {
		t.Fatalf("unexpected list %+v", got)
	}

	e, err := st.GetEstimate(ctx, "b")
	if err != nil || e == nil || e.Kind != "payback" {
		t.Fatalf("get: %+v %v", e, err)
	}
	if e, err := st.GetEstimate(ctx, "zz"); e != nil || err != nil {
		t.Fatalf("expected nil, nil on miss; got %+v %v", e, err)
	}
}

func TestGormStorage_UpsertStateRate(t *testing.T) {
	ctx := context.Background()
	st := openSQLite(t)

	if err := st.UpsertStateRate(ctx, StateRate{State: "TN", EnergyUSDPerKWh: 0.1, Source: "rate-sheet"}); err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertStateRate(ctx, StateRate{State: "TN", EnergyUSDPerKWh: 0.12, Source: "rate-sheet"}); err != nil {
		t.Fatal(err)
	}
	list, err := st.ListStateRates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].EnergyUSDPerKWh != 0.12 {
		t.Fatalf("unexpected rates %+v", list)
	}
}

func TestGormStorage_SettingsAndJobs(t *testing.T) {
	ctx := context.Background()
	st := openSQLite(t)

	if err := st.SetSetting(ctx, "digest_schedule", "0 7 * * *"); err != nil {
		t.Fatal(err)
	}
	if err := st.SetSetting(ctx, "digest_schedule", "3600"); err != nil {
		t.Fatal(err)
	}
	v, err := st.GetSetting(ctx, "digest_schedule")
	if err != nil || v != "3600" {
		t.Fatalf("setting = %q, %v", v, err)
	}

	ok, err := st.AcquireAdvisoryLock(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("sqlite lock should always succeed: %v %v", ok, err)
	}
	started := time.Now().UTC().Truncate(time.Second)
	if err := st.UpdateScheduledJob(ctx, "digest", started, time.Second, true, ""); err != nil {
		t.Fatal(err)
	}
	job, err := st.GetScheduledJob(ctx, "digest")
	if err != nil || job == nil || job.LastSuccess != 1 {
		t.Fatalf("job = %+v, %v", job, err)
	}
	if !job.LastRunAt.Equal(started) {
		t.Fatalf("last run = %v, want %v", job.LastRunAt, started)
	}
}
