package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bher20/solarquote/internal/calculator"
	"github.com/bher20/solarquote/internal/estimates"
	"github.com/bher20/solarquote/internal/notification"
	"github.com/bher20/solarquote/internal/storage"
)

type fakeMailer struct {
	sent []notification.Message
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, msg notification.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type lockedStore struct {
	*storage.MemoryStorage
}

func (lockedStore) AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	return false, nil
}

func TestNextRun(t *testing.T) {
	from := time.Date(2026, 4, 1, 6, 30, 0, 0, time.UTC)

	assert.Equal(t, from.Add(90*time.Second), nextRun("90", from))
	assert.Equal(t, time.Date(2026, 4, 1, 7, 0, 0, 0, time.UTC), nextRun("0 7 * * *", from))
	assert.Equal(t, time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC), nextRun("0 12 * * *", from))
	// invalid falls back to the daily default
	assert.Equal(t, time.Date(2026, 4, 1, 7, 0, 0, 0, time.UTC), nextRun("whenever", from))
}

func newDeps(t *testing.T) (Deps, *fakeMailer, *storage.MemoryStorage) {
	t.Helper()
	st := storage.NewMemory()
	mailer := &fakeMailer{}
	return Deps{
		Store:     st,
		Estimates: estimates.NewService(st, estimates.Options{}),
		Mailer:    mailer,
		To:        "sales@example.com",
	}, mailer, st
}

func TestRunDigestOnce_SendsSummary(t *testing.T) {
	ctx := context.Background()
	deps, mailer, st := newDeps(t)

	_, err := deps.Estimates.Calculate(ctx, estimates.Request{
		Kind:   calculator.KindBattery,
		Fields: map[string]string{calculator.FieldCriticalLoads: "2000", calculator.FieldBackupHours: "12"},
	})
	require.NoError(t, err)

	require.NoError(t, RunDigestOnce(ctx, deps))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "sales@example.com", mailer.sent[0].To)
	assert.Equal(t, "solarquote digest: 1 estimates", mailer.sent[0].Subject)

	job, err := st.GetScheduledJob(ctx, DigestJobName)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, 1, job.LastSuccess)

	// second run only covers estimates since the first
	require.NoError(t, RunDigestOnce(ctx, deps))
	require.Len(t, mailer.sent, 2)
	assert.Equal(t, "solarquote digest: 0 estimates", mailer.sent[1].Subject)
}

func TestRunDigestOnce_RecipientSetting(t *testing.T) {
	ctx := context.Background()
	deps, mailer, st := newDeps(t)
	require.NoError(t, st.SetSetting(ctx, SettingDigestTo, "owner@example.com"))

	require.NoError(t, RunDigestOnce(ctx, deps))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "owner@example.com", mailer.sent[0].To)
}

func TestRunDigestOnce_RecordsFailure(t *testing.T) {
	ctx := context.Background()
	deps, mailer, st := newDeps(t)
	mailer.err = errors.New("smtp down")

	err := RunDigestOnce(ctx, deps)
	require.Error(t, err)

	job, _ := st.GetScheduledJob(ctx, DigestJobName)
	require.NotNil(t, job)
	assert.Equal(t, 0, job.LastSuccess)
	assert.Contains(t, job.LastError, "smtp down")
}

func TestRunDigestOnce_NoRecipient(t *testing.T) {
	deps, _, _ := newDeps(t)
	deps.To = ""
	assert.Error(t, RunDigestOnce(context.Background(), deps))
}

func TestRunDigestOnce_LockHeld(t *testing.T) {
	deps, mailer, st := newDeps(t)
	deps.Store = lockedStore{st}

	err := RunDigestOnce(context.Background(), deps)
	assert.True(t, errors.Is(err, ErrLockHeld))
	assert.Empty(t, mailer.sent)
}

func TestRunDigest_StopsOnCancel(t *testing.T) {
	deps, _, _ := newDeps(t)
	deps.Tick = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := RunDigest(ctx, deps)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestValidateSchedule(t *testing.T) {
	for _, ok := range []string{"", "3600", "0 7 * * *", " */15 * * * * "} {
		assert.NoError(t, ValidateSchedule(ok), ok)
	}
	for _, bad := range []string{"0", "-5", "daily", "0 7 * *"} {
		assert.Error(t, ValidateSchedule(bad), bad)
	}
}
