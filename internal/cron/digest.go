package cron

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bher20/solarquote/internal/alerting"
	"github.com/bher20/solarquote/internal/estimates"
	"github.com/bher20/solarquote/internal/metrics"
	"github.com/bher20/solarquote/internal/notification"
	"github.com/bher20/solarquote/internal/storage"
)

const (
	DigestJobName = "digest"

	// Settings read on every tick so admins can change them without a restart.
	SettingDigestSchedule = "digest_schedule"
	SettingDigestTo       = "digest_to"

	digestLockKey int64 = 5017_0001

	defaultSchedule = "0 7 * * *"
	defaultWindow   = 24 * time.Hour
)

// ErrLockHeld means another replica is running the digest.
var ErrLockHeld = errors.New("digest: lock held by another worker")

// Mailer delivers the rendered digest.
type Mailer interface {
	Send(ctx context.Context, msg notification.Message) error
}

// Deps wires the digest job.
type Deps struct {
	Store     storage.Storage
	Estimates *estimates.Service
	Mailer    Mailer
	// Alerter is optional.
	Alerter *alerting.Alerter
	// Schedule and To are the defaults when the settings rows are empty.
	Schedule string
	To       string
	// Tick is the control loop interval, 10s when zero.
	Tick time.Duration
}

// nextRun accepts integer seconds or a standard five-field cron expression.
// Anything else falls back to the daily default.
func nextRun(setting string, from time.Time) time.Time {
	setting = strings.TrimSpace(setting)
	if v, err := strconv.Atoi(setting); err == nil && v > 0 {
		return from.Add(time.Duration(v) * time.Second)
	}
	if sched, err := cron.ParseStandard(setting); err == nil {
		return sched.Next(from)
	}
	sched, _ := cron.ParseStandard(defaultSchedule)
	return sched.Next(from)
}

// ValidateSchedule reports whether s is usable as a digest schedule. Empty
// means the configured default.
func ValidateSchedule(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		if v <= 0 {
			return fmt.Errorf("schedule interval must be positive, got %d", v)
		}
		return nil
	}
	if _, err := cron.ParseStandard(s); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s, err)
	}
	return nil
}

func setting(ctx context.Context, st storage.Storage, key, def string) string {
	v, err := st.GetSetting(ctx, key)
	if err != nil {
		log.Printf("digest: read setting %s: %v", key, err)
		return def
	}
	if v == "" {
		return def
	}
	return v
}

// RunDigest sends the digest on schedule until ctx is cancelled. The first
// run happens at the next scheduled time, not at startup.
func RunDigest(ctx context.Context, deps Deps) error {
	tick := deps.Tick
	if tick <= 0 {
		tick = 10 * time.Second
	}
	def := deps.Schedule
	if def == "" {
		def = defaultSchedule
	}

	schedule := setting(ctx, deps.Store, SettingDigestSchedule, def)
	next := nextRun(schedule, time.Now())
	log.Printf("digest: worker starting, schedule=%q next=%s", schedule, next.Format(time.RFC3339))

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s := setting(ctx, deps.Store, SettingDigestSchedule, def); s != schedule {
				log.Printf("digest: schedule updated from %q to %q", schedule, s)
				schedule = s
				next = nextRun(schedule, time.Now())
			}
			if time.Now().Before(next) {
				continue
			}

			err := RunDigestOnce(ctx, deps)
			switch {
			case errors.Is(err, ErrLockHeld):
				log.Printf("digest: lock held by another worker, skipping run")
			case err != nil:
				log.Printf("digest: run failed: %v", err)
			}
			next = nextRun(schedule, time.Now())
		}
	}
}

// RunDigestOnce summarises the estimates since the last successful run (or
// the past day) and emails them. Job bookkeeping, metrics and alerts are
// recorded for every attempt that holds the lock.
func RunDigestOnce(ctx context.Context, deps Deps) error {
	started := time.Now()

	ok, err := deps.Store.AcquireAdvisoryLock(ctx, digestLockKey)
	if err != nil {
		metrics.UpdateJobMetrics(DigestJobName, started, err)
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrLockHeld
	}
	defer func() {
		if _, err := deps.Store.ReleaseAdvisoryLock(ctx, digestLockKey); err != nil {
			log.Printf("digest: release lock failed: %v", err)
		}
	}()

	runErr := sendDigest(ctx, deps, started)
	dur := time.Since(started)

	metrics.UpdateJobMetrics(DigestJobName, started, runErr)
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	if err := deps.Store.UpdateScheduledJob(ctx, DigestJobName, started, dur, runErr == nil, errMsg); err != nil {
		log.Printf("digest: update scheduled_jobs failed: %v", err)
	}

	if runErr != nil {
		if err := deps.Alerter.RecordFailure(ctx, DigestJobName, runErr, dur); err != nil {
			log.Printf("digest: alert failed: %v", err)
		}
		return runErr
	}
	deps.Alerter.RecordSuccess(DigestJobName)
	log.Printf("digest: job completed (duration=%s)", dur)
	return nil
}

func sendDigest(ctx context.Context, deps Deps, started time.Time) error {
	to := setting(ctx, deps.Store, SettingDigestTo, deps.To)
	if to == "" {
		return errors.New("no digest recipient configured")
	}

	since := started.Add(-defaultWindow)
	job, err := deps.Store.GetScheduledJob(ctx, DigestJobName)
	if err != nil {
		return fmt.Errorf("load job state: %w", err)
	}
	if job != nil && job.LastSuccess == 1 && job.LastRunAt.Before(started) {
		since = job.LastRunAt
	}

	sum, err := deps.Estimates.Summarize(ctx, since, started)
	if err != nil {
		return err
	}
	msg, err := notification.RenderDigest(to, sum)
	if err != nil {
		return err
	}
	if err := deps.Mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send digest: %w", err)
	}
	return nil
}
