package alerting

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// AlertConfig holds alerting configuration.
type AlertConfig struct {
	// WebhookURL is a Slack, Discord or custom endpoint. Empty disables alerts.
	WebhookURL string
	// WebhookType selects the payload format: "slack", "discord" or "generic".
	// Empty auto-detects from the URL.
	WebhookType string
	// MinConsecutiveFailures is how many failed runs in a row trigger an alert.
	MinConsecutiveFailures int
	Timeout                time.Duration
}

func (c AlertConfig) webhookType() string {
	switch strings.ToLower(c.WebhookType) {
	case "slack", "discord":
		return strings.ToLower(c.WebhookType)
	case "", "auto":
		switch {
		case strings.Contains(c.WebhookURL, "slack.com"):
			return "slack"
		case strings.Contains(c.WebhookURL, "discord.com"):
			return "discord"
		}
	}
	return "generic"
}

// Alerter posts job failure alerts to a webhook.
type Alerter struct {
	cfg    AlertConfig
	client *http.Client

	mu       sync.Mutex
	failures map[string]int
}

func NewAlerter(cfg AlertConfig) *Alerter {
	if cfg.MinConsecutiveFailures <= 0 {
		cfg.MinConsecutiveFailures = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Alerter{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		failures: make(map[string]int),
	}
}

// Enabled reports whether a webhook is configured.
func (a *Alerter) Enabled() bool {
	return a != nil && a.cfg.WebhookURL != ""
}

// JobAlert describes one failed scheduled job run.
type JobAlert struct {
	JobName             string
	Error               string
	Duration            time.Duration
	Timestamp           time.Time
	ConsecutiveFailures int
}

// RecordSuccess resets the failure streak for job.
func (a *Alerter) RecordSuccess(job string) {
	if a == nil {
		return
	}
	a.mu.Lock()
	delete(a.failures, job)
	a.mu.Unlock()
}

// RecordFailure counts a failed run and posts an alert once the streak
// reaches the configured threshold.
func (a *Alerter) RecordFailure(ctx context.Context, job string, runErr error, dur time.Duration) error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	a.failures[job]++
	n := a.failures[job]
	a.mu.Unlock()

	if !a.Enabled() {
		log.Printf("alerting: alerts disabled, skipping %s failure", job)
		return nil
	}
	if n < a.cfg.MinConsecutiveFailures {
		log.Printf("alerting: %s failed %d time(s), below threshold %d", job, n, a.cfg.MinConsecutiveFailures)
		return nil
	}
	return a.Send(ctx, JobAlert{
		JobName:             job,
		Error:               runErr.Error(),
		Duration:            dur,
		Timestamp:           time.Now().UTC(),
		ConsecutiveFailures: n,
	})
}

// Send posts alert regardless of failure streaks.
func (a *Alerter) Send(ctx context.Context, alert JobAlert) error {
	var payload []byte
	var err error
	switch a.cfg.webhookType() {
	case "slack":
		payload, err = slackPayload(alert)
	case "discord":
		payload, err = discordPayload(alert)
	default:
		payload, err = genericPayload(alert)
	}
	if err != nil {
		return fmt.Errorf("build payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	log.Printf("alerting: sent alert for job %s", alert.JobName)
	return nil
}

func slackPayload(alert JobAlert) ([]byte, error) {
	return json.Marshal(map[string]any{
		"blocks": []map[string]any{
			{
				"type": "header",
				"text": map[string]string{
					"type": "plain_text",
					"text": fmt.Sprintf(":x: Job failed: %s", alert.JobName),
				},
			},
			{
				"type": "section",
				"fields": []map[string]string{
					{"type": "mrkdwn", "text": fmt.Sprintf("*Failures in a row:*\n%d", alert.ConsecutiveFailures)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Duration:*\n%s", alert.Duration.Round(time.Millisecond))},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Timestamp:*\n%s", alert.Timestamp.Format(time.RFC3339))},
				},
			},
			{
				"type": "section",
				"text": map[string]string{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Error:*\n```%s```", alert.Error),
				},
			},
		},
	})
}

func discordPayload(alert JobAlert) ([]byte, error) {
	color := 16776960 // yellow
	if alert.ConsecutiveFailures > 1 {
		color = 16711680 // red
	}
	return json.Marshal(map[string]any{
		"embeds": []map[string]any{
			{
				"title":       fmt.Sprintf("Job failed: %s", alert.JobName),
				"description": alert.Error,
				"color":       color,
				"fields": []map[string]any{
					{"name": "Failures in a row", "value": fmt.Sprintf("%d", alert.ConsecutiveFailures), "inline": true},
					{"name": "Duration", "value": alert.Duration.Round(time.Millisecond).String(), "inline": true},
				},
				"timestamp": alert.Timestamp.Format(time.RFC3339),
			},
		},
	})
}

func genericPayload(alert JobAlert) ([]byte, error) {
	return json.Marshal(map[string]any{
		"alert_type":           "job_failure",
		"job_name":             alert.JobName,
		"error":                alert.Error,
		"consecutive_failures": alert.ConsecutiveFailures,
		"duration_ms":          alert.Duration.Milliseconds(),
		"timestamp":            alert.Timestamp.Format(time.RFC3339),
	})
}
