package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	DBDriver    string
	DBDSN       string
	AutoMigrate bool

	RedisAddr string
	CacheTTL  time.Duration

	DigestSchedule string
	DigestTo       string

	// RateLimitPerMinute caps calculator requests per client IP; 0 disables it.
	RateLimitPerMinute int

	AlertWebhookURL  string
	AlertWebhookType string
}

// FromEnv builds a Config from environment variables, with sane defaults.
func FromEnv() Config {
	return Config{
		Port:               getenv("PORT", "8000"),
		DBDriver:           getenv("SOLARQUOTE_DB_DRIVER", "memory"),
		DBDSN:              os.Getenv("SOLARQUOTE_DB_DSN"),
		AutoMigrate:        getbool("SOLARQUOTE_AUTO_MIGRATE", true),
		RedisAddr:          os.Getenv("SOLARQUOTE_REDIS_ADDR"),
		CacheTTL:           getduration("SOLARQUOTE_CACHE_TTL", 24*time.Hour),
		DigestSchedule:     getenv("SOLARQUOTE_DIGEST_SCHEDULE", "0 7 * * *"),
		DigestTo:           os.Getenv("SOLARQUOTE_DIGEST_TO"),
		RateLimitPerMinute: getint("SOLARQUOTE_RATE_LIMIT", 60),
		AlertWebhookURL:    os.Getenv("ALERT_WEBHOOK_URL"),
		AlertWebhookType:   getenv("ALERT_WEBHOOK_TYPE", "generic"),
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getint(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}

// getduration accepts Go durations ("90m") or a bare number of seconds.
func getduration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return def
}
