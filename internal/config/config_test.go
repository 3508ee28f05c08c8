package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "SOLARQUOTE_DB_DRIVER", "SOLARQUOTE_AUTO_MIGRATE", "SOLARQUOTE_CACHE_TTL", "SOLARQUOTE_RATE_LIMIT", "SOLARQUOTE_DIGEST_SCHEDULE"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	if cfg.Port != "8000" {
		t.Errorf("port = %q", cfg.Port)
	}
	if cfg.DBDriver != "memory" {
		t.Errorf("driver = %q", cfg.DBDriver)
	}
	if !cfg.AutoMigrate {
		t.Errorf("auto migrate should default on")
	}
	if cfg.CacheTTL != 24*time.Hour {
		t.Errorf("cache ttl = %v", cfg.CacheTTL)
	}
	if cfg.RateLimitPerMinute != 60 {
		t.Errorf("rate limit = %d", cfg.RateLimitPerMinute)
	}
	if cfg.DigestSchedule != "0 7 * * *" {
		t.Errorf("digest schedule = %q", cfg.DigestSchedule)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SOLARQUOTE_DB_DRIVER", "sqlite")
	t.Setenv("SOLARQUOTE_AUTO_MIGRATE", "false")
	t.Setenv("SOLARQUOTE_CACHE_TTL", "90")
	t.Setenv("SOLARQUOTE_RATE_LIMIT", "0")

	cfg := FromEnv()
	if cfg.Port != "9090" || cfg.DBDriver != "sqlite" || cfg.AutoMigrate {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.CacheTTL != 90*time.Second {
		t.Errorf("cache ttl = %v", cfg.CacheTTL)
	}
	if cfg.RateLimitPerMinute != 0 {
		t.Errorf("rate limit = %d", cfg.RateLimitPerMinute)
	}
}

func TestFromEnv_DurationSyntax(t *testing.T) {
	t.Setenv("SOLARQUOTE_CACHE_TTL", "15m")
	if got := FromEnv().CacheTTL; got != 15*time.Minute {
		t.Fatalf("cache ttl = %v", got)
	}
	t.Setenv("SOLARQUOTE_CACHE_TTL", "soon")
	if got := FromEnv().CacheTTL; got != 24*time.Hour {
		t.Fatalf("invalid ttl should fall back, got %v", got)
	}
}
