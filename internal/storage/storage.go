package storage

import (
	"context"
	"time"
)

// Storage abstracts persistence for estimates, state rate overrides and the
// operational records (users, tokens, policies, settings, scheduled jobs).
// Getters return (nil, nil) when the record does not exist.
type Storage interface {
	// Estimates
	SaveEstimate(ctx context.Context, e Estimate) error
	GetEstimate(ctx context.Context, id string) (*Estimate, error)
	ListEstimates(ctx context.Context, q EstimateQuery) ([]Estimate, error)

	// State rate overrides imported from utility rate sheets
	GetStateRate(ctx context.Context, state string) (*StateRate, error)
	UpsertStateRate(ctx context.Context, r StateRate) error
	ListStateRates(ctx context.Context) ([]StateRate, error)

	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Users
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)

	// Tokens
	CreateToken(ctx context.Context, token Token) error
	GetTokenByHash(ctx context.Context, hash string) (*Token, error)
	ListTokens(ctx context.Context, userID string) ([]Token, error)
	DeleteToken(ctx context.Context, id string) error
	UpdateTokenLastUsed(ctx context.Context, id string) error

	// Casbin policies
	LoadCasbinRules(ctx context.Context) ([]CasbinRule, error)
	AddCasbinRule(ctx context.Context, rule CasbinRule) error
	RemoveCasbinRule(ctx context.Context, rule CasbinRule) error

	// Email
	GetEmailConfig(ctx context.Context) (*EmailConfig, error)
	SaveEmailConfig(ctx context.Context, config EmailConfig) error

	// Scheduled jobs & locking
	AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error)
	ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error)
	GetScheduledJob(ctx context.Context, name string) (*ScheduledJob, error)
	UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error

	Ping(ctx context.Context) error
	// Close releases any resources (no-op for in-memory).
	Close() error
}

// EstimateQuery filters ListEstimates. Zero values mean "no constraint";
// results are ordered newest first.
type EstimateQuery struct {
	Kind  string
	State string
	Since time.Time
	Until time.Time
	Limit int
}

func (q EstimateQuery) match(e Estimate) bool {
	if q.Kind != "" && e.Kind != q.Kind {
		return false
	}
	if q.State != "" && e.State != q.State {
		return false
	}
	if !q.Since.IsZero() && e.CreatedAt.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && !e.CreatedAt.Before(q.Until) {
		return false
	}
	return true
}
