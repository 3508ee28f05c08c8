package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormStorage backs Storage with sqlite or postgres through GORM.
type GormStorage struct {
	db *gorm.DB
}

func NewGormStorage(driver, dsn string) (*GormStorage, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	return &GormStorage{db: db}, nil
}

// Migrate creates or updates the tables for every model.
func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&Estimate{},
		&StateRate{},
		&Setting{},
		&User{},
		&Token{},
		&CasbinRule{},
		&EmailConfig{},
		&ScheduledJob{},
	)
}

// first runs a First query and maps ErrRecordNotFound to (false, nil).
func first(q *gorm.DB, dest any, conds ...any) (bool, error) {
	err := q.First(dest, conds...).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Estimates

func (s *GormStorage) SaveEstimate(ctx context.Context, e Estimate) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(&e).Error
}

func (s *GormStorage) GetEstimate(ctx context.Context, id string) (*Estimate, error) {
	var e Estimate
	ok, err := first(s.db.WithContext(ctx), &e, "id = ?", id)
	if !ok {
		return nil, err
	}
	return &e, nil
}

func (s *GormStorage) ListEstimates(ctx context.Context, q EstimateQuery) ([]Estimate, error) {
	tx := s.db.WithContext(ctx).Model(&Estimate{})
	if q.Kind != "" {
		tx = tx.Where("kind = ?", q.Kind)
	}
	if q.State != "" {
		tx = tx.Where("state = ?", q.State)
	}
	if !q.Since.IsZero() {
		tx = tx.Where("created_at >= ?", q.Since)
	}
	if !q.Until.IsZero() {
		tx = tx.Where("created_at < ?", q.Until)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	var out []Estimate
	err := tx.Order("created_at desc").Order("id").Find(&out).Error
	return out, err
}

// State rates

func (s *GormStorage) GetStateRate(ctx context.Context, state string) (*StateRate, error) {
	var r StateRate
	ok, err := first(s.db.WithContext(ctx), &r, "state = ?", state)
	if !ok {
		return nil, err
	}
	return &r, nil
}

func (s *GormStorage) UpsertStateRate(ctx context.Context, r StateRate) error {
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "state"}},
		UpdateAll: true,
	}).Create(&r).Error
}

func (s *GormStorage) ListStateRates(ctx context.Context) ([]StateRate, error) {
	var out []StateRate
	err := s.db.WithContext(ctx).Order("state").Find(&out).Error
	return out, err
}

// Settings

func (s *GormStorage) GetSetting(ctx context.Context, key string) (string, error) {
	var setting Setting
	ok, err := first(s.db.WithContext(ctx), &setting, "key = ?", key)
	if !ok {
		return "", err
	}
	return setting.Value, nil
}

func (s *GormStorage) SetSetting(ctx context.Context, key, value string) error {
	setting := Setting{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&setting).Error
}

// Users

func (s *GormStorage) CreateUser(ctx context.Context, user User) error {
	return s.db.WithContext(ctx).Create(&user).Error
}

func (s *GormStorage) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	ok, err := first(s.db.WithContext(ctx), &user, "id = ?", id)
	if !ok {
		return nil, err
	}
	return &user, nil
}

func (s *GormStorage) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	ok, err := first(s.db.WithContext(ctx), &user, "username = ?", username)
	if !ok {
		return nil, err
	}
	return &user, nil
}

func (s *GormStorage) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	err := s.db.WithContext(ctx).Find(&users).Error
	return users, err
}

// Tokens

func (s *GormStorage) CreateToken(ctx context.Context, token Token) error {
	return s.db.WithContext(ctx).Create(&token).Error
}

func (s *GormStorage) GetTokenByHash(ctx context.Context, hash string) (*Token, error) {
	var token Token
	ok, err := first(s.db.WithContext(ctx), &token, "token_hash = ?", hash)
	if !ok {
		return nil, err
	}
	return &token, nil
}

func (s *GormStorage) ListTokens(ctx context.Context, userID string) ([]Token, error) {
	var tokens []Token
	err := s.db.WithContext(ctx).Find(&tokens, "user_id = ?", userID).Error
	return tokens, err
}

func (s *GormStorage) DeleteToken(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&Token{}, "id = ?", id).Error
}

func (s *GormStorage) UpdateTokenLastUsed(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&Token{}).Where("id = ?", id).Update("last_used_at", time.Now()).Error
}

// Casbin rules

func (s *GormStorage) LoadCasbinRules(ctx context.Context) ([]CasbinRule, error) {
	var rules []CasbinRule
	err := s.db.WithContext(ctx).Find(&rules).Error
	return rules, err
}

func (s *GormStorage) AddCasbinRule(ctx context.Context, rule CasbinRule) error {
	return s.db.WithContext(ctx).Create(&rule).Error
}

func (s *GormStorage) RemoveCasbinRule(ctx context.Context, rule CasbinRule) error {
	return s.db.WithContext(ctx).Where(&rule).Delete(&CasbinRule{}).Error
}

// Email

func (s *GormStorage) GetEmailConfig(ctx context.Context) (*EmailConfig, error) {
	var config EmailConfig
	ok, err := first(s.db.WithContext(ctx), &config)
	if !ok {
		return nil, err
	}
	return &config, nil
}

func (s *GormStorage) SaveEmailConfig(ctx context.Context, config EmailConfig) error {
	// single row
	if config.ID == "" {
		config.ID = "default"
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&config).Error
}

// Close & Ping

func (s *GormStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Scheduled jobs & locking

func (s *GormStorage) AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	if s.db.Dialector.Name() == "postgres" {
		var ok bool
		err := s.db.WithContext(ctx).Raw("SELECT pg_try_advisory_lock(?)", key).Scan(&ok).Error
		return ok, err
	}
	// sqlite runs single instance
	return true, nil
}

func (s *GormStorage) ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	if s.db.Dialector.Name() == "postgres" {
		var ok bool
		err := s.db.WithContext(ctx).Raw("SELECT pg_advisory_unlock(?)", key).Scan(&ok).Error
		return ok, err
	}
	return true, nil
}

func (s *GormStorage) GetScheduledJob(ctx context.Context, name string) (*ScheduledJob, error) {
	var job ScheduledJob
	ok, err := first(s.db.WithContext(ctx), &job, "name = ?", name)
	if !ok {
		return nil, err
	}
	return &job, nil
}

func (s *GormStorage) UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error {
	status := 0
	if success {
		status = 1
	}
	job := ScheduledJob{
		Name:           name,
		LastRunAt:      started,
		LastDurationMs: dur.Milliseconds(),
		LastSuccess:    status,
		LastError:      errMsg,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(&job).Error
}

// DBStats exposes the underlying connection pool statistics.
func (s *GormStorage) DBStats() (sql.DBStats, bool) {
	sqlDB, err := s.db.DB()
	if err != nil {
		return sql.DBStats{}, false
	}
	return sqlDB.Stats(), true
}

// Driver reports the dialect name ("sqlite" or "postgres").
func (s *GormStorage) Driver() string {
	return s.db.Dialector.Name()
}
