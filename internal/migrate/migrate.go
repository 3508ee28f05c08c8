package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	// registers the "sqlite" database/sql driver also used by the GORM dialector
	_ "github.com/glebarez/go-sqlite"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations
var embedMigrations embed.FS

const defaultSQLiteDSN = "solarquote.db"

func normalizeDriver(driver string) string {
	switch driver {
	case "", "sqlite", "sqlite3":
		return "sqlite"
	case "postgres", "pgx":
		return "postgres"
	default:
		return driver
	}
}

func configureGoose(driver string) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetTableName("schema_migrations")

	switch normalizeDriver(driver) {
	case "sqlite":
		return goose.SetDialect("sqlite3")
	case "postgres":
		return goose.SetDialect("postgres")
	}
	return fmt.Errorf("unsupported driver for goose: %s", driver)
}

func migrationDir(driver string) string {
	if normalizeDriver(driver) == "postgres" {
		return "migrations/postgres"
	}
	return "migrations/sqlite"
}

func openDB(driver, dsn string) (*sql.DB, error) {
	if normalizeDriver(driver) == "postgres" {
		return sql.Open("pgx", dsn)
	}
	if dsn == "" {
		dsn = defaultSQLiteDSN
	}
	return sql.Open("sqlite", dsn)
}

func withDB(driver, dsn string, fn func(db *sql.DB, dir string) error) error {
	if err := configureGoose(driver); err != nil {
		return err
	}
	db, err := openDB(driver, dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db, migrationDir(driver))
}

func Up(ctx context.Context, driver, dsn string) error {
	return withDB(driver, dsn, func(db *sql.DB, dir string) error {
		return goose.UpContext(ctx, db, dir)
	})
}

func Down(ctx context.Context, driver, dsn string) error {
	return withDB(driver, dsn, func(db *sql.DB, dir string) error {
		return goose.DownContext(ctx, db, dir)
	})
}

func Status(ctx context.Context, driver, dsn string) error {
	return withDB(driver, dsn, func(db *sql.DB, dir string) error {
		return goose.StatusContext(ctx, db, dir)
	})
}

// Version reports the current schema version.
func Version(ctx context.Context, driver, dsn string) (int64, error) {
	var v int64
	err := withDB(driver, dsn, func(db *sql.DB, dir string) error {
		var err error
		v, err = goose.GetDBVersionContext(ctx, db)
		return err
	})
	return v, err
}
