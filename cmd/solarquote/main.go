package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/bher20/solarquote/internal/config"
	"github.com/bher20/solarquote/internal/migrate"
	"github.com/bher20/solarquote/internal/storage"
)

func main() {
	cfg := config.FromEnv()

	root := &cobra.Command{
		Use:           "solarquote",
		Short:         "Solar sizing, payback and battery calculators with an estimate history API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "storage driver: memory, sqlite or postgres")
	root.PersistentFlags().StringVar(&cfg.DBDSN, "db-dsn", cfg.DBDSN, "database DSN (sqlite file path or postgres URL)")

	root.AddCommand(
		serveCmd(&cfg),
		migrateCmd(&cfg),
		calcCmd(),
		digestCmd(&cfg),
		usersCmd(&cfg),
		ratesCmd(&cfg),
	)

	if err := root.Execute(); err != nil {
		log.Printf("solarquote: %v", err)
		os.Exit(1)
	}
}

func sqlDriver(driver string) bool {
	return driver == "sqlite" || driver == "postgres"
}

// openStore opens the configured backend, applying migrations first for SQL
// drivers when auto-migrate is on.
func openStore(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	if cfg.AutoMigrate && sqlDriver(cfg.DBDriver) {
		if err := migrate.Up(ctx, cfg.DBDriver, cfg.DBDSN); err != nil {
			return nil, err
		}
	}
	return storage.Open(ctx, storage.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
}
