package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bher20/solarquote/internal/alerting"
	"github.com/bher20/solarquote/internal/api"
	"github.com/bher20/solarquote/internal/auth"
	"github.com/bher20/solarquote/internal/cache"
	"github.com/bher20/solarquote/internal/config"
	"github.com/bher20/solarquote/internal/cron"
	"github.com/bher20/solarquote/internal/estimates"
	"github.com/bher20/solarquote/internal/metrics"
	"github.com/bher20/solarquote/internal/notification"
	"github.com/bher20/solarquote/internal/states"
	"github.com/bher20/solarquote/internal/storage"
)

func serveCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the digest worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.Port, "port", cfg.Port, "listen port")
	cmd.Flags().BoolVar(&cfg.AutoMigrate, "auto-migrate", cfg.AutoMigrate, "apply schema migrations on startup")
	cmd.Flags().StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "redis address for the estimate cache; empty uses an in-process cache")
	cmd.Flags().IntVar(&cfg.RateLimitPerMinute, "rate-limit", cfg.RateLimitPerMinute, "calculator requests per client per minute, 0 disables")
	return cmd
}

func newCache(cfg *config.Config) (cache.Cache, func()) {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(), func() {}
	}
	rc := cache.NewRedis(cfg.RedisAddr)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		log.Printf("cache: redis %s unreachable, continuing anyway: %v", cfg.RedisAddr, err)
	} else {
		log.Printf("cache: using redis at %s", cfg.RedisAddr)
	}
	return rc, func() { _ = rc.Close() }
}

// reportDBPool publishes connection pool gauges for SQL backends.
func reportDBPool(ctx context.Context, st storage.Storage) {
	gs, ok := st.(*storage.GormStorage)
	if !ok {
		return
	}
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		stats, ok := gs.DBStats()
		if ok {
			metrics.UpdateDBPoolMetrics(gs.Driver(), stats.OpenConnections, stats.Idle, stats.InUse, stats.WaitCount)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	c, closeCache := newCache(cfg)
	defer closeCache()

	stateSvc := states.NewService(st)
	estSvc := estimates.NewService(st, estimates.Options{
		Cache:    c,
		CacheTTL: cfg.CacheTTL,
		States:   stateSvc,
	})
	authSvc, err := auth.NewService(st)
	if err != nil {
		return err
	}
	notifySvc := notification.NewService(st)

	var limiter *api.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = api.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
		defer limiter.Stop()
	}

	mux := api.NewMux(api.Deps{
		Store:     st,
		Estimates: estSvc,
		States:    stateSvc,
		Auth:      authSvc,
		Notify:    notifySvc,
		Limiter:   limiter,
	})

	go reportDBPool(ctx, st)
	go func() {
		err := cron.RunDigest(ctx, cron.Deps{
			Store:     st,
			Estimates: estSvc,
			Mailer:    notifySvc,
			Alerter: alerting.NewAlerter(alerting.AlertConfig{
				WebhookURL:  cfg.AlertWebhookURL,
				WebhookType: cfg.AlertWebhookType,
			}),
			Schedule: cfg.DigestSchedule,
			To:       cfg.DigestTo,
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("digest: worker stopped: %v", err)
		}
	}()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("solarquote listening on %s (storage=%s)", server.Addr, cfg.DBDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		log.Printf("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	log.Printf("server exited")
	return nil
}
