package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/DaveCybr/field-service-hub-sub004/internal/availability"
	"github.com/DaveCybr/field-service-hub-sub004/internal/config"
	"github.com/DaveCybr/field-service-hub-sub004/internal/dispatch"
	"github.com/DaveCybr/field-service-hub-sub004/internal/httpapi"
	"github.com/DaveCybr/field-service-hub-sub004/internal/logger"
	"github.com/DaveCybr/field-service-hub-sub004/internal/skills"
	"github.com/DaveCybr/field-service-hub-sub004/internal/store/postgres"
	"github.com/DaveCybr/field-service-hub-sub004/internal/telemetry"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "dispatch-service",
	Short: "Field service dispatch engine",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the periodic auto-dispatch loop",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Run one auto-dispatch batch and exit",
	RunE:  runDispatch,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file")
	rootCmd.AddCommand(serveCmd, migrateCmd, dispatchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Logging, "dispatch-service")

	shutdownTelemetry := telemetry.Setup("dispatch-service")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	pool, err := newPool(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	st := postgres.NewStore(pool, postgres.Options{
		GeofenceRadiusM: cfg.Geofence.RadiusMeters,
	})
	resolver := availability.NewResolver(st, log)
	dispatcher := dispatch.New(st, skills.ContainsMatcher{}, log, dispatch.Options{
		MaxJobsPerRun: cfg.Dispatch.MaxJobsPerRun,
		ApprovalMode:  cfg.Dispatch.ApprovalMode,
	})

	handler := httpapi.NewHandler(st, resolver, dispatcher.Run, log)
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:         cfg.HTTP.RateLimitPerMinute,
		IPBurst:             cfg.HTTP.RateLimitBurst,
		DispatcherPerMinute: cfg.HTTP.RateLimitPerMinute,
		DispatcherBurst:     cfg.HTTP.RateLimitBurst,
	})

	otelHandler := otelhttp.NewHandler(httpapi.LoggingMiddleware(log, limiter.Middleware(handler.Routes())), "dispatch-service")
	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      otelHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("dispatch-service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	stopScan := make(chan struct{})
	go func() {
		interval := cfg.Dispatch.ScanInterval()
		if interval <= 0 {
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopScan:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				summary, err := dispatcher.Run(ctx, "scheduled")
				cancel()
				if err != nil {
					log.Error().Err(err).Msg("scheduled dispatch run failed")
					continue
				}
				if summary.Assigned > 0 || summary.Failed > 0 {
					log.Info().
						Int("scanned", summary.Scanned).
						Int("assigned", summary.Assigned).
						Int("skipped", summary.Skipped).
						Int("failed", summary.Failed).
						Msg("scheduled dispatch run")
				}
			}
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	close(stopScan)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Logging, "migrate")

	if err := postgres.Migrate(cfg.Database.DSN); err != nil {
		return err
	}
	log.Info().Msg("migrations applied")
	return nil
}

func runDispatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Logging, "dispatch")

	pool, err := newPool(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	st := postgres.NewStore(pool, postgres.Options{
		GeofenceRadiusM: cfg.Geofence.RadiusMeters,
	})
	dispatcher := dispatch.New(st, skills.ContainsMatcher{}, log, dispatch.Options{
		MaxJobsPerRun: cfg.Dispatch.MaxJobsPerRun,
		ApprovalMode:  cfg.Dispatch.ApprovalMode,
	})

	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()
	summary, err := dispatcher.Run(ctx, "cli")
	if err != nil {
		return err
	}
	log.Info().
		Int("scanned", summary.Scanned).
		Int("assigned", summary.Assigned).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("dispatch run complete")
	return nil
}

func newPool(cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.Database.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Database.MaxConns
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	return pool, nil
}
