// Package main is the entry point for the HydroSnap API server.
//
// It loads configuration, connects Postgres and the optional Redis cache,
// builds the alert engine and the reading pipeline, mounts the v1 handlers
// on the core chassis and serves HTTP until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"hydrosnap/internal/alerts"
	"hydrosnap/internal/api/handlers"
	"hydrosnap/internal/app"
	"hydrosnap/internal/cache"
	"hydrosnap/internal/config"
	"hydrosnap/internal/core"
	"hydrosnap/internal/credential"
	"hydrosnap/internal/readings"
	"hydrosnap/internal/status"
	"hydrosnap/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := app.NewLogger(cfg)
	logger.Info("hydrosnap API starting",
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx := context.Background()
	deps, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing dependencies: %w", err)
	}

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		_ = deps.Close()
		return fmt.Errorf("creating server: %w", err)
	}
	srv.Closers = append(srv.Closers, deps)
	srv.HealthProbes = append(srv.HealthProbes, core.PingProbe{ProbeName: "database", Ping: deps.Pool.Ping})

	typed := types.NewSlogAdapter(logger)
	var sites alerts.SiteRepository = deps.Sites

	if cfg.Redis.Addr != "" {
		rdb, err := cache.Connect(ctx, cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password.Unmask(),
			DB:       cfg.Redis.DB,
		}, logger)
		if err != nil {
			_ = srv.Shutdown(ctx)
			return fmt.Errorf("connecting redis: %w", err)
		}
		srv.Closers = append(srv.Closers, rdb)
		srv.HealthProbes = append(srv.HealthProbes, core.PingProbe{
			ProbeName: "redis",
			Ping:      func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
		sites = cache.NewThresholdCache(deps.Sites, rdb, cfg.Redis.ThresholdTTL, typed)
		srv.RateLimiter = cache.NewRateLimiter(rdb)
	}

	mountHandlers(srv, cfg, deps, sites, typed)
	srv.MountRoutes()

	return serve(srv, cfg, logger)
}

// mountHandlers builds the reading pipeline and registers the v1 routes.
func mountHandlers(srv *core.Server, cfg *config.Config, deps *app.App, sites alerts.SiteRepository, logger types.Logger) {
	codec := credential.NewCodec(cfg.Credential.Secret, credential.Options{
		MaxTokenAge:     cfg.Credential.MaxTokenAge,
		StrictIntegrity: cfg.Credential.StrictIntegrity,
		Logger:          logger,
	})

	svcCfg := readings.ServiceConfig{
		Decoder:   codec,
		Sites:     sites,
		Readings:  deps.Readings,
		Processor: deps.Engine,
		Logger:    logger,
	}
	if deps.Metrics != nil {
		svcCfg.Metrics = deps.Metrics
	}
	svc := readings.NewService(svcCfg)

	var scanLimit func(http.Handler) http.Handler
	if srv.RateLimiter != nil && cfg.Server.ScanRateLimit > 0 {
		scanLimit = srv.ScanRateLimit
	}

	clock := types.RealClock{}
	credentialHandler := handlers.NewCredentialHandler(svc, srv.Validator, clock, srv.Logger, scanLimit)
	readingHandler := handlers.NewReadingHandler(svc, srv.Validator, srv.Logger, scanLimit)
	siteHandler := handlers.NewSiteHandler(deps.Sites,
		status.NewEnricher(deps.Sites, cfg.Monitoring.StalenessWindow), clock, srv.Logger)
	alertHandler := handlers.NewAlertHandler(deps.Alerts, srv.Validator, srv.Logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, func(r chi.Router) {
		credentialHandler.RegisterRoutes(r)
		readingHandler.RegisterRoutes(r)
		siteHandler.RegisterRoutes(r)
		alertHandler.RegisterRoutes(r)
	})
}

// serve runs the HTTP server until a shutdown signal or a listener error.
func serve(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			_ = srv.Shutdown(context.Background())
			return fmt.Errorf("server error: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}
