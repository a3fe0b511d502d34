package main

import (
	"context"
	"errors"
	"navguard/internal/api"
	"navguard/internal/config"
	"navguard/internal/listings"
	"navguard/internal/worker"
	"navguard/pkg/existence"
	"navguard/pkg/logger"
	"navguard/pkg/metrics"
	"navguard/pkg/storage/postgres"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func setupServer(ctx context.Context, cfg *config.Config, deps api.Deps) func(ctx context.Context) {
	server, err := api.NewServer(deps, api.NewOptions(cfg))
	if err != nil {
		logger.Fatal(ctx, "could not create webserver", zap.Error(err))
	}

	go func() {
		logger.Info(ctx, "starting webserver...", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "could not start webserver", zap.Error(err))
			}
		}
	}()

	return func(ctx context.Context) {
		logger.Info(ctx, "stopping webserver...")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(ctx, "could not stop webserver", zap.Error(err))
		}
	}
}

// setupChecker builds the existence checker the route guard and the v1 API
// use, and the invalidator listings call when they expire. The invalidator is
// nil when caching is disabled.
func setupChecker(
	ctx context.Context,
	cfg *config.Config,
	strg *postgres.PgSQL,
	rec *metrics.Recorder) (existence.Checker, listings.CacheInvalidator, func()) {
	var checker existence.Checker
	switch cfg.Guard.Backend {
	case config.GuardBackendRemote:
		httpClient := &http.Client{Timeout: cfg.Guard.CheckTimeout}
		checker = existence.Observe(
			existence.NewHTTPChecker(httpClient, cfg.Guard.RemoteBaseURL, cfg.Guard.RemoteAPIKey),
			config.GuardBackendRemote, rec)
	default:
		checker = existence.Observe(existence.NewStorageChecker(strg), config.GuardBackendPostgres, rec)
	}

	if !cfg.Redis.Enabled {
		return checker, nil, func() {}
	}

	client, closeRedis := getRedis(ctx, cfg)
	cached := existence.NewCached(checker, existence.NewRedisCache(client), existence.CachedOptions{
		PositiveTTL: cfg.Redis.ExistenceTTL,
		NegativeTTL: cfg.Redis.NegativeTTL,
		CallTimeout: cfg.Guard.CheckTimeout,
		Metrics:     rec,
	})

	return cached, cached, closeRedis
}

func serveCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts API server and background workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			strg, closeStrg := getPostgres(ctx, cfg)
			defer closeStrg()

			mp, err := metrics.NewPrometheusProvider(prometheus.DefaultRegisterer)
			if err != nil {
				logger.Fatal(ctx, "could not create meter provider", zap.Error(err))
			}
			rec, err := metrics.New(mp)
			if err != nil {
				logger.Fatal(ctx, "could not create metrics", zap.Error(err))
			}

			checker, invalidator, closeChecker := setupChecker(ctx, cfg, strg, rec)
			defer closeChecker()

			service := listings.New(strg, invalidator, listings.NewOptions(cfg))

			riverClient, err := worker.Start(ctx, strg.Pool, service, worker.NewOptions(cfg))
			if err != nil {
				logger.Fatal(ctx, "could not start workers", zap.Error(err))
			}

			stopWebserver := setupServer(ctx, cfg, api.Deps{
				Listings:  service,
				Checker:   checker,
				Sanitizer: newSanitizer(cfg),
				Metrics:   rec,
			})

			// wait for interrupt
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
			defer cancel()

			stopWebserver(shutdownCtx)

			logger.Info(shutdownCtx, "stopping workers...")
			if err := riverClient.Stop(shutdownCtx); err != nil {
				logger.Error(shutdownCtx, "could not stop workers", zap.Error(err))
			}
			if err := mp.Shutdown(shutdownCtx); err != nil {
				logger.Warn(shutdownCtx, "could not shut down meter provider", zap.Error(err))
			}
		},
	}

	return cmd
}
