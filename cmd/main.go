// Package main provides the CLI entrypoint for the navguard service.
// It wires subcommands (serve, migrate, jwt, sanitize), loads configuration, and initializes logging.
package main

import (
	"context"
	"flag"
	"log"
	"navguard/internal/config"
	"navguard/pkg/existence"
	"navguard/pkg/logger"
	"navguard/pkg/redirect"
	"navguard/pkg/storage/postgres"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// getPostgres creates a PostgreSQL client using configuration values and returns it
// along with a cleanup function to close the connection pool.
func getPostgres(ctx context.Context, cfg *config.Config) (*postgres.PgSQL, func()) {
	pgsql, err := postgres.New(ctx, postgres.Options{
		Username:           cfg.Database.Username,
		Password:           cfg.Database.Password,
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		Database:           cfg.Database.DatabaseName,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime:    cfg.Database.ConnMaxIdleTime,
		MaxOpenConnections: cfg.Database.MaxOpenConnections,
		MaxIdleConnections: cfg.Database.MaxIdleConnections,
		SslMode:            cfg.Database.SslMode,
	})
	if err != nil {
		logger.Fatal(ctx, "could not create postgres storage", zap.Error(err))
	}

	return pgsql, func() {
		logger.Info(ctx, "closing postgres client...")
		if err = pgsql.Close(); err != nil {
			logger.Warn(ctx, "could not close postgres connection", zap.Error(err))
		}
	}
}

// getRedis creates the existence cache client. An unreachable server is only
// logged: checks fall through to the backend until it comes back.
func getRedis(ctx context.Context, cfg *config.Config) (*redis.Client, func()) {
	client := existence.NewRedisClient(existence.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := existence.NewRedisCache(client).Ping(ctx); err != nil {
		logger.Warn(ctx, "redis is not reachable, existence checks will not be cached until it is",
			zap.String("addr", cfg.Redis.Addr),
			zap.Error(err))
	}

	return client, func() {
		logger.Info(ctx, "closing redis client...")
		if err := client.Close(); err != nil {
			logger.Warn(ctx, "could not close redis connection", zap.Error(err))
		}
	}
}

// newSanitizer builds the redirect sanitizer from the redirect config section.
func newSanitizer(cfg *config.Config) *redirect.Sanitizer {
	return redirect.New(redirect.Options{
		TrustedDomain:   cfg.Redirect.TrustedDomain,
		Fallback:        cfg.Redirect.FallbackPath,
		MaxLength:       cfg.Redirect.MaxLength,
		AllowedPrefixes: cfg.Redirect.AllowedPrefixes,
		SignInPrefixes:  cfg.Redirect.SignInPrefixes,
		NestedParams:    cfg.Redirect.NestedParams,
	})
}

// main sets up the root Cobra command, loads configuration and logging, and
// registers subcommands before executing the CLI.
func main() {
	rootCmd := &cobra.Command{
		Use: "navguard",
	}

	// there is no way to access flags before command execution in cobra.
	// configPath here is parsed using the standard flags package.
	// following line is just added to prevent errors when Cobra is parsing the flags.
	rootCmd.PersistentFlags().StringP("config", "c", "config.yml", "Config File Path")

	configPath := flag.String("c", "config.yml", "The config file path")
	flag.Parse()

	log.Println("loading config ...")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("could not load config file", err)
	}

	logger.Setup(cfg.Environment, cfg.LogLevel)

	ctx := context.Background()

	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "captured panic, exiting...", zap.Any("panic", p))
			_ = logger.Get(ctx).Sync()

			panic(p)
		}
	}()

	rootCmd.AddCommand(
		migrateCommand(cfg),
		serveCommand(cfg),
		JWTCommand(cfg),
		sanitizeCommand(cfg),
	)

	err = rootCmd.Execute()
	_ = logger.Get(ctx).Sync()
	if err != nil {
		os.Exit(1) //nolint: gocritic
	}
}
