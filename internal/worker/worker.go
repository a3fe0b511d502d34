// Package worker runs the background jobs that expire listings: one job per
// listing scheduled at its expiration, plus a periodic sweep.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"navguard/internal/config"
	"navguard/internal/listings"
	"navguard/pkg/logger"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.uber.org/zap/exp/zapslog"
)

// Options configure the job runtime.
type Options struct {
	// MaxWorkers is the number of jobs worked concurrently.
	MaxWorkers int
	// SweepInterval is how often the expiration sweep runs.
	SweepInterval time.Duration
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		MaxWorkers:    cfg.Listings.MaxWorkers,
		SweepInterval: cfg.Listings.SweepInterval,
	}
}

// Workers registers every listing worker.
func Workers(service listings.Service) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker(workers, NewExpireListingWorker(service))
	river.AddWorker(workers, NewSweepExpiredWorker(service))

	return workers
}

// PeriodicJobs returns the jobs enqueued on a fixed interval.
func PeriodicJobs(options Options) []*river.PeriodicJob {
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(options.SweepInterval),
			func() (river.JobArgs, *river.InsertOpts) {
				return listings.SweepExpiredJobArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}

// Start creates and starts a River client working listing jobs.
func Start(ctx context.Context, dbPool *pgxpool.Pool, service listings.Service, options Options) (*river.Client[pgx.Tx], error) {
	riverClient, err := river.NewClient(riverpgxv5.New(dbPool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: options.MaxWorkers},
		},
		Workers:      Workers(service),
		PeriodicJobs: PeriodicJobs(options),
		Logger:       slog.New(zapslog.NewHandler(logger.Get(ctx).Core())),
	})
	if err != nil {
		return nil, fmt.Errorf("could not create river queue client: %w", err)
	}

	if err := riverClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("could not start river queue client: %w", err)
	}

	return riverClient, nil
}
