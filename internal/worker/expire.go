package worker

import (
	"context"
	"errors"
	"fmt"
	"navguard/internal/listings"
	"navguard/pkg/domain"
	"navguard/pkg/logger"
	"navguard/pkg/serrors"

	"github.com/riverqueue/river"
	"go.uber.org/zap"
)

// ExpireListingWorker expires the listing named by its job. A listing that is
// gone or already expired cancels the job instead of retrying it.
type ExpireListingWorker struct {
	river.WorkerDefaults[listings.ExpireListingJobArgs]

	service listings.Service
}

// NewExpireListingWorker constructs an ExpireListingWorker.
func NewExpireListingWorker(service listings.Service) *ExpireListingWorker {
	return &ExpireListingWorker{service: service}
}

// Work expires a single listing.
func (w *ExpireListingWorker) Work(ctx context.Context, job *river.Job[listings.ExpireListingJobArgs]) error {
	ctx = logger.WithFields(ctx, zap.Int64("jobID", job.ID), zap.String("listingID", job.Args.ListingID))

	id, err := domain.ParseListingID(job.Args.ListingID)
	if err != nil {
		return river.JobCancel(err) //nolint: wrapcheck
	}

	if _, err := w.service.Expire(ctx, id); err != nil {
		if errors.Is(err, serrors.ErrNotFound) || errors.Is(err, serrors.ErrConflict) {
			logger.Debug(ctx, "listing needs no expiration", zap.Error(err))

			return river.JobCancel(err) //nolint: wrapcheck
		}

		logger.Error(ctx, "error in expiring listing", zap.Error(err))

		return fmt.Errorf("could not expire listing: %w", err)
	}

	logger.Info(ctx, "listing expired")

	return nil
}

// SweepExpiredWorker expires every listing past its expiration.
type SweepExpiredWorker struct {
	river.WorkerDefaults[listings.SweepExpiredJobArgs]

	service listings.Service
}

// NewSweepExpiredWorker constructs a SweepExpiredWorker.
func NewSweepExpiredWorker(service listings.Service) *SweepExpiredWorker {
	return &SweepExpiredWorker{service: service}
}

// Work runs one sweep.
func (w *SweepExpiredWorker) Work(ctx context.Context, job *river.Job[listings.SweepExpiredJobArgs]) error {
	ctx = logger.WithFields(ctx, zap.Int64("jobID", job.ID))

	n, err := w.service.ExpireDue(ctx)
	if err != nil {
		logger.Error(ctx, "error in sweeping expired listings", zap.Error(err))

		return fmt.Errorf("could not sweep expired listings: %w", err)
	}

	if n > 0 {
		logger.Info(ctx, "expired listings swept", zap.Int("count", n))
	}

	return nil
}
