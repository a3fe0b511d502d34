package listings

import (
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// ExpireListingJobArgs expires one listing at its ExpiresAt.
type ExpireListingJobArgs struct {
	// ListingID is unique so a listing never has two pending expirations.
	ListingID string `json:"listing_id" river:"unique"`

	maxAttempts int
	scheduledAt time.Time
}

// Kind returns the River job kind used to register and dispatch the expire worker.
func (args ExpireListingJobArgs) Kind() string { return "ExpireListingJob" }

// InsertOpts schedules the job at the listing's expiration.
func (args ExpireListingJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: args.maxAttempts,
		ScheduledAt: args.scheduledAt,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable,
				rivertype.JobStatePending,
				rivertype.JobStateRunning,
				rivertype.JobStateRetryable,
				rivertype.JobStateScheduled,
			},
		},
	}
}

// SweepExpiredJobArgs expires every listing past its expiration. It runs
// periodically and catches listings whose scheduled job was lost.
type SweepExpiredJobArgs struct{}

// Kind returns the River job kind used to register and dispatch the sweep worker.
func (SweepExpiredJobArgs) Kind() string { return "SweepExpiredListingsJob" }
