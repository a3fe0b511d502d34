package listings

import (
	"context"
	"errors"
	"fmt"
	"navguard/internal/config"
	"navguard/pkg/domain"
	"navguard/pkg/logger"
	"navguard/pkg/serrors"
	"navguard/pkg/storage"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

const maxTitleLength = 200

// Options configure how expiration jobs are enqueued.
type Options struct {
	// MaxAttempts is the maximum number of attempts for an expiration job.
	MaxAttempts int
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		MaxAttempts: cfg.Listings.MaxAttempts,
	}
}

type service struct {
	options Options
	storage storage.Storage
	cache   CacheInvalidator
	now     func() time.Time
}

// New creates a Service backed by storage. cache may be nil.
func New(storage storage.Storage, cache CacheInvalidator, options Options) Service {
	return &service{
		options: options,
		storage: storage,
		cache:   cache,
		now:     time.Now,
	}
}

// Create stores a listing and, in the same transaction, schedules its
// expiration when it has one.
func (s *service) Create(ctx context.Context, editorID domain.EditorID, in NewListing) (*domain.Listing, error) {
	in.Title = strings.TrimSpace(in.Title)
	switch {
	case !in.Type.Valid():
		return nil, serrors.With(serrors.ErrBadRequest, "unknown listing type %q", in.Type)
	case in.Title == "":
		return nil, serrors.With(serrors.ErrBadRequest, "title is required")
	case utf8.RuneCountInString(in.Title) > maxTitleLength:
		return nil, serrors.With(serrors.ErrBadRequest, "title must be at most %d characters", maxTitleLength)
	case !in.ExpiresAt.IsZero() && !in.ExpiresAt.After(s.now()):
		return nil, serrors.With(serrors.ErrBadRequest, "expiresAt must be in the future")
	}

	var listing *domain.Listing
	if err := s.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		res, err := tx.StoreListings(ctx, domain.Listing{
			Type:      in.Type,
			EditorID:  editorID,
			Title:     in.Title,
			Status:    domain.ListingStatusActive,
			ExpiresAt: in.ExpiresAt,
		})
		if err != nil {
			return fmt.Errorf("could not store listing: %w", err)
		}
		if len(res) != 1 {
			return fmt.Errorf("expected one stored listing, got %d", len(res))
		}
		listing = &res[0]

		if listing.ExpiresAt.IsZero() {
			return nil
		}

		if _, err := tx.AddJob(ctx, ExpireListingJobArgs{
			ListingID:   listing.ID.String(),
			maxAttempts: s.options.MaxAttempts,
			scheduledAt: listing.ExpiresAt,
		}, nil); err != nil {
			return fmt.Errorf("could not schedule expiration: %w", err)
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("could not create listing: %w", err)
	}

	return listing, nil
}

// Get returns the listing ref points at when it is visible.
func (s *service) Get(ctx context.Context, ref domain.ListingReference) (*domain.Listing, error) {
	id, err := domain.ParseListingID(ref.ID)
	if err != nil {
		return nil, serrors.With(serrors.ErrNotFound, "listing not found")
	}

	listing, err := s.storage.ListingByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not get listing: %w", err)
	}
	if listing == nil || listing.Type != ref.Type || !listing.Visible(s.now()) {
		return nil, serrors.With(serrors.ErrNotFound, "listing not found")
	}

	return listing, nil
}

// Expire expires an active listing. Expiring an already expired listing is a
// conflict.
func (s *service) Expire(ctx context.Context, id domain.ListingID) (*domain.Listing, error) {
	listing, err := s.storage.ExpireListing(ctx, id, s.now())
	if err != nil {
		return nil, fmt.Errorf("could not expire listing: %w", err)
	}
	if listing == nil {
		existing, err := s.storage.ListingByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("could not get listing: %w", err)
		}
		if existing == nil {
			return nil, serrors.With(serrors.ErrNotFound, "listing not found")
		}

		return nil, serrors.With(serrors.ErrConflict, "listing already expired")
	}

	s.forget(ctx, *listing)

	return listing, nil
}

// ExpireDue expires every listing past its expiration and returns how many
// were expired.
func (s *service) ExpireDue(ctx context.Context) (int, error) {
	expired, err := s.storage.ExpireDueListings(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("could not expire due listings: %w", err)
	}

	for _, listing := range expired {
		s.forget(ctx, listing)
	}

	return len(expired), nil
}

func (s *service) forget(ctx context.Context, listing domain.Listing) {
	if s.cache == nil {
		return
	}

	ref := domain.ListingReference{Type: listing.Type, ID: listing.ID.String()}
	if err := s.cache.Forget(ctx, ref); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn(ctx, "could not evict cached listing existence",
			zap.String("listing", ref.String()),
			zap.Error(err))
	}
}
