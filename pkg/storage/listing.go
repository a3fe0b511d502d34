package storage

import (
	"context"
	"navguard/pkg/domain"
	"time"
)

// ListingStorage persists marketplace listings and answers the existence
// queries behind the listing route guard.
type ListingStorage interface {
	// StoreListings inserts one or more listings and returns the stored rows
	// including generated fields.
	StoreListings(ctx context.Context, listings ...domain.Listing) ([]domain.Listing, error)
	// ListingByID returns the listing with the given ID regardless of its
	// status, or nil when it does not exist.
	ListingByID(ctx context.Context, id domain.ListingID) (*domain.Listing, error)
	// ListingExists reports whether a listing of the given type is visible at now:
	// active and not past its expiration.
	ListingExists(ctx context.Context, t domain.ListingType, id domain.ListingID, now time.Time) (bool, error)
	// ExpireListing marks an active listing expired and returns it, or nil when
	// no active listing with that ID exists.
	ExpireListing(ctx context.Context, id domain.ListingID, now time.Time) (*domain.Listing, error)
	// ExpireDueListings expires every active listing whose expiration is at or
	// before now and returns the expired rows.
	ExpireDueListings(ctx context.Context, now time.Time) ([]domain.Listing, error)
}
