// Package listings manages the marketplace listings whose existence the route
// guard checks: publishing them, reading visible ones, and expiring them on
// schedule. Every expiration evicts the cached existence answer so guarded
// routes stop admitting the listing straight away.
package listings

import (
	"context"
	"navguard/pkg/domain"
	"time"
)

// NewListing is the input for publishing a listing.
type NewListing struct {
	Type      domain.ListingType
	Title     string
	ExpiresAt time.Time
}

//go:generate mockgen -package mocklistings -source=interface.go -destination=mock/mocklistings.go *
type Service interface {
	Create(ctx context.Context, editorID domain.EditorID, listing NewListing) (*domain.Listing, error)
	Get(ctx context.Context, ref domain.ListingReference) (*domain.Listing, error)
	Expire(ctx context.Context, id domain.ListingID) (*domain.Listing, error)
	ExpireDue(ctx context.Context) (int, error)
}

// CacheInvalidator evicts cached existence answers.
type CacheInvalidator interface {
	Forget(ctx context.Context, ref domain.ListingReference) error
}
