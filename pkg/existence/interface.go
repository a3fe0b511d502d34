// Package existence answers the question the listing route guard asks before
// rendering a detail page: does a listing with this identifier and type exist
// and is it visible right now. Checkers are backed by the local listings
// table, by the hosted REST backend, and by a Redis cache in front of either.
package existence

import (
	"context"
	"navguard/pkg/domain"
	"time"
)

// Checker reports whether the listing identified by id and t is visible.
// A false result with a nil error means "not found"; an error means the
// answer is unknown.
//
//go:generate mockgen -package mockexistence -source=interface.go -destination=mock/mockexistence.go *
type Checker interface {
	Exists(ctx context.Context, id string, t domain.ListingType) (bool, error)
}

// Cache stores existence answers keyed by listing reference.
type Cache interface {
	// Get returns the cached answer; found is false on a miss.
	Get(ctx context.Context, key string) (exists bool, found bool, err error)
	// Set caches an answer for ttl.
	Set(ctx context.Context, key string, exists bool, ttl time.Duration) error
	// Delete evicts a cached answer.
	Delete(ctx context.Context, key string) error
}

// Func adapts a plain function to Checker.
type Func func(ctx context.Context, id string, t domain.ListingType) (bool, error)

// Exists calls f.
func (f Func) Exists(ctx context.Context, id string, t domain.ListingType) (bool, error) {
	return f(ctx, id, t)
}
