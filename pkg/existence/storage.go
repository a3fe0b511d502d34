package existence

import (
	"context"
	"fmt"
	"navguard/pkg/domain"
	"navguard/pkg/serrors"
	"navguard/pkg/storage"
	"time"
)

// StorageChecker answers existence checks from the listings table.
type StorageChecker struct {
	storage storage.ListingStorage
	now     func() time.Time
}

var _ Checker = (*StorageChecker)(nil)

// NewStorageChecker returns a checker reading from s.
func NewStorageChecker(s storage.ListingStorage) *StorageChecker {
	return &StorageChecker{storage: s, now: time.Now}
}

// Exists reports whether an active, unexpired listing exists. Identifiers
// that are not UUIDs cannot exist in the table and are answered without I/O.
func (c *StorageChecker) Exists(ctx context.Context, id string, t domain.ListingType) (bool, error) {
	if !t.Valid() {
		return false, serrors.With(serrors.ErrBadRequest, "unknown listing type %q", t)
	}

	listingID, err := domain.ParseListingID(id)
	if err != nil {
		return false, nil
	}

	ok, err := c.storage.ListingExists(ctx, t, listingID, c.now())
	if err != nil {
		return false, fmt.Errorf("could not check listing %s/%s: %w", t, id, err)
	}

	return ok, nil
}
