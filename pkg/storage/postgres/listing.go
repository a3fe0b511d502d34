package postgres

import (
	"context"
	"fmt"
	"navguard/pkg/domain"
	"navguard/pkg/storage"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

const (
	listingsTable = "listings"
)

var _ storage.Storage = (*PgSQL)(nil)

func (p *PgSQL) StoreListings(ctx context.Context, listings ...domain.Listing) ([]domain.Listing, error) {
	if len(listings) == 0 {
		return nil, nil
	}

	var result []PgListing
	if err := p.Builder.Insert(listingsTable).
		Rows(domainListingsToPg(listings)).
		Returning(&PgListing{}).
		Executor().ScanStructsContext(ctx, &result); err != nil {
		return nil, fmt.Errorf("could not store listings into pg: %w", err)
	}

	return pgListingsToDomain(result), nil
}

// ListingByID returns a listing by its ID, or nil when not found.
func (p *PgSQL) ListingByID(ctx context.Context, id domain.ListingID) (*domain.Listing, error) {
	var row PgListing
	found, err := p.Builder.From(listingsTable).
		Where(goqu.I("id").Eq(uuid.UUID(id))).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch listing by id: %w", err)
	}
	if !found {
		return nil, nil
	}

	listing := row.ToDomain()

	return &listing, nil
}

// ListingExists checks for an active, unexpired listing of the given type.
func (p *PgSQL) ListingExists(ctx context.Context,
	t domain.ListingType,
	id domain.ListingID,
	now time.Time) (bool, error) {
	var one int
	found, err := p.Builder.From(listingsTable).
		Select(goqu.L("1")).
		Where(
			goqu.I("id").Eq(uuid.UUID(id)),
			goqu.I("type").Eq(string(t)),
			goqu.I("status").Eq(string(domain.ListingStatusActive)),
			goqu.Or(
				goqu.I("expires_at").IsNull(),
				goqu.I("expires_at").Gt(now),
			),
		).
		Limit(1).
		Executor().ScanValContext(ctx, &one)
	if err != nil {
		return false, fmt.Errorf("could not check listing existence in pg: %w", err)
	}

	return found, nil
}

// ExpireListing sets an active listing to expired, returning nil when there
// is nothing to expire.
func (p *PgSQL) ExpireListing(ctx context.Context, id domain.ListingID, now time.Time) (*domain.Listing, error) {
	var row PgListing
	found, err := p.Builder.Update(listingsTable).
		Set(goqu.Record{
			"status":     string(domain.ListingStatusExpired),
			"updated_at": now,
		}).Where(
		goqu.I("id").Eq(uuid.UUID(id)),
		goqu.I("status").Eq(string(domain.ListingStatusActive)),
	).Returning(&PgListing{}).Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not expire listing in pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	listing := row.ToDomain()

	return &listing, nil
}

// ExpireDueListings expires all active listings whose expires_at has passed.
func (p *PgSQL) ExpireDueListings(ctx context.Context, now time.Time) ([]domain.Listing, error) {
	var rows []PgListing
	if err := p.Builder.Update(listingsTable).
		Set(goqu.Record{
			"status":     string(domain.ListingStatusExpired),
			"updated_at": now,
		}).Where(
		goqu.I("status").Eq(string(domain.ListingStatusActive)),
		goqu.I("expires_at").Lte(now),
	).Returning(&PgListing{}).Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not expire due listings in pg: %w", err)
	}

	return pgListingsToDomain(rows), nil
}
