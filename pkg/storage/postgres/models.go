package postgres

import (
	"database/sql"
	"navguard/pkg/domain"
	"time"

	"github.com/google/uuid"
)

// PgListing is the row shape of the listings table.
type PgListing struct {
	ID       uuid.UUID `db:"id"        goqu:"skipinsert"`
	Type     string    `db:"type"`
	EditorID uuid.UUID `db:"editor_id"`

	Title     string       `db:"title"`
	Status    string       `db:"status"`
	ExpiresAt sql.NullTime `db:"expires_at"`

	CreatedAt time.Time    `db:"created_at" goqu:"skipinsert"`
	UpdatedAt sql.NullTime `db:"updated_at" goqu:"skipinsert"`
}

func (p *PgListing) ToDomain() domain.Listing {
	return domain.Listing{
		ID:        domain.ListingID(p.ID),
		Type:      domain.ListingType(p.Type),
		EditorID:  domain.EditorID(p.EditorID),
		Title:     p.Title,
		Status:    domain.ListingStatus(p.Status),
		ExpiresAt: p.ExpiresAt.Time,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt.Time,
	}
}

func (p *PgListing) FromDomain(listing domain.Listing) {
	status := listing.Status
	if status == "" {
		status = domain.ListingStatusActive
	}

	*p = PgListing{
		ID:       uuid.UUID(listing.ID),
		Type:     string(listing.Type),
		EditorID: uuid.UUID(listing.EditorID),
		Title:    listing.Title,
		Status:   string(status),
		ExpiresAt: sql.NullTime{
			Time:  listing.ExpiresAt,
			Valid: !listing.ExpiresAt.IsZero(),
		},
		CreatedAt: listing.CreatedAt,
		UpdatedAt: sql.NullTime{
			Time:  listing.UpdatedAt,
			Valid: !listing.UpdatedAt.IsZero(),
		},
	}
}

func domainListingsToPg(listings []domain.Listing) []PgListing {
	out := make([]PgListing, len(listings))
	for i := range out {
		out[i].FromDomain(listings[i])
	}

	return out
}

func pgListingsToDomain(listings []PgListing) []domain.Listing {
	out := make([]domain.Listing, 0, len(listings))
	for _, listing := range listings {
		out = append(out, listing.ToDomain())
	}

	return out
}
