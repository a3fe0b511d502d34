package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ListingID uniquely identifies a marketplace listing.
type ListingID uuid.UUID

// String returns the canonical UUID form.
func (id ListingID) String() string { return uuid.UUID(id).String() }

// ParseListingID parses the textual form of a listing ID.
func ParseListingID(s string) (ListingID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ListingID{}, fmt.Errorf("could not parse listing id: %w", err)
	}

	return ListingID(id), nil
}

// ListingType is the closed set of listing kinds the marketplace publishes.
type ListingType string

const (
	// ListingTypeSalon is a salon-for-sale post.
	ListingTypeSalon ListingType = "salon"
	// ListingTypeJob is a job post.
	ListingTypeJob ListingType = "job"
	// ListingTypeOpportunity is a general opportunity post.
	ListingTypeOpportunity ListingType = "opportunity"
	// ListingTypeBooth is a booth-rental post.
	ListingTypeBooth ListingType = "booth"
)

// ListingTypes lists every valid ListingType.
func ListingTypes() []ListingType {
	return []ListingType{ListingTypeSalon, ListingTypeJob, ListingTypeOpportunity, ListingTypeBooth}
}

// ParseListingType converts a raw string into a ListingType.
func ParseListingType(s string) (ListingType, error) {
	t := ListingType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown listing type %q", s)
	}

	return t, nil
}

// Valid reports whether t is one of the known listing types.
func (t ListingType) Valid() bool {
	switch t {
	case ListingTypeSalon, ListingTypeJob, ListingTypeOpportunity, ListingTypeBooth:
		return true
	default:
		return false
	}
}

// Plural returns the route segment under which listings of this type are served.
func (t ListingType) Plural() string {
	if t == ListingTypeOpportunity {
		return "opportunities"
	}

	return string(t) + "s"
}

// NotFoundPath returns the route users land on when a listing of this type
// cannot be shown.
func (t ListingType) NotFoundPath() string {
	return "/" + string(t) + "-not-found"
}

// Table returns the hosted backend table that stores listings of this type.
func (t ListingType) Table() string {
	switch t {
	case ListingTypeSalon:
		return "salon_sales"
	case ListingTypeBooth:
		return "booth_rentals"
	default:
		return t.Plural()
	}
}

// ListingStatus represents the publication state of a listing.
type ListingStatus string

const (
	// ListingStatusActive marks a listing that is published and visible.
	ListingStatusActive ListingStatus = "ACTIVE"
	// ListingStatusExpired marks a listing past its expiration.
	ListingStatusExpired ListingStatus = "EXPIRED"
)

// Listing is a marketplace item such as a job post or a booth rental.
type Listing struct {
	// ID is the unique identifier of the listing.
	ID ListingID `json:"id"`
	// Type is the listing kind.
	Type ListingType `json:"type"`
	// EditorID is the account that published the listing.
	EditorID EditorID `json:"editorId"`

	// Title is the headline shown on the detail page.
	Title string `json:"title"`
	// Status is the publication state.
	Status ListingStatus `json:"status"`
	// ExpiresAt is when the listing stops being visible; zero means never.
	ExpiresAt time.Time `json:"expiresAt,omitzero"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// Visible reports whether the listing should be shown at the given instant:
// it must be active and not past its expiration.
func (l Listing) Visible(now time.Time) bool {
	if l.Status != ListingStatusActive {
		return false
	}

	return l.ExpiresAt.IsZero() || now.Before(l.ExpiresAt)
}

// ListingReference points at a listing from a route: a listing type and the
// raw identifier taken from the URL. It is built per navigation and never stored.
type ListingReference struct {
	Type ListingType
	ID   string
}

// String renders the reference as "type/id".
func (r ListingReference) String() string {
	return string(r.Type) + "/" + r.ID
}
