package v1handler

import (
	"navguard/internal/listings"
	"navguard/pkg/domain"
	"navguard/pkg/serrors"
	"net/http"
	"time"
)

// Listing is the v1 representation of a listing.
type Listing struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Status    string     `json:"status"`
	Path      string     `json:"path"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// CreateListingRequest is the body of POST /v1/listings.
type CreateListingRequest struct {
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// ExistsResponse is the body of GET /v1/listings/{type}/{id}/exists.
type ExistsResponse struct {
	Exists bool `json:"exists"`
}

func DomainListingToV1(in *domain.Listing) Listing {
	out := Listing{
		ID:        in.ID.String(),
		Type:      string(in.Type),
		Title:     in.Title,
		Status:    string(in.Status),
		Path:      "/" + in.Type.Plural() + "/" + in.ID.String(),
		CreatedAt: in.CreatedAt,
	}
	if !in.ExpiresAt.IsZero() {
		expiresAt := in.ExpiresAt
		out.ExpiresAt = &expiresAt
	}
	if !in.UpdatedAt.IsZero() {
		updatedAt := in.UpdatedAt
		out.UpdatedAt = &updatedAt
	}

	return out
}

func parseType(raw string) (domain.ListingType, error) {
	t, err := domain.ParseListingType(raw)
	if err != nil {
		return "", serrors.Wrap(serrors.ErrBadRequest, err, "unknown listing type %q", raw)
	}

	return t, nil
}

// CreateListing publishes a listing on behalf of the authenticated editor.
func (h Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req CreateListingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)

		return
	}

	t, err := parseType(req.Type)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	in := listings.NewListing{Type: t, Title: req.Title}
	if req.ExpiresAt != nil {
		in.ExpiresAt = *req.ExpiresAt
	}

	listing, err := h.deps.Listings.Create(r.Context(), GetEditorIDFromContext(r.Context()), in)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	w.Header().Set("Location", "/v1/listings/"+string(listing.Type)+"/"+listing.ID.String())
	writeJSON(r.Context(), w, http.StatusCreated, DomainListingToV1(listing))
}

// GetListing returns a visible listing.
func (h Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	t, err := parseType(r.PathValue("type"))
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	listing, err := h.deps.Listings.Get(r.Context(), domain.ListingReference{Type: t, ID: r.PathValue("id")})
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, DomainListingToV1(listing))
}

// ListingExists answers the same question the route guard asks.
func (h Handler) ListingExists(w http.ResponseWriter, r *http.Request) {
	t, err := parseType(r.PathValue("type"))
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	exists, err := h.deps.Checker.Exists(r.Context(), r.PathValue("id"), t)
	if err != nil {
		if serrors.KindOf(err) == serrors.ErrInternal {
			err = serrors.Wrap(serrors.ErrUnavailable, err, "existence check failed")
		}
		h.writeError(w, r, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, ExistsResponse{Exists: exists})
}

// ExpireListing expires a listing immediately.
func (h Handler) ExpireListing(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseListingID(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, serrors.Wrap(serrors.ErrBadRequest, err, "invalid listing id"))

		return
	}

	listing, err := h.deps.Listings.Expire(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)

		return
	}

	writeJSON(r.Context(), w, http.StatusOK, DomainListingToV1(listing))
}
