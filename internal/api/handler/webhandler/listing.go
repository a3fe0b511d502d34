package webhandler

import (
	"errors"
	"html/template"
	"navguard/internal/guard"
	"navguard/pkg/domain"
	"navguard/pkg/logger"
	"navguard/pkg/serrors"
	"net/http"

	"go.uber.org/zap"
)

var detailPage = template.Must(template.New("detail").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body><main data-listing-type="{{.Type}}" data-listing-id="{{.ID}}"><h1>{{.Title}}</h1></main></body></html>
`))

var notFoundPage = template.Must(template.New("notFound").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Not found</title></head>
<body><main><h1>This {{.Type}} listing is no longer available</h1><p><a href="/{{.Plural}}">Browse listings</a></p></main></body></html>
`))

// ListingDetail renders a listing admitted by the route guard. A listing that
// expires between the guard's check and the read still lands on the
// not-found page.
func (h *Handler) ListingDetail(w http.ResponseWriter, r *http.Request) {
	ref, ok := guard.ReferenceFromContext(r.Context())
	if !ok {
		http.NotFound(w, r)

		return
	}

	listing, err := h.deps.Listings.Get(r.Context(), ref)
	if err != nil {
		if errors.Is(err, serrors.ErrNotFound) {
			http.Redirect(w, r, ref.Type.NotFoundPath(), http.StatusFound)

			return
		}

		logger.Error(r.Context(), "could not load listing", zap.String("listing", ref.String()), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := detailPage.Execute(w, struct {
		Type  domain.ListingType
		ID    string
		Title string
	}{Type: listing.Type, ID: listing.ID.String(), Title: listing.Title}); err != nil {
		logger.Warn(r.Context(), "could not render listing", zap.Error(err))
	}
}

func (h *Handler) notFound(t domain.ListingType) http.HandlerFunc {
	data := struct {
		Type   domain.ListingType
		Plural string
	}{Type: t, Plural: t.Plural()}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		if err := notFoundPage.Execute(w, data); err != nil {
			logger.Warn(r.Context(), "could not render not-found page", zap.Error(err))
		}
	}
}
