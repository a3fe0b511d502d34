// Package v1handler implements the v1 JSON API: publishing and reading
// listings, checking listing existence and sanitizing redirect targets.
package v1handler

import (
	"context"
	"encoding/json"
	"errors"
	"navguard/internal/listings"
	"navguard/pkg/existence"
	"navguard/pkg/logger"
	"navguard/pkg/metrics"
	"navguard/pkg/redirect"
	"navguard/pkg/serrors"
	"net/http"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 16

// Deps are the services the v1 handlers call into.
type Deps struct {
	Listings  listings.Service
	Checker   existence.Checker
	Sanitizer *redirect.Sanitizer
	Metrics   *metrics.Recorder
}

// Handler serves the v1 API.
type Handler struct {
	deps Deps
}

func New(deps Deps) *Handler {
	if deps.Sanitizer == nil {
		deps.Sanitizer = redirect.Default()
	}

	return &Handler{deps: deps}
}

// ErrorResponse is the body of every failed v1 call.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorStatusCode pairs an ErrorResponse with its HTTP status.
type ErrorStatusCode struct {
	StatusCode int
	Response   ErrorResponse
}

// NewError maps err to its public status and body. Internal failures are
// logged and never described to the client.
func (h Handler) NewError(ctx context.Context, err error) *ErrorStatusCode {
	kind := serrors.KindOf(err)
	status := serrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(ctx, "v1 request failed", zap.Error(err))
	}

	return &ErrorStatusCode{
		StatusCode: status,
		Response: ErrorResponse{
			Code:    kind.Error(),
			Message: serrors.PublicMessage(err),
		},
	}
}

// Routes returns the v1 routes. Editor endpoints are wrapped with sec.
func (h *Handler) Routes(sec *SecHandler) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /v1/listings", sec.Authenticate(http.HandlerFunc(h.CreateListing)))
	mux.HandleFunc("GET /v1/listings/{type}/{id}", h.GetListing)
	mux.HandleFunc("GET /v1/listings/{type}/{id}/exists", h.ListingExists)
	mux.Handle("POST /v1/listings/{id}/expire", sec.Authenticate(http.HandlerFunc(h.ExpireListing)))
	mux.HandleFunc("GET /v1/redirect", h.SanitizeRedirect)

	return mux
}

func (h Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	res := h.NewError(r.Context(), err)
	writeJSON(r.Context(), w, res.StatusCode, res.Response)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn(ctx, "could not write response body", zap.Error(err))
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return serrors.With(serrors.ErrBadRequest, "request body too large")
		}

		return serrors.Wrap(serrors.ErrBadRequest, err, "invalid request body")
	}

	return nil
}
