package v1handler

import (
	"net/http"
)

const redirectSourceAPI = "api"

// RedirectResponse is the body of GET /v1/redirect.
type RedirectResponse struct {
	Path string `json:"path"`
}

// SanitizeRedirect returns the safe in-app path for the target query
// parameter. It never fails: rejected targets come back as the fallback path.
func (h Handler) SanitizeRedirect(w http.ResponseWriter, r *http.Request) {
	path, reason := h.deps.Sanitizer.Decide(r.URL.Query().Get("target"))
	h.deps.Metrics.RedirectDecided(r.Context(), redirectSourceAPI, string(reason))

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(r.Context(), w, http.StatusOK, RedirectResponse{Path: path})
}
