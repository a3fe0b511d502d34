package webhandler

import (
	"navguard/pkg/logger"
	"navguard/pkg/redirect"
	"net/http"

	"go.uber.org/zap"
)

const (
	// RedirectParam is the query or form field carrying a redirect target.
	RedirectParam = "redirect"

	sourceRemember = "remember"
	sourceQuery    = "query"
	sourceCookie   = "cookie"
)

// RememberRedirect stores the sanitized target in a short-lived cookie so it
// survives the sign-in round trip.
func (h *Handler) RememberRedirect(w http.ResponseWriter, r *http.Request) {
	target, reason := h.deps.Sanitizer.Decide(r.FormValue(RedirectParam))
	h.record(r, sourceRemember, reason)

	http.SetCookie(w, &http.Cookie{
		Name:     h.options.CookieName,
		Value:    target,
		Path:     "/",
		MaxAge:   int(h.options.CookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.options.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// ContinueAfterSignIn sends the user to the redirect query parameter, else to
// the remembered cookie target, else to the fallback path. The cookie is
// always cleared.
func (h *Handler) ContinueAfterSignIn(w http.ResponseWriter, r *http.Request) {
	candidate, source := r.URL.Query().Get(RedirectParam), sourceQuery
	if candidate == "" {
		source = sourceCookie
		if c, err := r.Cookie(h.options.CookieName); err == nil {
			candidate = c.Value
		}
	}

	target, reason := h.deps.Sanitizer.Decide(candidate)
	h.record(r, source, reason)

	http.SetCookie(w, &http.Cookie{
		Name:     h.options.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.options.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) record(r *http.Request, source string, reason redirect.Reason) {
	h.deps.Metrics.RedirectDecided(r.Context(), source, string(reason))
	if reason != redirect.ReasonAccepted && reason != redirect.ReasonEmpty {
		logger.Debug(r.Context(), "redirect target rejected",
			zap.String("source", source),
			zap.String("reason", string(reason)))
	}
}
