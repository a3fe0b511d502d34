// Package webhandler serves the browser-facing routes: the post-sign-in
// redirect flow and the guarded listing detail pages.
package webhandler

import (
	"navguard/internal/config"
	"navguard/internal/guard"
	"navguard/internal/listings"
	"navguard/pkg/domain"
	"navguard/pkg/metrics"
	"navguard/pkg/redirect"
	"net/http"
	"time"
)

// Deps are the services the web handlers call into.
type Deps struct {
	Listings  listings.Service
	Checker   guard.Checker
	Sanitizer *redirect.Sanitizer
	Metrics   *metrics.Recorder
}

// Options configure the web routes.
type Options struct {
	// CookieName is the cookie remembering the post-sign-in target.
	CookieName string
	// CookieTTL is how long the remembered target lives.
	CookieTTL time.Duration
	// CookieSecure marks the cookie Secure.
	CookieSecure bool
	// Guard configures the listing route guard of every detail route.
	Guard guard.Options
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		CookieName:   cfg.Redirect.CookieName,
		CookieTTL:    cfg.Redirect.CookieTTL,
		CookieSecure: cfg.Redirect.CookieSecure,
		Guard: guard.Options{
			CheckTimeout: cfg.Guard.CheckTimeout,
			LoadingAfter: cfg.Guard.LoadingAfter,
		},
	}
}

type Handler struct {
	deps    Deps
	options Options
}

func New(deps Deps, options Options) *Handler {
	if deps.Sanitizer == nil {
		deps.Sanitizer = redirect.Default()
	}
	if options.CookieName == "" {
		options.CookieName = "post_signin_redirect"
	}
	if options.CookieTTL <= 0 {
		options.CookieTTL = 10 * time.Minute
	}
	options.Guard.Metrics = deps.Metrics

	return &Handler{deps: deps, options: options}
}

// Routes returns every web route.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/redirect", h.RememberRedirect)
	mux.HandleFunc("GET /auth/continue", h.ContinueAfterSignIn)

	for _, t := range domain.ListingTypes() {
		detail := guard.Middleware(h.deps.Checker, t, h.options.Guard)(http.HandlerFunc(h.ListingDetail))

		mux.Handle("GET /"+t.Plural()+"/{id}", detail)
		// a missing identifier is guarded too and lands on the not-found page
		mux.Handle("GET /"+t.Plural()+"/{$}", detail)
		mux.HandleFunc("GET "+t.NotFoundPath(), h.notFound(t))
	}

	return mux
}
