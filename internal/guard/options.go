package guard

import (
	"navguard/pkg/domain"
	"navguard/pkg/metrics"
	"net/http"
	"time"
)

const (
	// DefaultIDParam is the route parameter holding the listing identifier.
	DefaultIDParam = "id"

	defaultDetachedTimeout = 10 * time.Second
)

// Options configures a Guard and its HTTP middleware.
type Options struct {
	// IDParam names the path wildcard carrying the identifier.
	IDParam string
	// FallbackPath is where invalid listings navigate; defaults to the type's
	// not-found route, e.g. /salon-not-found.
	FallbackPath string
	// Loading renders the placeholder shown while validating.
	Loading http.Handler
	// LoadingAfter serves Loading when the check has not settled by then.
	// Zero waits for the check.
	LoadingAfter time.Duration
	// CheckTimeout bounds a single existence check. Zero means no bound
	// beyond the request context.
	CheckTimeout time.Duration
	// Metrics records guard outcomes; may be nil.
	Metrics *metrics.Recorder
}

func (o Options) withDefaults(t domain.ListingType) Options {
	if o.IDParam == "" {
		o.IDParam = DefaultIDParam
	}
	if o.FallbackPath == "" {
		o.FallbackPath = t.NotFoundPath()
	}
	if o.Loading == nil {
		o.Loading = http.HandlerFunc(defaultLoading)
	}

	return o
}

func (o Options) detachedTimeout() time.Duration {
	if o.CheckTimeout > 0 {
		return o.CheckTimeout
	}

	return defaultDetachedTimeout
}

func defaultLoading(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Loading..."))
}
