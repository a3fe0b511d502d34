package guard

import (
	"context"
	"navguard/pkg/domain"
	"navguard/pkg/logger"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const outcomeLoading = "loading"

type referenceKey struct{}

// ReferenceFromContext returns the listing reference a guarded handler was
// admitted for.
func ReferenceFromContext(ctx context.Context) (domain.ListingReference, bool) {
	ref, ok := ctx.Value(referenceKey{}).(domain.ListingReference)

	return ref, ok
}

// Middleware guards a listing detail route. The identifier is read with
// r.PathValue(opts.IDParam); Valid serves next, Invalid answers 302 Found to
// the fallback path. With opts.LoadingAfter set, a check that has not settled
// in time gets the Loading response with a Refresh header; its Guard is torn
// down while the check finishes in the background, which warms any cache in
// front of checker for the refresh.
func Middleware(checker Checker, t domain.ListingType, opts Options) func(http.Handler) http.Handler {
	opts = opts.withDefaults(t)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id := r.PathValue(opts.IDParam)

			// written under the Guard's lock, read after Validate or Close returns
			var target string
			g := New(checker, t, func(path string) { target = path }, opts)
			defer g.Close()

			state := validate(ctx, g, id, opts)

			switch state {
			case StateValid:
				ref := domain.ListingReference{Type: t, ID: id}
				next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, referenceKey{}, ref)))
			case StateInvalid:
				http.Redirect(w, r, target, http.StatusFound)
			default:
				opts.Metrics.GuardResolved(ctx, string(t), outcomeLoading)
				logger.Debug(ctx, "listing check still running, serving loading page",
					zap.String("listing_type", string(t)),
					zap.String("listing_id", id))
				w.Header().Set("Refresh", "1")
				w.Header().Set("Cache-Control", "no-store")
				opts.Loading.ServeHTTP(w, r)
			}
		})
	}
}

func validate(ctx context.Context, g *Guard, id string, opts Options) State {
	if opts.LoadingAfter <= 0 {
		return g.Validate(ctx, id)
	}

	seq, ok := g.begin(id)
	if !ok {
		return g.State()
	}

	done := make(chan State, 1)
	checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opts.detachedTimeout())
	go func() {
		defer cancel()
		done <- g.run(checkCtx, seq, id)
	}()

	timer := time.NewTimer(opts.LoadingAfter)
	defer timer.Stop()

	select {
	case state := <-done:
		return state
	case <-timer.C:
		g.Close()

		// a result accepted just before Close still counts
		return g.State()
	}
}
