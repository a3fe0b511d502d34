package guard_test

import (
	"context"
	"errors"
	"navguard/internal/guard"
	"navguard/pkg/domain"
	mockexistence "navguard/pkg/existence/mock"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// listingRoutes mounts a guarded detail route and the bare collection route
// the way the web server does.
func listingRoutes(checker guard.Checker, t domain.ListingType, opts guard.Options, rendered *atomic.Int32) http.Handler {
	child := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rendered.Add(1)
		ref, ok := guard.ReferenceFromContext(r.Context())
		if ok {
			w.Header().Set("X-Listing", ref.String())
		}
		_, _ = w.Write([]byte("listing detail"))
	})

	guarded := guard.Middleware(checker, t, opts)(child)

	mux := http.NewServeMux()
	mux.Handle("GET /"+t.Plural()+"/{id}", guarded)
	mux.Handle("GET /"+t.Plural()+"/{$}", guarded)

	return mux
}

func serve(h http.Handler, target string) *http.Response {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	return rec.Result()
}

// The scenario from the listing detail page: abc123 is a salon listing.
func TestMiddleware_SalonScenario(t *testing.T) {
	t.Run("existing listing renders children without redirect", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		checker := mockexistence.NewMockChecker(ctrl)
		checker.EXPECT().Exists(gomock.Any(), "abc123", domain.ListingTypeSalon).Return(true, nil).Times(1)

		var rendered atomic.Int32
		res := serve(listingRoutes(checker, domain.ListingTypeSalon, guard.Options{}, &rendered), "/salons/abc123")

		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Empty(t, res.Header.Get("Location"))
		require.Equal(t, "salon/abc123", res.Header.Get("X-Listing"))
		require.EqualValues(t, 1, rendered.Load())
	})

	t.Run("missing listing redirects once and never renders children", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		checker := mockexistence.NewMockChecker(ctrl)
		checker.EXPECT().Exists(gomock.Any(), "abc123", domain.ListingTypeSalon).Return(false, nil).Times(1)

		var rendered atomic.Int32
		res := serve(listingRoutes(checker, domain.ListingTypeSalon, guard.Options{}, &rendered), "/salons/abc123")

		require.Equal(t, http.StatusFound, res.StatusCode)
		require.Equal(t, "/salon-not-found", res.Header.Get("Location"))
		require.Zero(t, rendered.Load())
	})
}

func TestMiddleware_MissingIdentifier(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := mockexistence.NewMockChecker(ctrl)
	checker.EXPECT().Exists(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	var rendered atomic.Int32
	res := serve(listingRoutes(checker, domain.ListingTypeJob, guard.Options{}, &rendered), "/jobs/")

	require.Equal(t, http.StatusFound, res.StatusCode)
	require.Equal(t, "/job-not-found", res.Header.Get("Location"))
	require.Zero(t, rendered.Load())
}

func TestMiddleware_CheckerErrorMatchesNotFound(t *testing.T) {
	run := func(t *testing.T, exists bool, err error) *http.Response {
		t.Helper()

		ctrl := gomock.NewController(t)
		checker := mockexistence.NewMockChecker(ctrl)
		checker.EXPECT().Exists(gomock.Any(), "o1", domain.ListingTypeOpportunity).Return(exists, err)

		var rendered atomic.Int32
		res := serve(listingRoutes(checker, domain.ListingTypeOpportunity, guard.Options{}, &rendered),
			"/opportunities/o1")
		require.Zero(t, rendered.Load())

		return res
	}

	notFound := run(t, false, nil)
	failed := run(t, false, errors.New("backend unavailable"))

	require.Equal(t, notFound.StatusCode, failed.StatusCode)
	require.Equal(t, notFound.Header.Get("Location"), failed.Header.Get("Location"))
	require.Equal(t, "/opportunity-not-found", failed.Header.Get("Location"))
}

func TestMiddleware_CustomIDParam(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := mockexistence.NewMockChecker(ctrl)
	checker.EXPECT().Exists(gomock.Any(), "b7", domain.ListingTypeBooth).Return(true, nil)

	child := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux := http.NewServeMux()
	mux.Handle("GET /rent/{listingId}", guard.Middleware(checker, domain.ListingTypeBooth,
		guard.Options{IDParam: "listingId"})(child))

	res := serve(mux, "/rent/b7")
	require.Equal(t, http.StatusNoContent, res.StatusCode)
}

func TestMiddleware_LoadingPage(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := mockexistence.NewMockChecker(ctrl)

	release := make(chan struct{})
	finished := make(chan error, 1)
	checker.EXPECT().Exists(gomock.Any(), "slow", domain.ListingTypeSalon).DoAndReturn(
		func(ctx context.Context, _ string, _ domain.ListingType) (bool, error) {
			<-release
			// the check outlives the request so its answer can be cached
			finished <- ctx.Err()

			return false, nil
		})

	var rendered atomic.Int32
	h := listingRoutes(checker, domain.ListingTypeSalon, guard.Options{
		LoadingAfter: 10 * time.Millisecond,
		CheckTimeout: time.Second,
	}, &rendered)

	res := serve(h, "/salons/slow")
	close(release)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "1", res.Header.Get("Refresh"))
	require.Equal(t, "no-store", res.Header.Get("Cache-Control"))
	require.Empty(t, res.Header.Get("Location"), "late answers never navigate")
	require.Zero(t, rendered.Load())

	select {
	case err := <-finished:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("detached check did not finish")
	}
}

func TestMiddleware_CustomLoadingHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := mockexistence.NewMockChecker(ctrl)
	release := make(chan struct{})
	defer close(release)
	checker.EXPECT().Exists(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, string, domain.ListingType) (bool, error) {
			<-release

			return true, nil
		})

	loading := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	var rendered atomic.Int32
	h := listingRoutes(checker, domain.ListingTypeJob, guard.Options{
		Loading:      loading,
		LoadingAfter: 5 * time.Millisecond,
	}, &rendered)

	res := serve(h, "/jobs/j1")
	require.Equal(t, http.StatusAccepted, res.StatusCode)
}

func TestMiddleware_FastCheckBeatsLoading(t *testing.T) {
	ctrl := gomock.NewController(t)
	checker := mockexistence.NewMockChecker(ctrl)
	checker.EXPECT().Exists(gomock.Any(), "fast", domain.ListingTypeJob).Return(false, nil)

	var rendered atomic.Int32
	h := listingRoutes(checker, domain.ListingTypeJob, guard.Options{LoadingAfter: time.Second}, &rendered)

	res := serve(h, "/jobs/fast")
	require.Equal(t, http.StatusFound, res.StatusCode)
	require.Equal(t, "/job-not-found", res.Header.Get("Location"))
	require.Empty(t, res.Header.Get("Refresh"))
}
