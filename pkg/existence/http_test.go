package existence_test

import (
	"context"
	"navguard/pkg/domain"
	"navguard/pkg/existence"
	"navguard/pkg/serrors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T, handler http.HandlerFunc) *existence.HTTPChecker {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return existence.NewHTTPChecker(srv.Client(), srv.URL+"/", "anon-key")
}

func TestHTTPChecker_Request(t *testing.T) {
	var got *http.Request
	checker := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"abc123"}]`))
	})

	ok, err := checker.Exists(context.Background(), "abc123", domain.ListingTypeSalon)
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, http.MethodGet, got.Method)
	require.Equal(t, "/rest/v1/salon_sales", got.URL.Path)
	require.Equal(t, "eq.abc123", got.URL.Query().Get("id"))
	require.Equal(t, "id", got.URL.Query().Get("select"))
	require.Equal(t, "anon-key", got.Header.Get("apikey"))
	require.Equal(t, "Bearer anon-key", got.Header.Get("Authorization"))
}

func TestHTTPChecker_Tables(t *testing.T) {
	tests := map[domain.ListingType]string{
		domain.ListingTypeSalon:       "/rest/v1/salon_sales",
		domain.ListingTypeJob:         "/rest/v1/jobs",
		domain.ListingTypeOpportunity: "/rest/v1/opportunities",
		domain.ListingTypeBooth:       "/rest/v1/booth_rentals",
	}

	for listingType, wantPath := range tests {
		t.Run(string(listingType), func(t *testing.T) {
			checker := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, wantPath, r.URL.Path)
				_, _ = w.Write([]byte(`[]`))
			})

			ok, err := checker.Exists(context.Background(), "x", listingType)
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestHTTPChecker_Failures(t *testing.T) {
	t.Run("rate limited", func(t *testing.T) {
		checker := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := checker.Exists(context.Background(), "abc", domain.ListingTypeJob)
		require.ErrorIs(t, err, serrors.ErrRateLimited)
	})

	t.Run("server error", func(t *testing.T) {
		checker := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "relation does not exist", http.StatusInternalServerError)
		})

		_, err := checker.Exists(context.Background(), "abc", domain.ListingTypeJob)
		require.ErrorContains(t, err, "relation does not exist")
	})

	t.Run("invalid body", func(t *testing.T) {
		checker := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"not":"an array"}`))
		})

		_, err := checker.Exists(context.Background(), "abc", domain.ListingTypeJob)
		require.ErrorContains(t, err, "could not decode response")
	})

	t.Run("unknown type makes no request", func(t *testing.T) {
		var called atomic.Bool
		checker := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			called.Store(true)
		})

		_, err := checker.Exists(context.Background(), "abc", domain.ListingType("spa"))
		require.ErrorIs(t, err, serrors.ErrBadRequest)
		require.False(t, called.Load())
	})
}
