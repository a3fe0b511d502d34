package api_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"navguard/internal/api"
	"navguard/internal/api/handler/v1handler"
	mocklistings "navguard/internal/listings/mock"
	"navguard/pkg/domain"
	mockexistence "navguard/pkg/existence/mock"
	"navguard/pkg/logger"
	"navguard/pkg/metrics"
)

func TestMain(m *testing.M) {
	logger.Setup(logger.DevelopmentEnvironment, "")
	m.Run()
}

func publicKeyPEM(t *testing.T) string {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)

	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func newTestServer(t *testing.T, pprof bool) (*mockexistence.MockChecker, http.Handler) {
	t.Helper()

	ctrl := gomock.NewController(t)
	checker := mockexistence.NewMockChecker(ctrl)

	reg := prometheus.NewRegistry()
	mp, err := metrics.NewPrometheusProvider(reg)
	require.NoError(t, err)
	rec, err := metrics.New(mp)
	require.NoError(t, err)

	srv, err := api.NewServer(api.Deps{
		Listings: mocklistings.NewMockService(ctrl),
		Checker:  checker,
		Metrics:  rec,
		Gatherer: reg,
	}, api.Options{
		SecHandlerOptions:  &v1handler.SecHandlerOptions{PublicKey: publicKeyPEM(t)},
		RequestTimeout:     5 * time.Second,
		MetricsPath:        "/metrics",
		PprofEnabled:       pprof,
		CORSAllowedOrigins: []string{"https://emvi.app"},
	})
	require.NoError(t, err)

	return checker, srv.Handler
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	return rec
}

func TestNewServer_InvalidPublicKey(t *testing.T) {
	_, err := api.NewServer(api.Deps{}, api.Options{
		SecHandlerOptions: &v1handler.SecHandlerOptions{PublicKey: "garbage"},
	})
	require.Error(t, err)
}

func TestServer_Plumbing(t *testing.T) {
	_, h := newTestServer(t, false)

	rec := get(h, "/specs/v1.yaml")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "openapi:")

	rec = get(h, "/v1/docs/")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(h, "/v1/redirect?target=%2F%2Fevil.com")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	require.JSONEq(t, `{"path":"/jobs"}`, rec.Body.String())

	rec = get(h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "navguard_redirect_decisions_total")

	rec = get(h, "/debug/pprof/")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Pprof(t *testing.T) {
	_, h := newTestServer(t, true)

	rec := get(h, "/debug/pprof/")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_CORSPreflight(t *testing.T) {
	_, h := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodOptions, "/v1/listings", nil)
	req.Header.Set("Origin", "https://emvi.app")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://emvi.app", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_GuardedRoute(t *testing.T) {
	checker, h := newTestServer(t, false)

	checker.EXPECT().Exists(gomock.Any(), "abc123", domain.ListingTypeSalon).Return(false, nil)

	rec := get(h, "/salons/abc123")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/salon-not-found", rec.Header().Get("Location"))

	rec = get(h, "/salon-not-found")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
