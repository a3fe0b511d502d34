// Package api configures and exposes the HTTP server, routes,
// metrics, docs and related middleware for the navguard service.
package api

import (
	_ "embed"
	"fmt"
	"navguard/internal/api/handler/v1handler"
	"navguard/internal/api/handler/webhandler"
	"navguard/internal/config"
	"navguard/internal/listings"
	"navguard/pkg/controller"
	"navguard/pkg/existence"
	"navguard/pkg/metrics"
	"navguard/pkg/redirect"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggest/swgui/v5emb"
)

// v1Spec contains the embedded OpenAPI specification for version 1 of the API.
//
//go:embed specs/v1.yaml
var v1Spec []byte

// Options holds configuration for the HTTP server and its dependencies.
// It is typically created from a config.Config via NewOptions.
type Options struct {
	// SecHandlerOptions configures bearer authentication of the editor endpoints.
	SecHandlerOptions *v1handler.SecHandlerOptions
	// Web configures the sign-in redirect cookie and the listing route guard.
	Web webhandler.Options

	// Addr is the TCP address the server listens on, e.g. ":8080".
	Addr string
	// ReadTimeout is the maximum duration for reading the entire request, including the body.
	ReadTimeout time.Duration
	// ReadHeaderTimeout is the amount of time allowed to read request headers.
	ReadHeaderTimeout time.Duration
	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration
	// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled.
	IdleTimeout time.Duration
	// RequestTimeout is the global timeout applied via http.TimeoutHandler for handling requests.
	RequestTimeout time.Duration
	// MaxHeaderBytes controls the maximum number of bytes the server
	// will read parsing the request header's keys and values, including the request line.
	MaxHeaderBytes int
	// MetricsPath is the HTTP path at which Prometheus metrics are served.
	MetricsPath string
	// PprofEnabled mounts the profiling endpoints under /debug/pprof/.
	PprofEnabled bool
	// CORSAllowedOrigins lists the origins allowed to call the server.
	CORSAllowedOrigins []string
}

// NewOptions constructs an Options value from the provided application configuration.
func NewOptions(cfg *config.Config) Options {
	return Options{
		SecHandlerOptions: v1handler.NewSecHandlerOptions(cfg),
		Web:               webhandler.NewOptions(cfg),

		Addr:               cfg.HTTP.Addr,
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout:  cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		RequestTimeout:     cfg.HTTP.RequestTimeout,
		MaxHeaderBytes:     cfg.HTTP.MaxHeaderBytes,
		MetricsPath:        cfg.HTTP.MetricsPath,
		PprofEnabled:       cfg.HTTP.PprofEnabled,
		CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
	}
}

// Deps are the services shared by the v1 and web handlers.
type Deps struct {
	Listings  listings.Service
	Checker   existence.Checker
	Sanitizer *redirect.Sanitizer
	Metrics   *metrics.Recorder
	// Gatherer serves MetricsPath; nil means the default registry.
	Gatherer prometheus.Gatherer
}

// NewServer wires up and returns a configured *http.Server using the provided Options.
// It sets up:
// - Prometheus metrics endpoint (MetricsPath)
// - Embedded OpenAPI v1 spec and Swagger UI
// - v1 API routes
// - web routes: sign-in redirect flow and guarded listing pages
// - pprof endpoints for profiling when enabled
// It also wraps the mux with recover, CORS and logging middlewares and applies a request timeout.
func NewServer(deps Deps, opts Options) (*http.Server, error) {
	mux := http.NewServeMux()

	// prometheus metrics server
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("GET "+opts.MetricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// v1 specs file
	mux.HandleFunc("GET /specs/v1.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(v1Spec)
	})
	// v1 api swagger playground
	mux.Handle("/v1/docs/", v5emb.New(
		"Navguard Service",
		"/specs/v1.yaml",
		"/v1/docs/",
	))
	// v1 api
	secHandler, err := v1handler.NewSecHandler(opts.SecHandlerOptions)
	if err != nil {
		return nil, fmt.Errorf("could not create sec handler: %w", err)
	}
	v1 := v1handler.New(v1handler.Deps{
		Listings:  deps.Listings,
		Checker:   deps.Checker,
		Sanitizer: deps.Sanitizer,
		Metrics:   deps.Metrics,
	})
	mux.Handle("/v1/", v1.Routes(secHandler))

	// web
	web := webhandler.New(webhandler.Deps{
		Listings:  deps.Listings,
		Checker:   deps.Checker,
		Sanitizer: deps.Sanitizer,
		Metrics:   deps.Metrics,
	}, opts.Web)
	mux.Handle("/", web.Routes())

	// pprof
	if opts.PprofEnabled {
		mux.Handle("/debug/pprof/", http.StripPrefix("/debug/pprof", controller.PprofMux()))
	}

	handler := controller.Chain(mux,
		controller.WithLogger,
		controller.WithCORS(opts.CORSAllowedOrigins),
		controller.WithRecover,
	)

	if opts.RequestTimeout > 0 {
		handler = http.TimeoutHandler(handler, opts.RequestTimeout, `{"code":"UNAVAILABLE","message":"request timed out"}`)
	}

	return &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		MaxHeaderBytes:    opts.MaxHeaderBytes,
	}, nil
}
