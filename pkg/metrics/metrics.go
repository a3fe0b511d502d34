// Package metrics holds the OpenTelemetry instruments shared by the redirect
// endpoints, the listing route guard and the existence checkers. Instruments
// are exported through the Prometheus exporter registered by the API server.
//
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that can
// be reused across the application for latency metrics.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10} //nolint: gochecknoglobals

const meterName = "navguard"

// Recorder records navigation-guard metrics.
type Recorder struct {
	redirects     metric.Int64Counter
	guardOutcomes metric.Int64Counter
	checkDuration metric.Float64Histogram
	cacheLookups  metric.Int64Counter
}

// New creates the instruments on a meter obtained from mp.
func New(mp metric.MeterProvider) (*Recorder, error) {
	meter := mp.Meter(meterName)

	redirects, err := meter.Int64Counter("navguard.redirect.decisions",
		metric.WithDescription("Redirect targets sanitized, by decision reason."))
	if err != nil {
		return nil, fmt.Errorf("could not create redirect counter: %w", err)
	}

	guardOutcomes, err := meter.Int64Counter("navguard.guard.outcomes",
		metric.WithDescription("Listing route guard resolutions, by listing type and outcome."))
	if err != nil {
		return nil, fmt.Errorf("could not create guard counter: %w", err)
	}

	checkDuration, err := meter.Float64Histogram("navguard.existence.check.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Latency of listing existence checks."),
		metric.WithExplicitBucketBoundaries(DefaultBuckets...))
	if err != nil {
		return nil, fmt.Errorf("could not create check histogram: %w", err)
	}

	cacheLookups, err := meter.Int64Counter("navguard.existence.cache.lookups",
		metric.WithDescription("Existence cache lookups, by result."))
	if err != nil {
		return nil, fmt.Errorf("could not create cache counter: %w", err)
	}

	return &Recorder{
		redirects:     redirects,
		guardOutcomes: guardOutcomes,
		checkDuration: checkDuration,
		cacheLookups:  cacheLookups,
	}, nil
}

// RedirectDecided counts one sanitizer decision.
func (r *Recorder) RedirectDecided(ctx context.Context, source string, reason string) {
	if r == nil {
		return
	}

	r.redirects.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("reason", reason),
	))
}

// GuardResolved counts one guard outcome ("valid", "invalid", "loading").
func (r *Recorder) GuardResolved(ctx context.Context, listingType string, outcome string) {
	if r == nil {
		return
	}

	r.guardOutcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("listing_type", listingType),
		attribute.String("outcome", outcome),
	))
}

// CheckObserved records the latency of one existence check.
func (r *Recorder) CheckObserved(ctx context.Context, backend string, took time.Duration, err error) {
	if r == nil {
		return
	}

	r.checkDuration.Record(ctx, took.Seconds(), metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.Bool("error", err != nil),
	))
}

// CacheLookup counts one existence cache lookup ("hit", "miss", "error").
func (r *Recorder) CacheLookup(ctx context.Context, result string) {
	if r == nil {
		return
	}

	r.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
