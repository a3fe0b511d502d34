package existence

import (
	"context"
	"navguard/pkg/domain"
	"navguard/pkg/metrics"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "navguard/pkg/existence"

type observed struct {
	next    Checker
	backend string
	metrics *metrics.Recorder
	tracer  trace.Tracer
}

// Observe wraps next so every check opens a span and records its latency
// under the given backend label.
func Observe(next Checker, backend string, rec *metrics.Recorder) Checker {
	return &observed{
		next:    next,
		backend: backend,
		metrics: rec,
		tracer:  otel.Tracer(tracerName),
	}
}

func (o *observed) Exists(ctx context.Context, id string, t domain.ListingType) (bool, error) {
	ctx, span := o.tracer.Start(ctx, "existence.Exists", trace.WithAttributes(
		attribute.String("listing.type", string(t)),
		attribute.String("listing.id", id),
		attribute.String("existence.backend", o.backend),
	))
	defer span.End()

	start := time.Now()
	ok, err := o.next.Exists(ctx, id, t)
	o.metrics.CheckObserved(ctx, o.backend, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "existence check failed")
	}
	span.SetAttributes(attribute.Bool("listing.exists", ok))

	return ok, err //nolint: wrapcheck
}
