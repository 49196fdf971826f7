// Package observe provides application-wide observability primitives for
// narradeck: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all narradeck metrics.
const meterName = "github.com/narradeck/narradeck"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// SegmentLoadDuration tracks how long resolving a narration clip takes,
	// including decode-probing the asset.
	SegmentLoadDuration metric.Float64Histogram

	// SegmentsPlayed counts narration segments played to completion. Use
	// with attributes:
	//   attribute.String("presentation", ...), attribute.String("mode", ...)
	SegmentsPlayed metric.Int64Counter

	// SegmentErrors counts segments that failed during playback. Use with
	// attribute:
	//   attribute.String("presentation", ...)
	SegmentErrors metric.Int64Counter

	// FallbackLoads counts narration assets that could not be loaded and
	// were replaced by the silent fallback clip. Use with attribute:
	//   attribute.String("segment", ...)
	FallbackLoads metric.Int64Counter

	// SlidesAdvanced counts slide transitions. Use with attributes:
	//   attribute.String("presentation", ...), attribute.String("mode", ...)
	SlidesAdvanced metric.Int64Counter

	// RunsCompleted counts narrated runs that reached the final slide.
	RunsCompleted metric.Int64Counter

	// ActiveSessions tracks the number of live playback sessions.
	ActiveSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// loadBuckets defines histogram bucket boundaries (in seconds) sized for
// local asset loads: most resolve well under a second.
var loadBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SegmentLoadDuration, err = m.Float64Histogram("narradeck.segment.load.duration",
		metric.WithDescription("Latency of resolving a narration clip to a playable handle."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(loadBuckets...),
	); err != nil {
		return nil, err
	}

	if met.SegmentsPlayed, err = m.Int64Counter("narradeck.segments.played",
		metric.WithDescription("Total narration segments played to completion by presentation and mode."),
	); err != nil {
		return nil, err
	}
	if met.SegmentErrors, err = m.Int64Counter("narradeck.segments.errors",
		metric.WithDescription("Total narration segments that failed during playback."),
	); err != nil {
		return nil, err
	}
	if met.FallbackLoads, err = m.Int64Counter("narradeck.audio.fallback_loads",
		metric.WithDescription("Total narration assets replaced by the silent fallback clip."),
	); err != nil {
		return nil, err
	}
	if met.SlidesAdvanced, err = m.Int64Counter("narradeck.slides.advanced",
		metric.WithDescription("Total slide transitions by presentation and mode."),
	); err != nil {
		return nil, err
	}
	if met.RunsCompleted, err = m.Int64Counter("narradeck.runs.completed",
		metric.WithDescription("Total narrated runs that reached the final slide."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("narradeck.active_sessions",
		metric.WithDescription("Number of live playback sessions."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("narradeck.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordSegmentPlayed records a completed segment with the standard
// attribute set.
func (m *Metrics) RecordSegmentPlayed(ctx context.Context, presentation, mode string) {
	m.SegmentsPlayed.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("presentation", presentation),
			attribute.String("mode", mode),
		),
	)
}

// RecordSlideAdvanced records one slide transition with the standard
// attribute set.
func (m *Metrics) RecordSlideAdvanced(ctx context.Context, presentation, mode string) {
	m.SlidesAdvanced.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("presentation", presentation),
			attribute.String("mode", mode),
		),
	)
}

// RecordSegmentError records one segment that failed during playback.
func (m *Metrics) RecordSegmentError(ctx context.Context, presentation string) {
	m.SegmentErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("presentation", presentation)),
	)
}

// RecordFallbackLoad records one silent-fallback substitution for the given
// segment id.
func (m *Metrics) RecordFallbackLoad(ctx context.Context, segmentID string) {
	m.FallbackLoads.Add(ctx, 1,
		metric.WithAttributes(attribute.String("segment", segmentID)),
	)
}
