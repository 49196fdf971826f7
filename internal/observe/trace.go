package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for the narradeck tracer.
const tracerName = "github.com/narradeck/narradeck"

// Tracer returns the narradeck [trace.Tracer] from the globally registered
// provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a span under whatever span ctx already carries. The
// caller owns span.End().
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// SessionSpan starts the root span for one playback session. It spans the
// whole WebSocket lifetime, so every load span of the session nests under
// it.
func SessionSpan(ctx context.Context, presentationID string) (context.Context, trace.Span) {
	return StartSpan(ctx, "playback.session",
		trace.WithAttributes(attribute.String("presentation", presentationID)))
}

// LoadSpan starts a span covering the resolution of one narration clip,
// fallback substitution included.
func LoadSpan(ctx context.Context, path, segmentID string) (context.Context, trace.Span) {
	return StartSpan(ctx, "segment.load",
		trace.WithAttributes(
			attribute.String("audio.path", path),
			attribute.String("segment", segmentID),
		))
}

// CorrelationID extracts the trace ID from the span context in ctx, or the
// empty string when there is no recording trace.
func CorrelationID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns an [slog.Logger] carrying trace_id and span_id from ctx.
// Without an active span it is just the default logger.
func Logger(ctx context.Context) *slog.Logger {
	l := slog.Default()
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		l = l.With(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return l
}
