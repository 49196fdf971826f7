package observe

import (
	"context"
	"time"

	"github.com/narradeck/narradeck/pkg/audio"
)

// InstrumentLoader wraps l so every clip resolution is timed into
// [Metrics.SegmentLoadDuration] and traced as a segment.load span. The
// returned loader is otherwise transparent.
func InstrumentLoader(l audio.Loader, m *Metrics) audio.Loader {
	return &instrumentedLoader{inner: l, metrics: m}
}

type instrumentedLoader struct {
	inner   audio.Loader
	metrics *Metrics
}

// Compile-time interface check.
var _ audio.Loader = (*instrumentedLoader)(nil)

func (il *instrumentedLoader) Load(ctx context.Context, path, segmentID string) audio.Handle {
	ctx, span := LoadSpan(ctx, path, segmentID)
	defer span.End()

	start := time.Now()
	h := il.inner.Load(ctx, path, segmentID)
	il.metrics.SegmentLoadDuration.Record(ctx, time.Since(start).Seconds())
	return h
}
