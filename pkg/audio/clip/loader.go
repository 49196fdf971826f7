// Package clip implements [audio.Loader] over on-disk narration assets.
//
// Clips are probed with the beep decoders to verify they exist and decode,
// and to measure their duration. A clip that cannot be loaded is replaced by
// a fixed silent fallback so playback never stalls on a missing asset.
package clip

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"

	"github.com/narradeck/narradeck/pkg/audio"
)

// fallbackDuration is used when the configured fallback clip is itself
// unreadable. Short enough not to drag the presentation, long enough that a
// segment boundary is still perceptible.
const fallbackDuration = 1 * time.Second

// Config holds the dependencies for a [Loader].
type Config struct {
	// Root is the directory narration resource paths are resolved under.
	Root string

	// FallbackClip is the path (relative to Root) of the fixed silent clip
	// substituted when a primary asset fails to load.
	FallbackClip string

	// OnFallback, when non-nil, is invoked with the segment id each time
	// the fallback clip is substituted. Used to feed metrics.
	OnFallback func(segmentID string)
}

// Loader is a file-backed [audio.Loader].
type Loader struct {
	root        string
	fallbackDur time.Duration
	onFallback  func(string)
}

// Compile-time interface check.
var _ audio.Loader = (*Loader)(nil)

// NewLoader creates a Loader and probes the fallback clip once. A missing or
// undecodable fallback is tolerated (logged, replaced by a fixed one-second
// silence) so that construction, like Load, cannot fail on bad assets.
func NewLoader(cfg Config) *Loader {
	l := &Loader{
		root:        cfg.Root,
		fallbackDur: fallbackDuration,
		onFallback:  cfg.OnFallback,
	}
	if cfg.FallbackClip != "" {
		d, err := probe(filepath.Join(cfg.Root, cfg.FallbackClip))
		if err != nil {
			slog.Warn("fallback clip unreadable, using fixed silence",
				"path", cfg.FallbackClip, "err", err)
		} else {
			l.fallbackDur = d
		}
	}
	return l
}

// Load resolves path under the asset root and returns a playable handle.
// It never fails: when the asset is missing or undecodable the returned
// handle plays the silent fallback clip instead, and the substitution is
// logged with the segment id so it stays observable.
func (l *Loader) Load(ctx context.Context, path, segmentID string) audio.Handle {
	if err := ctx.Err(); err != nil {
		return newHandle(l.fallbackDur)
	}

	d, err := probe(filepath.Join(l.root, path))
	if err != nil {
		slog.Warn("narration asset unavailable, using fallback silence",
			"path", path, "segment_id", segmentID, "err", err)
		if l.onFallback != nil {
			l.onFallback(segmentID)
		}
		return newHandle(l.fallbackDur)
	}
	return newHandle(d)
}

// probe opens and decodes the clip at path, returning its playing duration.
func probe(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("clip: open %q: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		streamer, format, err := wav.Decode(f)
		if err != nil {
			return 0, fmt.Errorf("clip: decode wav %q: %w", path, err)
		}
		defer streamer.Close()
		return format.SampleRate.D(streamer.Len()), nil
	case ".mp3":
		streamer, format, err := mp3.Decode(f)
		if err != nil {
			return 0, fmt.Errorf("clip: decode mp3 %q: %w", path, err)
		}
		defer streamer.Close()
		return format.SampleRate.D(streamer.Len()), nil
	default:
		return 0, fmt.Errorf("clip: unsupported audio format %q", filepath.Ext(path))
	}
}
