package config

import "github.com/narradeck/narradeck/internal/timing"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// TimingChanged is true when the global delay defaults changed. New
	// playback sessions pick the new values up; running ones keep the old.
	TimingChanged bool
	NewTiming     *timing.Config

	// PresentationsChanged is true when the deck or audio locations
	// changed. Applying those requires a restart.
	PresentationsChanged bool
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart, plus a flag
// for location changes that are not.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !timingEqual(old.Timing, new.Timing) {
		d.TimingChanged = true
		d.NewTiming = new.Timing
	}

	if old.Presentations != new.Presentations {
		d.PresentationsChanged = true
	}

	return d
}

// timingEqual compares two optional timing override blocks field by field.
func timingEqual(a, b *timing.Config) bool {
	if a == nil || b == nil {
		return a == b
	}
	return intPtrEqual(a.BetweenSegmentsMS, b.BetweenSegmentsMS) &&
		intPtrEqual(a.BetweenSlidesMS, b.BetweenSlidesMS) &&
		intPtrEqual(a.AfterFinalSlideMS, b.AfterFinalSlideMS) &&
		intPtrEqual(a.BeforeFirstSlideMS, b.BeforeFirstSlideMS)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
