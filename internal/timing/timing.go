// Package timing provides the delay configuration model for narrated
// playback and the runtime stopwatch used to track actual presentation
// length.
//
// Delays follow a three-level override hierarchy: segment settings override
// slide settings, which override deck settings, which override the global
// defaults. [Resolve] merges any number of configs in that order and always
// returns a fully populated [Profile].
package timing

import "time"

// Default delay values, applied when no level of the hierarchy overrides them.
const (
	// DefaultBetweenSegments is the pause between audio segments within a slide.
	DefaultBetweenSegments = 500 * time.Millisecond

	// DefaultBetweenSlides is the pause after the last segment of a slide
	// before the next slide begins.
	DefaultBetweenSlides = 1 * time.Second

	// DefaultAfterFinalSlide is how long the closing frame stays visible
	// before playback returns to the start screen.
	DefaultAfterFinalSlide = 2 * time.Second

	// DefaultBeforeFirstSlide is the silence before the first slide appears.
	DefaultBeforeFirstSlide = 1 * time.Second
)

// Config holds optional delay overrides for one level of the hierarchy.
// All values are in milliseconds; nil fields inherit from the next level up.
type Config struct {
	// BetweenSegmentsMS is the delay between audio segments within a slide.
	BetweenSegmentsMS *int `yaml:"between_segments_ms"`

	// BetweenSlidesMS is the delay between slides.
	BetweenSlidesMS *int `yaml:"between_slides_ms"`

	// AfterFinalSlideMS is the delay after the final slide before the
	// presentation ends.
	AfterFinalSlideMS *int `yaml:"after_final_slide_ms"`

	// BeforeFirstSlideMS is the silence before the first slide.
	BeforeFirstSlideMS *int `yaml:"before_first_slide_ms"`
}

// Profile is a fully resolved set of delays with every field populated.
// Components consume a Profile so they never have to check for nil.
type Profile struct {
	BetweenSegments  time.Duration
	BetweenSlides    time.Duration
	AfterFinalSlide  time.Duration
	BeforeFirstSlide time.Duration
}

// DefaultProfile returns a Profile populated with the global defaults.
func DefaultProfile() Profile {
	return Profile{
		BetweenSegments:  DefaultBetweenSegments,
		BetweenSlides:    DefaultBetweenSlides,
		AfterFinalSlide:  DefaultAfterFinalSlide,
		BeforeFirstSlide: DefaultBeforeFirstSlide,
	}
}

// Resolve merges the given configs over the global defaults. Later configs
// win, matching the conceptual hierarchy deck → slide → segment. Nil configs
// are skipped, so callers can pass optional overrides directly:
//
//	p := timing.Resolve(deckCfg, slide.Timing, seg.Timing)
func Resolve(configs ...*Config) Profile {
	p := DefaultProfile()
	for _, c := range configs {
		if c == nil {
			continue
		}
		if c.BetweenSegmentsMS != nil {
			p.BetweenSegments = time.Duration(*c.BetweenSegmentsMS) * time.Millisecond
		}
		if c.BetweenSlidesMS != nil {
			p.BetweenSlides = time.Duration(*c.BetweenSlidesMS) * time.Millisecond
		}
		if c.AfterFinalSlideMS != nil {
			p.AfterFinalSlide = time.Duration(*c.AfterFinalSlideMS) * time.Millisecond
		}
		if c.BeforeFirstSlideMS != nil {
			p.BeforeFirstSlide = time.Duration(*c.BeforeFirstSlideMS) * time.Millisecond
		}
	}
	return p
}
