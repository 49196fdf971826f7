// Package deck defines the slide data model for narrated presentations and
// the registry that resolves a presentation id to its deck.
//
// A deck is an ordered list of slides; each slide carries zero or more audio
// segments played in order during narrated playback. Decks are immutable once
// loaded; the playback engine only reads them.
package deck

import (
	"fmt"

	"github.com/narradeck/narradeck/internal/timing"
)

// DefaultAudioExt is appended when deriving a segment's audio path from the
// slide coordinates.
const DefaultAudioExt = ".mp3"

// AudioSegment is one narrated sub-unit within a slide.
type AudioSegment struct {
	// ID is a short identifier unique within the slide (e.g. "intro").
	ID string `yaml:"id" json:"id"`

	// Audio is the resource path of the narration clip, relative to the
	// audio asset root. When empty it is derived from the slide coordinates
	// by [DeriveAudioPath].
	Audio string `yaml:"audio" json:"audio"`

	// Duration is the pre-computed clip length in seconds, when known.
	// Used by the duration model; playback measures the real clip.
	Duration float64 `yaml:"duration" json:"duration"`

	// Narration is the spoken text. Not used for playback; kept for
	// duration estimation and cache-invalidation tooling.
	Narration string `yaml:"narration" json:"narration,omitempty"`

	// DelayAfter is an explicit pause in seconds after this segment,
	// consumed only by the duration model. When nil the resolved
	// between-segments delay applies.
	DelayAfter *float64 `yaml:"delay_after" json:"delayAfter,omitempty"`

	// Timing overrides slide- and deck-level delays for this segment only.
	Timing *timing.Config `yaml:"timing" json:"-"`
}

// Slide is one visual unit of a presentation, addressed by chapter and slide
// number.
type Slide struct {
	Chapter int    `yaml:"chapter" json:"chapter"`
	Number  int    `yaml:"slide" json:"slide"`
	Title   string `yaml:"title" json:"title,omitempty"`

	// Segments is the ordered audio narration for this slide. May be empty;
	// the engine advances through segment-free slides immediately.
	Segments []AudioSegment `yaml:"segments" json:"segments"`

	// Timing overrides deck-level delays for all segments of this slide.
	Timing *timing.Config `yaml:"timing" json:"-"`
}

// Key returns the canonical string form of the slide coordinates, used by
// the segment broadcaster to detect staleness when the active slide changes.
func (s *Slide) Key() string {
	return fmt.Sprintf("Ch%d:S%d", s.Chapter, s.Number)
}

// HasSegments reports whether the slide carries any audio narration.
func (s *Slide) HasSegments() bool {
	return len(s.Segments) > 0
}

// Meta is presentation-level metadata shown on the selection screen.
type Meta struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title,omitempty"`
	Description string `yaml:"description" json:"description,omitempty"`
	Author      string `yaml:"author" json:"author,omitempty"`
}

// Deck is a full presentation: metadata plus the ordered slide list.
type Deck struct {
	Meta   Meta
	Slides []Slide

	// Timing holds deck-level delay overrides applied to every slide.
	Timing *timing.Config
}

// FindSlide returns the index of the slide with the given coordinates, or
// (-1, false) when no such slide exists.
func (d *Deck) FindSlide(chapter, number int) (int, bool) {
	for i := range d.Slides {
		if d.Slides[i].Chapter == chapter && d.Slides[i].Number == number {
			return i, true
		}
	}
	return -1, false
}

// SegmentCount returns the total number of audio segments across all slides.
func (d *Deck) SegmentCount() int {
	n := 0
	for i := range d.Slides {
		n += len(d.Slides[i].Segments)
	}
	return n
}

// DeriveAudioPath builds the conventional audio resource path for a segment:
//
//	c{chapter}/s{slide}_segment_{NN}_{segmentID}{ext}
//
// where NN is the zero-padded segment index within the slide.
func DeriveAudioPath(s *Slide, index int, segmentID string) string {
	return fmt.Sprintf("c%d/s%d_segment_%02d_%s%s", s.Chapter, s.Number, index, segmentID, DefaultAudioExt)
}
