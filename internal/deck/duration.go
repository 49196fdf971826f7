package deck

import "github.com/narradeck/narradeck/internal/timing"

// SegmentDuration is the duration contribution of a single segment.
type SegmentDuration struct {
	// Index of the segment within its slide.
	Index int `json:"index"`

	// Audio is the clip length in seconds.
	Audio float64 `json:"audio"`

	// DelayAfter is the pause after this segment in seconds: the segment's
	// explicit delay_after when set, otherwise the resolved between-segments
	// delay (zero for the slide's final segment; the transition to the next
	// slide is accounted at presentation level).
	DelayAfter float64 `json:"delayAfter"`
}

// SlideBreakdown is the duration of one slide: audio plus intra-slide delays.
type SlideBreakdown struct {
	Chapter int    `json:"chapter"`
	Slide   int    `json:"slide"`
	Title   string `json:"title"`

	// Total is Audio + Delays in seconds.
	Total float64 `json:"total"`

	// Audio is the summed clip length of all segments in seconds.
	Audio float64 `json:"audio"`

	// Delays is the summed delay-after of all segments in seconds.
	Delays float64 `json:"delays"`

	Segments []SegmentDuration `json:"segments"`
}

// DurationReport is the planned runtime of a whole presentation, with
// delays categorized so the estimate can be explained on the start screen.
type DurationReport struct {
	// Total is the grand total in seconds: slide totals plus inter-slide
	// transitions plus the closing delay.
	Total float64 `json:"total"`

	// AudioOnly is the summed clip length across every segment.
	AudioOnly float64 `json:"audioOnly"`

	// SegmentDelays is the summed intra-slide delay time.
	SegmentDelays float64 `json:"segmentDelays"`

	// SlideDelays is the summed between-slides transition time.
	SlideDelays float64 `json:"slideDelays"`

	// FinalDelay is the after-final-slide closing delay.
	FinalDelay float64 `json:"finalDelay"`

	Slides []SlideBreakdown `json:"slides"`
}

// SlideDuration computes the duration breakdown of a single slide. Pure: the
// same inputs always produce the same breakdown. A slide with no segments
// contributes zero.
func SlideDuration(deckTiming *timing.Config, s *Slide) SlideBreakdown {
	b := SlideBreakdown{
		Chapter: s.Chapter,
		Slide:   s.Number,
		Title:   s.Title,
	}
	if len(s.Segments) == 0 {
		return b
	}

	for i := range s.Segments {
		seg := &s.Segments[i]
		delay := 0.0
		switch {
		case seg.DelayAfter != nil:
			delay = *seg.DelayAfter
		case i < len(s.Segments)-1:
			delay = timing.Resolve(deckTiming, s.Timing, seg.Timing).BetweenSegments.Seconds()
		}

		b.Audio += seg.Duration
		b.Delays += delay
		b.Segments = append(b.Segments, SegmentDuration{
			Index:      i,
			Audio:      seg.Duration,
			DelayAfter: delay,
		})
	}
	b.Total = b.Audio + b.Delays
	return b
}

// Duration computes the planned runtime report for a whole deck. Pure and
// idempotent. An empty deck yields a zero report.
func Duration(d *Deck) DurationReport {
	var r DurationReport
	if len(d.Slides) == 0 {
		return r
	}

	for i := range d.Slides {
		s := &d.Slides[i]
		b := SlideDuration(d.Timing, s)
		r.AudioOnly += b.Audio
		r.SegmentDelays += b.Delays
		r.Slides = append(r.Slides, b)

		if i < len(d.Slides)-1 {
			r.SlideDelays += timing.Resolve(d.Timing, s.Timing).BetweenSlides.Seconds()
		}
	}

	last := &d.Slides[len(d.Slides)-1]
	r.FinalDelay = timing.Resolve(d.Timing, last.Timing).AfterFinalSlide.Seconds()

	r.Total = r.AudioOnly + r.SegmentDelays + r.SlideDelays + r.FinalDelay
	return r
}
