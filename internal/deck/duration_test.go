package deck_test

import (
	"testing"

	"github.com/narradeck/narradeck/internal/deck"
	"github.com/narradeck/narradeck/internal/timing"
)

func almostEqual(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

func TestDuration_EmptyDeck(t *testing.T) {
	r := deck.Duration(&deck.Deck{Meta: deck.Meta{ID: "empty"}})
	if r.Total != 0 || len(r.Slides) != 0 {
		t.Errorf("empty deck should yield a zero report, got %+v", r)
	}
}

func TestDuration_ExplicitDelays(t *testing.T) {
	// Two segments with explicit delay-after, followed by an audio-free
	// slide. Audio and delays: 3+1+4+1 = 9, then the inter-slide and final
	// delays on top.
	d := &deck.Deck{
		Meta: deck.Meta{ID: "demo"},
		Slides: []deck.Slide{
			{Chapter: 0, Number: 0, Segments: []deck.AudioSegment{
				{ID: "a", Duration: 3, DelayAfter: floatPtr(1)},
				{ID: "b", Duration: 4, DelayAfter: floatPtr(1)},
			}},
			{Chapter: 0, Number: 1},
		},
	}

	r := deck.Duration(d)

	if !almostEqual(r.AudioOnly, 7) {
		t.Errorf("AudioOnly: got %v, want 7", r.AudioOnly)
	}
	if !almostEqual(r.SegmentDelays, 2) {
		t.Errorf("SegmentDelays: got %v, want 2", r.SegmentDelays)
	}
	wantSlideDelays := timing.DefaultBetweenSlides.Seconds()
	if !almostEqual(r.SlideDelays, wantSlideDelays) {
		t.Errorf("SlideDelays: got %v, want %v", r.SlideDelays, wantSlideDelays)
	}
	wantFinal := timing.DefaultAfterFinalSlide.Seconds()
	if !almostEqual(r.FinalDelay, wantFinal) {
		t.Errorf("FinalDelay: got %v, want %v", r.FinalDelay, wantFinal)
	}
	if !almostEqual(r.Total, 9+wantSlideDelays+wantFinal) {
		t.Errorf("Total: got %v, want %v", r.Total, 9+wantSlideDelays+wantFinal)
	}

	if len(r.Slides) != 2 {
		t.Fatalf("Slides: got %d breakdowns, want 2", len(r.Slides))
	}
	if !almostEqual(r.Slides[0].Total, 9) {
		t.Errorf("slide 0 total: got %v, want 9", r.Slides[0].Total)
	}
	if !almostEqual(r.Slides[1].Total, 0) {
		t.Errorf("audio-free slide total: got %v, want 0", r.Slides[1].Total)
	}
}

func TestDuration_ResolvedDelayFallback(t *testing.T) {
	// Without explicit delay-after, intermediate segments get the resolved
	// between-segments delay; the slide's last segment gets none.
	d := &deck.Deck{
		Meta:   deck.Meta{ID: "demo"},
		Timing: &timing.Config{BetweenSegmentsMS: intPtr(2000)},
		Slides: []deck.Slide{
			{Chapter: 0, Number: 0, Segments: []deck.AudioSegment{
				{ID: "a", Duration: 1},
				{ID: "b", Duration: 1},
				{ID: "c", Duration: 1},
			}},
		},
	}

	b := deck.SlideDuration(d.Timing, &d.Slides[0])
	if !almostEqual(b.Delays, 4) {
		t.Errorf("Delays: got %v, want 4 (two gaps of 2s)", b.Delays)
	}
	if !almostEqual(b.Segments[2].DelayAfter, 0) {
		t.Errorf("final segment delay: got %v, want 0", b.Segments[2].DelayAfter)
	}
}

func TestDuration_SegmentTimingOverride(t *testing.T) {
	d := &deck.Deck{
		Meta:   deck.Meta{ID: "demo"},
		Timing: &timing.Config{BetweenSegmentsMS: intPtr(1000)},
		Slides: []deck.Slide{
			{Chapter: 0, Number: 0, Segments: []deck.AudioSegment{
				{ID: "a", Duration: 1, Timing: &timing.Config{BetweenSegmentsMS: intPtr(250)}},
				{ID: "b", Duration: 1},
			}},
		},
	}

	b := deck.SlideDuration(d.Timing, &d.Slides[0])
	if !almostEqual(b.Segments[0].DelayAfter, 0.25) {
		t.Errorf("overridden delay: got %v, want 0.25", b.Segments[0].DelayAfter)
	}
}

func TestDuration_Idempotent(t *testing.T) {
	d := &deck.Deck{
		Meta: deck.Meta{ID: "demo"},
		Slides: []deck.Slide{
			{Chapter: 0, Number: 0, Segments: []deck.AudioSegment{
				{ID: "a", Duration: 2.5},
				{ID: "b", Duration: 1.5, DelayAfter: floatPtr(0.75)},
			}},
			{Chapter: 1, Number: 0, Segments: []deck.AudioSegment{
				{ID: "c", Duration: 4},
			}},
		},
	}

	first := deck.Duration(d)
	second := deck.Duration(d)
	if first.Total != second.Total || first.AudioOnly != second.AudioOnly {
		t.Errorf("Duration must be idempotent: first %+v, second %+v", first, second)
	}
}
