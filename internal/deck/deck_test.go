package deck_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/narradeck/narradeck/internal/deck"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const sampleManifest = `
presentation:
  id: demo
  title: "Demo Deck"
  author: "tester"

slides:
  - chapter: 0
    slide: 0
    title: "Intro"
    segments:
      - id: hello
        duration: 3.5
        narration: "Hello."
      - id: agenda
        audio: custom/agenda.mp3
        duration: 6.0
  - chapter: 0
    slide: 1
    title: "Empty interlude"
    segments: []
  - chapter: 1
    slide: 0
    title: "Close"
    segments:
      - id: bye
        duration: 2.0
`

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

// ── manifest loading ──────────────────────────────────────────────────────────

func TestLoadFromReader_Valid(t *testing.T) {
	d, err := deck.LoadFromReader(strings.NewReader(sampleManifest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.Meta.ID != "demo" {
		t.Errorf("meta.id: got %q, want %q", d.Meta.ID, "demo")
	}
	if len(d.Slides) != 3 {
		t.Fatalf("slides: got %d, want 3", len(d.Slides))
	}
	if got := d.SegmentCount(); got != 3 {
		t.Errorf("SegmentCount: got %d, want 3", got)
	}
}

func TestLoadFromReader_DerivesAudioPaths(t *testing.T) {
	d, err := deck.LoadFromReader(strings.NewReader(sampleManifest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Omitted audio path follows the naming convention.
	if got, want := d.Slides[0].Segments[0].Audio, "c0/s0_segment_00_hello.mp3"; got != want {
		t.Errorf("derived audio path: got %q, want %q", got, want)
	}
	// Explicit path survives untouched.
	if got, want := d.Slides[0].Segments[1].Audio, "custom/agenda.mp3"; got != want {
		t.Errorf("explicit audio path: got %q, want %q", got, want)
	}
	if got, want := d.Slides[2].Segments[0].Audio, "c1/s0_segment_00_bye.mp3"; got != want {
		t.Errorf("derived audio path: got %q, want %q", got, want)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	manifest := `
presentation:
  id: demo
slides:
  - chapter: 0
    slide: 0
    segments:
      - id: a
        naration: "typo"
`
	_, err := deck.LoadFromReader(strings.NewReader(manifest))
	if err == nil {
		t.Fatal("expected error for misspelled field, got nil")
	}
}

// ── validation ────────────────────────────────────────────────────────────────

func TestValidate_CollectsAllErrors(t *testing.T) {
	d := &deck.Deck{
		Slides: []deck.Slide{
			{Chapter: 0, Number: 1},
			{Chapter: 0, Number: 0}, // out of order
			{Chapter: 0, Number: 0}, // duplicate
		},
	}

	err := deck.Validate(d)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	for _, want := range []string{"presentation.id", "out of order", "duplicate coordinates"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q, got: %v", want, err)
		}
	}
}

func TestValidate_SegmentErrors(t *testing.T) {
	tests := []struct {
		name    string
		seg     []deck.AudioSegment
		wantMsg string
	}{
		{
			name:    "missing id",
			seg:     []deck.AudioSegment{{Duration: 1}},
			wantMsg: "id must not be empty",
		},
		{
			name:    "duplicate id",
			seg:     []deck.AudioSegment{{ID: "x", Duration: 1}, {ID: "x", Duration: 1}},
			wantMsg: "duplicate segment id",
		},
		{
			name:    "negative duration",
			seg:     []deck.AudioSegment{{ID: "x", Duration: -1}},
			wantMsg: "duration must be non-negative",
		},
		{
			name:    "negative delay",
			seg:     []deck.AudioSegment{{ID: "x", DelayAfter: floatPtr(-0.5)}},
			wantMsg: "delay_after must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &deck.Deck{
				Meta:   deck.Meta{ID: "demo"},
				Slides: []deck.Slide{{Chapter: 0, Number: 0, Segments: tt.seg}},
			}
			err := deck.Validate(d)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error should mention %q, got: %v", tt.wantMsg, err)
			}
		})
	}
}

func TestValidate_EmptyDeckIsValid(t *testing.T) {
	d := &deck.Deck{Meta: deck.Meta{ID: "empty"}}
	if err := deck.Validate(d); err != nil {
		t.Errorf("empty deck should validate, got: %v", err)
	}
}

// ── lookups ───────────────────────────────────────────────────────────────────

func TestFindSlide(t *testing.T) {
	d, err := deck.LoadFromReader(strings.NewReader(sampleManifest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if i, ok := d.FindSlide(1, 0); !ok || i != 2 {
		t.Errorf("FindSlide(1,0): got (%d,%v), want (2,true)", i, ok)
	}
	if _, ok := d.FindSlide(9, 9); ok {
		t.Error("FindSlide(9,9): got ok, want false")
	}
}

func TestSlideKey(t *testing.T) {
	s := &deck.Slide{Chapter: 2, Number: 7}
	if got := s.Key(); got != "Ch2:S7" {
		t.Errorf("Key: got %q, want %q", got, "Ch2:S7")
	}
}

// ── registry ──────────────────────────────────────────────────────────────────

func writeManifest(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "a.yaml", sampleManifest)
	writeManifest(t, dir, "b.yml", strings.Replace(sampleManifest, "id: demo", "id: second", 1))
	writeManifest(t, dir, "notes.txt", "not a manifest")

	r, err := deck.LoadDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", r.Len())
	}

	d, report, ok := r.Get("demo")
	if !ok {
		t.Fatal("Get(demo): not found")
	}
	if d.Meta.ID != "demo" {
		t.Errorf("deck id: got %q", d.Meta.ID)
	}
	if report.Total <= 0 {
		t.Errorf("planned total should be positive, got %v", report.Total)
	}

	list := r.List()
	if len(list) != 2 {
		t.Fatalf("List: got %d entries, want 2", len(list))
	}
	// Sorted by id.
	if list[0].Meta.ID != "demo" || list[1].Meta.ID != "second" {
		t.Errorf("List order: got %q, %q", list[0].Meta.ID, list[1].Meta.ID)
	}
}

func TestLoadDir_DuplicateID(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "a.yaml", sampleManifest)
	writeManifest(t, dir, "b.yaml", sampleManifest)

	_, err := deck.LoadDir(dir)
	if err == nil {
		t.Fatal("expected error for duplicate presentation id, got nil")
	}
	if !strings.Contains(err.Error(), "duplicate presentation id") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadDir_EmptyDir(t *testing.T) {
	r, err := deck.LoadDir(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len: got %d, want 0", r.Len())
	}
	if _, _, ok := r.Get("anything"); ok {
		t.Error("Get on empty registry should report not found")
	}
}
