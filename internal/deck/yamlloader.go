package deck

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/narradeck/narradeck/internal/timing"
)

// ManifestFile is the top-level structure of a presentation manifest.
//
// Example:
//
//	presentation:
//	  id: meeting-highlights
//	  title: "Meeting Highlights"
//	slides:
//	  - chapter: 0
//	    slide: 0
//	    title: "Intro"
//	    segments:
//	      - id: intro
//	        duration: 3.2
//	        narration: "Welcome to the walkthrough."
type ManifestFile struct {
	Presentation PresentationMeta `yaml:"presentation"`
	Slides       []Slide          `yaml:"slides"`
}

// PresentationMeta is the manifest's presentation block: identity plus
// optional deck-level timing overrides.
type PresentationMeta struct {
	Meta   `yaml:",inline"`
	Timing *timing.Config `yaml:"timing"`
}

// Load reads and parses a presentation manifest from disk, derives omitted
// audio paths, and validates the result.
func Load(path string) (*Deck, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("deck: open manifest %q: %w", path, err)
	}
	defer f.Close()

	d, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("deck: parse manifest %q: %w", path, err)
	}
	return d, nil
}

// LoadFromReader parses manifest YAML from r. Unknown fields are rejected so
// a typo in a manifest fails loudly instead of silently dropping narration.
func LoadFromReader(r io.Reader) (*Deck, error) {
	var mf ManifestFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&mf); err != nil {
		return nil, fmt.Errorf("deck: decode yaml: %w", err)
	}

	d := &Deck{
		Meta:   mf.Presentation.Meta,
		Slides: mf.Slides,
		Timing: mf.Presentation.Timing,
	}

	// Fill in conventional audio paths for segments that omit one.
	for i := range d.Slides {
		s := &d.Slides[i]
		for j := range s.Segments {
			if s.Segments[j].Audio == "" {
				s.Segments[j].Audio = DeriveAudioPath(s, j, s.Segments[j].ID)
			}
		}
	}

	if err := Validate(d); err != nil {
		return nil, err
	}
	return d, nil
}
