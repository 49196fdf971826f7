package deck

import (
	"errors"
	"fmt"
)

// Validate checks that d contains a coherent presentation. It returns a
// joined error listing all problems found, so manifest authors see every
// mistake at once.
func Validate(d *Deck) error {
	var errs []error

	if d.Meta.ID == "" {
		errs = append(errs, errors.New("presentation.id must not be empty"))
	}

	seen := make(map[string]bool, len(d.Slides))
	prevChapter, prevNumber := -1, -1
	for i := range d.Slides {
		s := &d.Slides[i]
		key := s.Key()

		if s.Chapter < 0 || s.Number < 0 {
			errs = append(errs, fmt.Errorf("slide %d: chapter and slide numbers must be non-negative", i))
		}
		if seen[key] {
			errs = append(errs, fmt.Errorf("slide %d: duplicate coordinates %s", i, key))
		}
		seen[key] = true

		// Slides must appear in presentation order.
		if s.Chapter < prevChapter || (s.Chapter == prevChapter && s.Number <= prevNumber) {
			errs = append(errs, fmt.Errorf("slide %d (%s): out of order; slides must be sorted by (chapter, slide)", i, key))
		}
		prevChapter, prevNumber = s.Chapter, s.Number

		segIDs := make(map[string]bool, len(s.Segments))
		for j := range s.Segments {
			seg := &s.Segments[j]
			if seg.ID == "" {
				errs = append(errs, fmt.Errorf("slide %s segment %d: id must not be empty", key, j))
				continue
			}
			if segIDs[seg.ID] {
				errs = append(errs, fmt.Errorf("slide %s: duplicate segment id %q", key, seg.ID))
			}
			segIDs[seg.ID] = true

			if seg.Duration < 0 {
				errs = append(errs, fmt.Errorf("slide %s segment %q: duration must be non-negative", key, seg.ID))
			}
			if seg.DelayAfter != nil && *seg.DelayAfter < 0 {
				errs = append(errs, fmt.Errorf("slide %s segment %q: delay_after must be non-negative", key, seg.ID))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("deck: invalid presentation %q: %w", d.Meta.ID, errors.Join(errs...))
	}
	return nil
}
