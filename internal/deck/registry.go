package deck

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Summary is the registry's listing entry for one presentation.
type Summary struct {
	Meta         Meta    `json:"meta"`
	SlideCount   int     `json:"slideCount"`
	SegmentCount int     `json:"segmentCount"`
	PlannedTotal float64 `json:"plannedTotal"`
}

// Registry resolves presentation ids to loaded decks. Decks and their
// duration reports are computed once at load time and are immutable
// afterwards, so reads need no locking.
type Registry struct {
	entries map[string]*entry
}

type entry struct {
	deck   *Deck
	report DurationReport
}

// LoadDir loads every .yaml/.yml manifest in dir into a Registry. Manifests
// that fail to parse or validate abort the load; a directory with no
// manifests yields an empty (but usable) registry.
func LoadDir(dir string) (*Registry, error) {
	names, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("deck: read dir %q: %w", dir, err)
	}

	r := &Registry{entries: make(map[string]*entry)}
	for _, de := range names {
		if de.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(de.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, de.Name())
		d, err := Load(path)
		if err != nil {
			return nil, err
		}
		if _, dup := r.entries[d.Meta.ID]; dup {
			return nil, fmt.Errorf("deck: duplicate presentation id %q in %q", d.Meta.ID, path)
		}

		r.entries[d.Meta.ID] = &entry{deck: d, report: Duration(d)}
		slog.Info("loaded presentation",
			"id", d.Meta.ID,
			"slides", len(d.Slides),
			"segments", d.SegmentCount(),
			"planned_total_s", r.entries[d.Meta.ID].report.Total,
		)
	}
	return r, nil
}

// Get returns the deck and its precomputed duration report for id.
func (r *Registry) Get(id string) (*Deck, DurationReport, bool) {
	e, ok := r.entries[id]
	if !ok {
		return nil, DurationReport{}, false
	}
	return e.deck, e.report, true
}

// List returns summaries for all presentations, sorted by id.
func (r *Registry) List() []Summary {
	out := make([]Summary, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, Summary{
			Meta:         e.deck.Meta,
			SlideCount:   len(e.deck.Slides),
			SegmentCount: e.deck.SegmentCount(),
			PlannedTotal: e.report.Total,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Meta.ID < out[j].Meta.ID })
	return out
}

// Len returns the number of loaded presentations.
func (r *Registry) Len() int {
	return len(r.entries)
}
