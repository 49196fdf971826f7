// Package record persists the actual measured runtime of completed narrated
// playthroughs, keyed by presentation id.
//
// A record stores the elapsed seconds together with the planned total it was
// measured against. When the freshly computed planned total no longer
// matches the persisted one, the record is stale (the deck content changed
// since the measurement) and must be discarded rather than displayed.
package record

import (
	"context"
	"errors"
	"math"
)

// Epsilon is the tolerance when comparing planned totals. Differences at or
// below it are floating-point noise, not content edits.
const Epsilon = 0.001

// ErrNotFound is returned by [Store.Load] when no record exists for the
// presentation id.
var ErrNotFound = errors.New("record: not found")

// Record is one persisted runtime measurement.
type Record struct {
	// Elapsed is the measured wall-clock playthrough length in seconds.
	Elapsed float64 `json:"elapsed"`

	// PlannedTotal is the statically estimated total the measurement was
	// taken against, in seconds.
	PlannedTotal float64 `json:"plannedTotal"`
}

// Stale reports whether rec was measured against a planned total that no
// longer matches the current estimate.
func Stale(rec Record, plannedTotal float64) bool {
	return math.Abs(rec.PlannedTotal-plannedTotal) > Epsilon
}

// Store persists runtime records. Implementations must be safe for
// concurrent use.
type Store interface {
	// Save writes or replaces the record for the presentation id.
	Save(ctx context.Context, presentationID string, rec Record) error

	// Load returns the stored record, or [ErrNotFound].
	Load(ctx context.Context, presentationID string) (Record, error)

	// Delete removes the record if present. Deleting an absent record is
	// not an error.
	Delete(ctx context.Context, presentationID string) error
}
