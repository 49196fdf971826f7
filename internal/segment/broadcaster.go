// Package segment provides the shared segment-state broadcaster: the one
// place that knows which audio segment of the current slide is active.
//
// The broadcaster exists so visual slide content can implement progressive
// reveal ("segment N and later are visible") without owning any playback
// logic. The playback engine is the only writer; slide content and the
// serving shell are read-only subscribers.
package segment

import (
	"log/slog"
	"sync"

	"github.com/narradeck/narradeck/internal/deck"
)

// State is a snapshot of the segment position within the active slide.
type State struct {
	// Index is the active segment index, always within [0, Total) while a
	// slide with segments is active.
	Index int `json:"index"`

	// Current is the active segment, or nil when no slide is active or the
	// slide has no segments.
	Current *deck.AudioSegment `json:"current"`

	// Total is the segment count of the active slide.
	Total int `json:"total"`

	// Active reports whether a slide with at least one segment is active.
	Active bool `json:"active"`

	// SlideKey identifies the slide this state belongs to, letting readers
	// detect staleness when the active slide changes underneath them.
	SlideKey string `json:"slideKey"`
}

// Visible reports whether segment i has been reached (progressive reveal).
func (st State) Visible(i int) bool {
	return st.Active && st.Index >= i
}

// On reports whether segment i is exactly the active one.
func (st State) On(i int) bool {
	return st.Active && st.Index == i
}

// Broadcaster holds the shared segment state for one active presentation.
//
// All mutations are synchronous: by the time a control method returns, the
// state has changed and every subscriber channel carries the new snapshot,
// so content observes the move on its next render pass. Safe for concurrent
// use, but by contract only the playback engine calls the mutating methods.
type Broadcaster struct {
	mu       sync.RWMutex
	segments []deck.AudioSegment
	st       State

	subs   map[int]chan State
	nextID int
}

// New creates an inactive Broadcaster with no segments.
func New() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan State)}
}

// Initialize resets state to segment 0 of the given list and marks the
// broadcaster active if the list is non-empty. Called by the engine every
// time playback begins a new slide.
func (b *Broadcaster) Initialize(slideKey string, segments []deck.AudioSegment) {
	b.mu.Lock()
	defer b.mu.Unlock()

	slog.Debug("initializing segments", "slide", slideKey, "count", len(segments))

	b.segments = segments
	b.st = State{
		Index:    0,
		Total:    len(segments),
		Active:   len(segments) > 0,
		SlideKey: slideKey,
	}
	if len(segments) > 0 {
		b.st.Current = &b.segments[0]
	}
	b.notifyLocked()
}

// SetCurrent moves to an explicit segment index. Out-of-range values are
// rejected as a logged no-op.
func (b *Broadcaster) SetCurrent(index int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if index < 0 || index >= len(b.segments) {
		slog.Warn("invalid segment index, ignoring",
			"index", index, "total", len(b.segments), "slide", b.st.SlideKey)
		return
	}
	b.st.Index = index
	b.st.Current = &b.segments[index]
	b.notifyLocked()
}

// Next moves forward by one segment, clamped at the last one.
func (b *Broadcaster) Next() {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := b.st.Index + 1
	if next >= len(b.segments) {
		slog.Debug("already at last segment", "slide", b.st.SlideKey)
		return
	}
	b.st.Index = next
	b.st.Current = &b.segments[next]
	b.notifyLocked()
}

// Previous moves back by one segment, clamped at the first one.
func (b *Broadcaster) Previous() {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev := b.st.Index - 1
	if prev < 0 {
		slog.Debug("already at first segment", "slide", b.st.SlideKey)
		return
	}
	b.st.Index = prev
	b.st.Current = &b.segments[prev]
	b.notifyLocked()
}

// Reset returns to segment 0 without changing the segment list.
func (b *Broadcaster) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.st.Index = 0
	b.st.Current = nil
	if len(b.segments) > 0 {
		b.st.Current = &b.segments[0]
	}
	b.notifyLocked()
}

// Snapshot returns the current state.
func (b *Broadcaster) Snapshot() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.st
}

// Subscribe registers a read-only observer. The returned channel is
// coalescing (buffer of one): a slow reader sees the latest state rather
// than a backlog. Callers must Unsubscribe on teardown.
func (b *Broadcaster) Subscribe() (int, <-chan State) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan State, 1)
	ch <- b.st
	b.subs[id] = ch
	return id, ch
}

// Unsubscribe removes and closes the observer channel registered under id.
func (b *Broadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// notifyLocked pushes the current state to every subscriber, replacing any
// unconsumed previous snapshot. Callers must hold b.mu.
func (b *Broadcaster) notifyLocked() {
	for _, ch := range b.subs {
		select {
		case ch <- b.st:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- b.st:
			default:
			}
		}
	}
}
