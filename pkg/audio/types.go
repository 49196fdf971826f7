// Package audio defines the interfaces and types for narration clip loading
// and playback within narradeck.
//
// The two primary abstractions are:
//
//   - [Loader] resolves a narration resource path to a playable [Handle],
//     substituting a silent fallback clip when the resource cannot be loaded.
//   - [Handle] is one playable clip with start/stop controls and a single
//     event stream reporting its lifecycle.
//
// Implementations are provided by adapter packages (e.g. audio/clip for
// file-backed assets). The interfaces are intentionally narrow to keep the
// playback engine decoupled from how clips are stored or timed.
//
// This package lives under pkg/ because external shells (a browser bridge,
// a test harness) are expected to implement [Handle] and [Loader].
package audio

import (
	"context"
	"time"
)

// EventType classifies lifecycle events emitted by a [Handle].
type EventType int

const (
	// EventPlayable is emitted once the clip is ready and playback has begun.
	EventPlayable EventType = iota

	// EventError is emitted when the clip fails during playback.
	EventError

	// EventEnded is emitted when the clip finishes playing to completion.
	EventEnded
)

// String returns the human-readable name of the event type.
func (e EventType) String() string {
	switch e {
	case EventPlayable:
		return "PLAYABLE"
	case EventError:
		return "ERROR"
	case EventEnded:
		return "ENDED"
	default:
		return "UNKNOWN"
	}
}

// Event is one lifecycle notification from a [Handle]. All events for a
// handle flow through its single Events channel, so consumers have exactly
// one dispatch point to attach and detach.
type Event struct {
	// Type indicates which lifecycle point was reached.
	Type EventType

	// Err carries the failure for [EventError] events; nil otherwise.
	Err error
}

// Handle is one playable narration clip.
//
// A Handle is obtained from [Loader.Load] and emits at most one terminal
// event ([EventEnded] or [EventError]) after Start. Callers must call Stop
// on a handle before starting a successor; a stopped handle emits nothing
// further, which is what prevents a superseded clip's late "ended" from
// advancing a newer sequence.
type Handle interface {
	// Start begins playback. Emits [EventPlayable] once the clip is
	// playing, then a terminal event when it finishes or fails. Calling
	// Start more than once is a no-op.
	Start()

	// Stop halts playback and closes the event stream. Safe to call
	// multiple times and safe to call on a handle that was never started.
	Stop()

	// Events returns the handle's event stream. The channel is closed by
	// Stop and after the terminal event has been delivered.
	Events() <-chan Event

	// Duration returns the clip length when known, or zero.
	Duration() time.Duration
}

// Loader resolves narration resource paths to playable handles.
//
// Load never fails: when the resource at path cannot be opened or decoded,
// implementations must log a diagnostic naming segmentID and return a handle
// over a fixed silent fallback clip instead, so a missing asset can never
// stall a presentation.
type Loader interface {
	Load(ctx context.Context, path, segmentID string) Handle
}
