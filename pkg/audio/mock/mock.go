// Package mock provides in-memory mock implementations of [audio.Loader]
// and [audio.Handle] for use in unit tests.
//
// All mocks are safe for concurrent use. They record every call so tests can
// assert on call counts and arguments, and expose exported fields that the
// test sets to control behaviour.
//
// Typical usage:
//
//	loader := mock.NewLoader()
//	loader.Auto = true // handles complete on their own
//	eng := engine.New(d, loader)
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/narradeck/narradeck/pkg/audio"
)

// ─── Handle ──────────────────────────────────────────────────────────────────

// Handle is a scriptable implementation of [audio.Handle].
//
// When Auto is false the test drives the lifecycle via the Emit* methods.
// When Auto is true, Start emits EventPlayable immediately and the terminal
// event (EventEnded, or EventError when Err is set) after AutoDelay.
type Handle struct {
	// Auto makes the handle complete on its own after Start.
	Auto bool

	// AutoDelay is the artificial clip length used in Auto mode.
	AutoDelay time.Duration

	// Err, when set, makes the terminal event an error instead of ended.
	Err error

	// DurationResult is returned by Duration.
	DurationResult time.Duration

	mu sync.Mutex

	// CallCountStart records how many times Start was called.
	CallCountStart int

	// CallCountStop records how many times Stop was called.
	CallCountStop int

	events  chan audio.Event
	started bool
	closed  bool
}

// Compile-time interface check.
var _ audio.Handle = (*Handle)(nil)

// NewHandle creates a Handle with a buffered event stream.
func NewHandle() *Handle {
	return &Handle{events: make(chan audio.Event, 8)}
}

// Start records the call and, in Auto mode, runs the scripted lifecycle.
func (h *Handle) Start() {
	h.mu.Lock()
	h.CallCountStart++
	if h.started || h.closed {
		h.mu.Unlock()
		return
	}
	h.started = true
	auto := h.Auto
	h.mu.Unlock()

	if !auto {
		return
	}
	h.EmitPlayable()
	time.AfterFunc(h.AutoDelay, func() {
		if h.Err != nil {
			h.EmitError(h.Err)
			return
		}
		h.EmitEnded()
	})
}

// Stop records the call and closes the event stream.
func (h *Handle) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.CallCountStop++
	if h.closed {
		return
	}
	h.closed = true
	close(h.events)
}

// Events returns the handle's event stream.
func (h *Handle) Events() <-chan audio.Event {
	return h.events
}

// Duration returns DurationResult.
func (h *Handle) Duration() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.DurationResult
}

// Started reports whether Start has been called.
func (h *Handle) Started() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.started
}

// Stopped reports whether Stop has been called.
func (h *Handle) Stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// EmitPlayable delivers EventPlayable unless the handle is stopped.
func (h *Handle) EmitPlayable() { h.emit(audio.Event{Type: audio.EventPlayable}) }

// EmitEnded delivers the EventEnded terminal event and closes the stream.
func (h *Handle) EmitEnded() { h.emitTerminal(audio.Event{Type: audio.EventEnded}) }

// EmitError delivers an EventError terminal event and closes the stream.
func (h *Handle) EmitError(err error) {
	h.emitTerminal(audio.Event{Type: audio.EventError, Err: err})
}

func (h *Handle) emit(ev audio.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.events <- ev
}

func (h *Handle) emitTerminal(ev audio.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.events <- ev
	close(h.events)
}

// ─── Loader ──────────────────────────────────────────────────────────────────

// LoadCall records the arguments of one Load invocation.
type LoadCall struct {
	Path      string
	SegmentID string
}

// Loader is a mock implementation of [audio.Loader].
//
// Scripted handles can be registered per resource path via Script; paths
// without a script get a fresh handle inheriting the loader's Auto settings.
type Loader struct {
	// Auto configures handles created for unscripted paths.
	Auto bool

	// AutoDelay is the artificial clip length for unscripted auto handles.
	AutoDelay time.Duration

	mu sync.Mutex

	// Calls holds every Load invocation in order.
	Calls []LoadCall

	scripted map[string]*Handle
	// Created holds every handle returned by Load, in order.
	Created []*Handle
}

// Compile-time interface check.
var _ audio.Loader = (*Loader)(nil)

// NewLoader creates an empty Loader.
func NewLoader() *Loader {
	return &Loader{scripted: make(map[string]*Handle)}
}

// Script registers the handle to return for the given resource path.
func (l *Loader) Script(path string, h *Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scripted[path] = h
}

// Load records the call and returns the scripted or auto-created handle.
// Like a real loader it never fails.
func (l *Loader) Load(_ context.Context, path, segmentID string) audio.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, LoadCall{Path: path, SegmentID: segmentID})

	h, ok := l.scripted[path]
	if !ok {
		h = NewHandle()
		h.Auto = l.Auto
		h.AutoDelay = l.AutoDelay
	}
	l.Created = append(l.Created, h)
	return h
}

// CallCount returns the number of Load invocations so far.
func (l *Loader) CallCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Calls)
}
