package clip

import (
	"sync"
	"time"

	"github.com/narradeck/narradeck/pkg/audio"
)

// handle plays one decoded clip on a wall-clock timer. The server does not
// render samples itself (the browser shell plays the actual audio), so
// "playback" here means timing the clip's duration and emitting lifecycle
// events the engine can sequence on.
type handle struct {
	duration time.Duration

	mu      sync.Mutex
	events  chan audio.Event
	timer   *time.Timer
	started bool
	stopped bool
}

// Compile-time interface check.
var _ audio.Handle = (*handle)(nil)

func newHandle(d time.Duration) *handle {
	return &handle{
		duration: d,
		// Buffer covers the maximum event sequence (playable + terminal)
		// so emit never blocks the timer goroutine.
		events: make(chan audio.Event, 2),
	}
}

// Start emits EventPlayable and schedules EventEnded after the clip duration.
func (h *handle) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started || h.stopped {
		return
	}
	h.started = true
	h.events <- audio.Event{Type: audio.EventPlayable}
	h.timer = time.AfterFunc(h.duration, h.finish)
}

// finish delivers the terminal event unless the handle was stopped first.
func (h *handle) finish() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	h.stopped = true
	h.events <- audio.Event{Type: audio.EventEnded}
	close(h.events)
}

// Stop cancels the pending terminal event and closes the event stream.
func (h *handle) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	h.stopped = true
	if h.timer != nil {
		h.timer.Stop()
	}
	close(h.events)
}

func (h *handle) Events() <-chan audio.Event {
	return h.events
}

func (h *handle) Duration() time.Duration {
	return h.duration
}
