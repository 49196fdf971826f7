package timing_test

import (
	"testing"
	"time"

	"github.com/narradeck/narradeck/internal/timing"
)

// fakeClock is a manually advanced clock source.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestStopwatch_ElapsedWhileRunning(t *testing.T) {
	clock := newFakeClock()
	sw := timing.NewStopwatch(clock.now)

	if sw.Elapsed() != 0 {
		t.Errorf("Elapsed before Begin: got %v, want 0", sw.Elapsed())
	}

	sw.Begin()
	clock.advance(90 * time.Second)

	if got := sw.Elapsed(); got != 90*time.Second {
		t.Errorf("Elapsed: got %v, want 90s", got)
	}
	if !sw.Running() {
		t.Error("Running: got false, want true")
	}
}

func TestStopwatch_FinalizeFreezesValue(t *testing.T) {
	clock := newFakeClock()
	sw := timing.NewStopwatch(clock.now)

	sw.Begin()
	clock.advance(42 * time.Second)

	got := sw.Finalize()
	if got != 42.0 {
		t.Errorf("Finalize: got %v, want 42", got)
	}
	if sw.Running() {
		t.Error("Running after Finalize: got true, want false")
	}

	// The frozen value is unaffected by further clock movement.
	clock.advance(time.Hour)
	final := sw.Final()
	if final == nil || *final != 42.0 {
		t.Errorf("Final: got %v, want 42", final)
	}
}

func TestStopwatch_FinalizeWithoutBegin(t *testing.T) {
	sw := timing.NewStopwatch(nil)
	if got := sw.Finalize(); got != 0 {
		t.Errorf("Finalize on stopped stopwatch: got %v, want 0", got)
	}
	if sw.Final() != nil {
		t.Error("Final should stay nil when Finalize did not run")
	}
}

func TestStopwatch_StopRecordsNothing(t *testing.T) {
	clock := newFakeClock()
	sw := timing.NewStopwatch(clock.now)

	sw.Begin()
	clock.advance(10 * time.Second)
	sw.Stop()

	if sw.Running() {
		t.Error("Running after Stop: got true, want false")
	}
	if sw.Final() != nil {
		t.Error("Stop must not record a final value")
	}
	if sw.Elapsed() != 0 {
		t.Errorf("Elapsed after Stop: got %v, want 0", sw.Elapsed())
	}
}

func TestStopwatch_BeginClearsFinal(t *testing.T) {
	clock := newFakeClock()
	sw := timing.NewStopwatch(clock.now)

	sw.Begin()
	clock.advance(5 * time.Second)
	sw.Finalize()

	sw.Begin()
	if sw.Final() != nil {
		t.Error("Begin must clear the previous final value")
	}
	clock.advance(3 * time.Second)
	if got := sw.Elapsed(); got != 3*time.Second {
		t.Errorf("Elapsed after re-Begin: got %v, want 3s", got)
	}
}
