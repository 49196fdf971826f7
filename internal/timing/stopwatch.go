package timing

import (
	"context"
	"sync"
	"time"
)

// Stopwatch tracks actual elapsed play time across a narrated run. It is
// started when playback begins, sampled on display-refresh ticks while
// playing, and finalized exactly once when playback legitimately completes.
//
// The zero value is not usable; create instances with [NewStopwatch].
// Safe for concurrent use.
type Stopwatch struct {
	mu      sync.Mutex
	now     func() time.Time
	start   time.Time
	running bool

	// final holds the frozen elapsed seconds after Finalize. Nil until then.
	final *float64
}

// NewStopwatch returns a stopped Stopwatch. The now function is the clock
// source; pass nil for [time.Now]. Tests inject a fake clock here.
func NewStopwatch(now func() time.Time) *Stopwatch {
	if now == nil {
		now = time.Now
	}
	return &Stopwatch{now: now}
}

// Begin captures a new timing baseline and clears any previously finalized
// value. Calling Begin while running resets the baseline.
func (s *Stopwatch) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start = s.now()
	s.running = true
	s.final = nil
}

// Elapsed samples the clock and returns the time since Begin. Returns zero
// when the stopwatch is not running.
func (s *Stopwatch) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return 0
	}
	return s.now().Sub(s.start)
}

// Running reports whether the stopwatch has been started and not yet
// stopped or finalized.
func (s *Stopwatch) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stop halts sampling without recording a final value. Used when playback
// pauses or is torn down before completing.
func (s *Stopwatch) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// Finalize stops the stopwatch and freezes the elapsed seconds as the final
// measurement. Returns the frozen value. If the stopwatch was never started,
// Finalize returns 0 and records no final value.
func (s *Stopwatch) Finalize() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return 0
	}
	elapsed := s.now().Sub(s.start).Seconds()
	s.running = false
	s.final = &elapsed
	return elapsed
}

// Final returns the frozen elapsed seconds recorded by Finalize, or nil when
// no run has completed since the last Begin.
func (s *Stopwatch) Final() *float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.final == nil {
		return nil
	}
	v := *s.final
	return &v
}

// Watch emits the current elapsed duration on the returned channel once per
// interval while the stopwatch is running, mirroring a display-refresh tick.
// The channel is coalescing (buffer of one, stale values dropped) and closes
// when ctx is cancelled.
func (s *Stopwatch) Watch(ctx context.Context, interval time.Duration) <-chan time.Duration {
	out := make(chan time.Duration, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !s.Running() {
					continue
				}
				elapsed := s.Elapsed()
				select {
				case out <- elapsed:
				default:
					// Drop the stale sample, keep the channel fresh.
					select {
					case <-out:
					default:
					}
					select {
					case out <- elapsed:
					default:
					}
				}
			}
		}
	}()
	return out
}
