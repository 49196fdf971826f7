// Package resilience guards calls to external dependencies, such as the
// runtime record database, behind a circuit breaker.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] when the breaker
// rejects the call without forwarding it to the dependency.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects every call with [ErrCircuitOpen] until the reset
	// timeout elapses.
	StateOpen

	// StateHalfOpen forwards a bounded number of probe calls to find out
	// whether the dependency recovered.
	StateHalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Default tuning, applied for zero-value config fields.
const (
	defaultMaxFailures  = 5
	defaultResetTimeout = 30 * time.Second
	defaultHalfOpenMax  = 3
)

// CircuitBreakerConfig holds tuning knobs for a [CircuitBreaker].
type CircuitBreakerConfig struct {
	// Name labels the breaker in log messages.
	Name string

	// MaxFailures is how many consecutive failures close state tolerates
	// before opening. Default: 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before probing the
	// dependency again. Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is the probe budget of the half-open state; that many
	// consecutive successes close the breaker again. Default: 3.
	HalfOpenMax int
}

// Stats is a point-in-time view of a breaker's accounting, for logging and
// debugging.
type Stats struct {
	State     State
	Failures  int
	Rejected  int64
	LastError string
}

// CircuitBreaker is a three-state breaker: closed while the dependency
// answers, open after too many consecutive failures, half-open while
// probing for recovery.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int

	// now is the clock source; tests swap it out.
	now func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	probes    int
	openedAt  time.Time
	rejected  int64
	lastError error
}

// NewCircuitBreaker creates a breaker from cfg, filling zero fields with the
// defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
		now:          time.Now,
	}
	if cb.maxFailures <= 0 {
		cb.maxFailures = defaultMaxFailures
	}
	if cb.resetTimeout <= 0 {
		cb.resetTimeout = defaultResetTimeout
	}
	if cb.halfOpenMax <= 0 {
		cb.halfOpenMax = defaultHalfOpenMax
	}
	return cb
}

// Execute forwards fn through the breaker. An open breaker returns
// [ErrCircuitOpen] without calling fn; otherwise fn's error is passed
// through and feeds the breaker's accounting.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}

	err := fn()
	cb.observe(err)
	return err
}

// admit decides whether a call may proceed, moving open to half-open when
// the reset timeout has elapsed.
func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.resetTimeout {
			cb.rejected++
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probes = 0
		slog.Info("circuit breaker probing dependency", "name", cb.name)

	case StateHalfOpen:
		if cb.probes >= cb.halfOpenMax {
			cb.rejected++
			return ErrCircuitOpen
		}
	}

	if cb.state == StateHalfOpen {
		cb.probes++
	}
	return nil
}

// observe feeds one call outcome into the breaker's accounting.
func (cb *CircuitBreaker) observe(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		switch cb.state {
		case StateHalfOpen:
			if cb.probes >= cb.halfOpenMax {
				cb.state = StateClosed
				cb.failures = 0
				slog.Info("circuit breaker closed, dependency recovered", "name", cb.name)
			}
		case StateClosed:
			cb.failures = 0
		}
		return
	}

	cb.lastError = err
	switch cb.state {
	case StateHalfOpen:
		// One failed probe is enough evidence.
		cb.trip()
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.maxFailures {
			cb.trip()
		}
	}
}

// trip opens the breaker. Callers must hold cb.mu.
func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.openedAt = cb.now()
	slog.Warn("circuit breaker opened",
		"name", cb.name,
		"consecutive_failures", cb.failures,
		"error", cb.lastError,
	)
}

// State returns the breaker's state. An open breaker whose reset timeout has
// elapsed reports half-open; the transition itself happens on the next
// Execute.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Stats returns a snapshot of the breaker's accounting.
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s := Stats{
		State:    cb.state,
		Failures: cb.failures,
		Rejected: cb.rejected,
	}
	if cb.lastError != nil {
		s.LastError = cb.lastError.Error()
	}
	return s
}

// Reset forces the breaker back to closed and clears the failure counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.probes = 0
	slog.Info("circuit breaker manually reset", "name", cb.name)
}
