package record

import (
	"context"
	"errors"
	"log/slog"

	"github.com/narradeck/narradeck/internal/resilience"
)

// GuardedStore wraps a [Store] with a circuit breaker so that a failing
// backend (typically postgres) degrades to "no records" instead of stalling
// every list request and session teardown on connection timeouts.
type GuardedStore struct {
	inner   Store
	breaker *resilience.CircuitBreaker
}

// Compile-time interface check.
var _ Store = (*GuardedStore)(nil)

// NewGuardedStore wraps inner with a circuit breaker using the given config.
func NewGuardedStore(inner Store, cfg resilience.CircuitBreakerConfig) *GuardedStore {
	return &GuardedStore{
		inner:   inner,
		breaker: resilience.NewCircuitBreaker(cfg),
	}
}

// Save writes through to the backend unless the breaker is open.
func (g *GuardedStore) Save(ctx context.Context, presentationID string, rec Record) error {
	return g.breaker.Execute(func() error {
		return g.inner.Save(ctx, presentationID, rec)
	})
}

// Load reads through to the backend unless the breaker is open. An open
// breaker reports [ErrNotFound]: a missing measured runtime is a cosmetic
// loss and must not fail the list endpoint.
func (g *GuardedStore) Load(ctx context.Context, presentationID string) (Record, error) {
	var (
		rec   Record
		found bool
	)
	err := g.breaker.Execute(func() error {
		r, innerErr := g.inner.Load(ctx, presentationID)
		if errors.Is(innerErr, ErrNotFound) {
			// Absence is a valid answer, not a backend failure.
			return nil
		}
		if innerErr != nil {
			return innerErr
		}
		rec, found = r, true
		return nil
	})
	if err != nil {
		slog.Debug("record load degraded", "presentation", presentationID, "error", err)
		return Record{}, ErrNotFound
	}
	if !found {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Delete writes through to the backend unless the breaker is open.
func (g *GuardedStore) Delete(ctx context.Context, presentationID string) error {
	return g.breaker.Execute(func() error {
		return g.inner.Delete(ctx, presentationID)
	})
}
