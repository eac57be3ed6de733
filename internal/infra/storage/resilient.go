package storage

import (
	"context"
	"errors"

	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/domain"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/infra/resilience"
	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/port"

	"github.com/sony/gobreaker"
)

// Resilient decorates a KVStore with retry/backoff and a circuit breaker.
type Resilient struct {
	next port.KVStore
	cb   *gobreaker.CircuitBreaker
	cfg  resilience.Config
}

// NewResilient wraps next.
func NewResilient(next port.KVStore, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *Resilient {
	return &Resilient{next: next, cb: cb, cfg: cfg}
}

// Get reads key through the breaker.
func (r *Resilient) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := r.do(ctx, func() error {
		var err error
		value, ok, err = r.next.Get(ctx, key)
		return err
	})
	return value, ok, err
}

// Set writes key through the breaker.
func (r *Resilient) Set(ctx context.Context, key, value string) error {
	return r.do(ctx, func() error { return r.next.Set(ctx, key, value) })
}

// Delete removes key through the breaker.
func (r *Resilient) Delete(ctx context.Context, key string) error {
	return r.do(ctx, func() error { return r.next.Delete(ctx, key) })
}

func (r *Resilient) do(ctx context.Context, fn func() error) error {
	return resilience.RetryWithBackoff(ctx, r.cfg, func() error {
		_, err := r.cb.Execute(func() (any, error) {
			return nil, fn()
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return resilience.Permanent(&domain.ErrCircuitOpen{Service: r.cb.Name()})
		}
		return err
	})
}
