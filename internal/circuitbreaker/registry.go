package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angeloszaimis/blobstream/internal/backend"
)

type Registry struct {
	mutex     sync.RWMutex
	breakers  map[backend.Handle]*CircuitBreaker
	threshold int
	timeout   time.Duration
	now       func() time.Time
}

func NewRegistry(threshold int, timeout time.Duration) *Registry {
	return &Registry{
		breakers:  make(map[backend.Handle]*CircuitBreaker),
		threshold: threshold,
		timeout:   timeout,
		now:       time.Now,
	}
}

// WithClock replaces the time source of breakers created afterwards.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.now = now
	return r
}

func (r *Registry) GetBreaker(h backend.Handle) *CircuitBreaker {
	r.mutex.RLock()
	cb, exists := r.breakers[h]
	r.mutex.RUnlock()

	if exists {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Another goroutine may have created it.
	if cb, exists = r.breakers[h]; exists {
		return cb
	}

	cb = NewCircuitBreaker(r.threshold, r.timeout)
	cb.now = r.now
	r.breakers[h] = cb
	return cb
}

// Allow reports whether h may be selected.
func (r *Registry) Allow(h backend.Handle) bool {
	return r.GetBreaker(h).Allow()
}

// Report feeds the outcome of a stream served by h. Cancellations caused by
// the client going away and objects missing from the bucket say nothing
// about the backend and are ignored.
func (r *Registry) Report(h backend.Handle, err error) {
	switch {
	case err == nil:
		r.GetBreaker(h).RecordSuccess()
	case errors.Is(err, context.Canceled), errors.Is(err, backend.ErrObjectNotFound):
	default:
		r.GetBreaker(h).RecordFailure()
	}
}

// Stats returns breaker states keyed by handle name.
func (r *Registry) Stats() map[string]State {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[string]State, len(r.breakers))
	for h, cb := range r.breakers {
		stats[h.Name] = cb.State()
	}
	return stats
}
