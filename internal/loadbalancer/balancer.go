package loadbalancer

import (
	"errors"
	"sync"

	"github.com/angeloszaimis/blobstream/internal/backend"
	"github.com/angeloszaimis/blobstream/internal/circuitbreaker"
	"github.com/angeloszaimis/blobstream/internal/strategy"
	"github.com/angeloszaimis/blobstream/internal/workload"
)

// ErrNoBackendAvailable is returned when every handle is excluded by its
// circuit breaker.
var ErrNoBackendAvailable = errors.New("no backend available")

type Balancer struct {
	table    *workload.Table
	strategy strategy.Strategy
	breakers *circuitbreaker.Registry
	mutex    sync.Mutex
}

// New returns a balancer over table. breakers may be nil, in which case
// every handle is always eligible.
func New(table *workload.Table, strat strategy.Strategy, breakers *circuitbreaker.Registry) *Balancer {
	return &Balancer{
		table:    table,
		strategy: strat,
		breakers: breakers,
	}
}

// Lease is a reservation of one unit of load on a handle.
type Lease struct {
	handle  backend.Handle
	table   *workload.Table
	release sync.Once
}

func (l *Lease) Handle() backend.Handle {
	return l.handle
}

// Release gives the reserved load back. Only the first call has an effect.
func (l *Lease) Release() {
	l.release.Do(func() {
		l.table.Release(l.handle)
	})
}

// Acquire selects a handle and records its use atomically.
func (b *Balancer) Acquire() (*Lease, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	eligible := b.filterAllowed(b.table.Snapshot())
	if len(eligible) == 0 {
		return nil, ErrNoBackendAvailable
	}

	chosen, ok := b.strategy.Select(eligible)
	if !ok {
		return nil, errors.New("strategy returned no backend")
	}

	b.table.RecordUse(chosen)
	return &Lease{handle: chosen, table: b.table}, nil
}

// Report forwards the outcome of a stream to the handle's circuit breaker.
func (b *Balancer) Report(h backend.Handle, err error) {
	if b.breakers != nil {
		b.breakers.Report(h, err)
	}
}

func (b *Balancer) Table() *workload.Table {
	return b.table
}

func (b *Balancer) filterAllowed(entries []workload.Entry) []workload.Entry {
	if b.breakers == nil {
		return entries
	}

	allowed := make([]workload.Entry, 0, len(entries))
	for _, e := range entries {
		if b.breakers.Allow(e.Handle) {
			allowed = append(allowed, e)
		}
	}

	return allowed
}
