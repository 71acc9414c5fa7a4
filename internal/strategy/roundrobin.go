package strategy

import (
	"sync/atomic"

	"github.com/angeloszaimis/blobstream/internal/backend"
	"github.com/angeloszaimis/blobstream/internal/workload"
)

type roundRobinStrategy struct {
	current atomic.Uint64
}

func (rb *roundRobinStrategy) Select(entries []workload.Entry) (backend.Handle, bool) {
	if len(entries) == 0 {
		return backend.Handle{}, false
	}

	n := rb.current.Add(1)
	index := (n - 1) % uint64(len(entries))

	return entries[index].Handle, true
}

func NewRoundRobinStrategy() Strategy {
	return &roundRobinStrategy{}
}
