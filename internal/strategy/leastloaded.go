package strategy

import (
	"math"

	"github.com/angeloszaimis/blobstream/internal/backend"
	"github.com/angeloszaimis/blobstream/internal/workload"
)

type leastLoadedStrategy struct{}

func (l *leastLoadedStrategy) Select(entries []workload.Entry) (backend.Handle, bool) {
	if len(entries) == 0 {
		return backend.Handle{}, false
	}

	var best backend.Handle
	bestLoad := int64(math.MaxInt64)

	// Strict comparison keeps the earliest entry on ties.
	for _, e := range entries {
		if e.Load < bestLoad {
			bestLoad = e.Load
			best = e.Handle
		}
	}

	return best, true
}

func NewLeastLoadedStrategy() Strategy {
	return &leastLoadedStrategy{}
}
