package strategy

import (
	"math/rand/v2"

	"github.com/angeloszaimis/blobstream/internal/backend"
	"github.com/angeloszaimis/blobstream/internal/workload"
)

type randomStrategy struct{}

func (r *randomStrategy) Select(entries []workload.Entry) (backend.Handle, bool) {
	if len(entries) == 0 {
		return backend.Handle{}, false
	}

	return entries[rand.IntN(len(entries))].Handle, true
}

func NewRandomStrategy() Strategy {
	return &randomStrategy{}
}
