package strategy

import (
	"fmt"

	"github.com/angeloszaimis/blobstream/config"
	"github.com/angeloszaimis/blobstream/internal/backend"
	"github.com/angeloszaimis/blobstream/internal/workload"
)

type Strategy interface {
	// Select returns the chosen handle, or false when entries is empty.
	Select(entries []workload.Entry) (backend.Handle, bool)
}

// New returns the strategy registered under one of the config.Strategy* names.
func New(name string) (Strategy, error) {
	switch name {
	case config.StrategyLeastLoaded, "":
		return NewLeastLoadedStrategy(), nil
	case config.StrategyRoundRobin:
		return NewRoundRobinStrategy(), nil
	case config.StrategyRandom:
		return NewRandomStrategy(), nil
	default:
		return nil, fmt.Errorf("unknown balancing strategy %q", name)
	}
}
