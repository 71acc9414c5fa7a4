package healthcheck

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/angeloszaimis/blobstream/internal/backend"
	"github.com/angeloszaimis/blobstream/internal/circuitbreaker"
	"github.com/angeloszaimis/blobstream/internal/session"
)

const probeTimeout = 5 * time.Second

// Prober checks a single backend and returns nil when it is usable.
type Prober func(ctx context.Context, h backend.Handle) error

type pinger interface {
	Ping(ctx context.Context) error
}

// SessionProber probes through the shared session cache. Opening the session
// is already a reachability check; sessions that can ping are pinged too.
func SessionProber(cache *session.Cache) Prober {
	return func(ctx context.Context, h backend.Handle) error {
		sess, err := cache.Get(ctx, h)
		if err != nil {
			return err
		}
		if p, ok := sess.(pinger); ok {
			return p.Ping(ctx)
		}
		return nil
	}
}

// Run starts one checker per handle and blocks until ctx is cancelled and all
// of them have returned.
func Run(
	ctx context.Context,
	handles []backend.Handle,
	probe Prober,
	breakers *circuitbreaker.Registry,
	interval time.Duration,
	logger *slog.Logger,
) {
	var wg sync.WaitGroup
	for _, h := range handles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			HealthCheck(ctx, h, probe, breakers, interval, logger)
		}()
	}
	wg.Wait()
}

// HealthCheck probes h every interval and reports the result to its breaker.
// State changes are logged once.
func HealthCheck(
	ctx context.Context,
	h backend.Handle,
	probe Prober,
	breakers *circuitbreaker.Registry,
	interval time.Duration,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	healthy := true

	for {
		select {
		case <-ctx.Done():
			logger.Debug("health check stopped", slog.String("backend", h.Name))
			return

		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			err := probe(probeCtx, h)
			cancel()

			if ctx.Err() != nil {
				return
			}

			breakers.Report(h, err)

			if (err == nil) == healthy {
				continue
			}
			healthy = err == nil

			if healthy {
				logger.Info("backend is back up", slog.String("backend", h.Name))
			} else {
				logger.Warn("backend is down",
					slog.String("backend", h.Name),
					slog.Any("err", err),
				)
			}
		}
	}
}
