package metrics

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angeloszaimis/blobstream/internal/circuitbreaker"
	"github.com/angeloszaimis/blobstream/internal/workload"
)

// LoadSource exposes current backend loads.
type LoadSource interface {
	Snapshot() []workload.Entry
}

// BreakerSource exposes circuit breaker states by backend name.
type BreakerSource interface {
	Stats() map[string]circuitbreaker.State
}

type BackendLoad struct {
	Backend string `json:"backend"`
	Load    int64  `json:"load"`
}

type Status struct {
	ServerStatus      string                    `json:"server_status"`
	Uptime            string                    `json:"uptime"`
	ConnectedBackends int                       `json:"connected_backends"`
	Loads             []BackendLoad             `json:"loads"`
	Breakers          map[string]string         `json:"breakers,omitempty"`
	Version           string                    `json:"version"`
	Backends          map[string]BackendMetrics `json:"backends"`
}

// StatusHandler renders the service status with loads sorted from busiest
// to idlest. breakers may be nil.
func (c *Collector) StatusHandler(loads LoadSource, breakers BreakerSource, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := c.Snapshot()
		entries := loads.Snapshot()

		status := Status{
			ServerStatus:      "running",
			Uptime:            snap.Uptime.Round(time.Second).String(),
			ConnectedBackends: len(entries),
			Loads:             make([]BackendLoad, len(entries)),
			Version:           version,
			Backends:          snap.Backends,
		}
		for i, e := range entries {
			status.Loads[i] = BackendLoad{Backend: e.Handle.Name, Load: e.Load}
		}
		sort.SliceStable(status.Loads, func(i, j int) bool {
			return status.Loads[i].Load > status.Loads[j].Load
		})

		if breakers != nil {
			stats := breakers.Stats()
			status.Breakers = make(map[string]string, len(stats))
			for name, state := range stats {
				status.Breakers[name] = state.String()
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

// TrackLoads publishes the load of every handle as a gauge.
func (c *Collector) TrackLoads(loads LoadSource) {
	for _, e := range loads.Snapshot() {
		h := e.Handle
		c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "blobstream_backend_load",
			Help:        "In-flight streams per backend",
			ConstLabels: prometheus.Labels{"backend": h.Name},
		}, func() float64 {
			for _, cur := range loads.Snapshot() {
				if cur.Handle == h {
					return float64(cur.Load)
				}
			}
			return 0
		}))
	}
}

func (c *Collector) PrometheusHandler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
