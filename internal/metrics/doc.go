// Package metrics collects streaming statistics off the request path.
//
// Handlers emit events into a buffered channel; a single goroutine folds
// them into per-backend aggregates and Prometheus series:
//   - streams started and completed per backend
//   - chunks fetched and bytes delivered
//   - fetch and stream durations with percentile calculations (P50, P95, P99)
//   - response status distribution
//
// Emit never blocks. When the buffer is full the event is dropped and
// counted, so a stalled collector cannot slow streaming down.
//
// Example usage:
//
//	collector := metrics.NewCollector(1024, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.Event{
//		Type:     metrics.EventChunkFetched,
//		Backend:  "primary",
//		Bytes:    1 << 20,
//		Duration: 12 * time.Millisecond,
//	})
//
// The collector serves two views: StatusHandler renders a JSON status page
// with current backend loads, PrometheusHandler exposes the registry.
package metrics
