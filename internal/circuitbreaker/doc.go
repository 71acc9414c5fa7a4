// Package circuitbreaker keeps failing backend handles out of selection.
//
// Each handle gets a breaker with three states:
//
//   - CLOSED: normal operation, the handle may be selected
//   - OPEN: consecutive fetch failures reached the threshold, the handle is skipped
//   - HALF-OPEN: the reset timeout elapsed, the next stream probes the handle
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(5, 30*time.Second)
//	if registry.Allow(h) {
//	    err := stream(h)
//	    registry.Report(h, err)
//	}
//
// A threshold of zero disables tripping entirely.
package circuitbreaker
