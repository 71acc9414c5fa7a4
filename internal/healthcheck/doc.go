// Package healthcheck periodically probes every bucket backend and feeds the
// outcome into the circuit breakers, so an unreachable bucket is taken out of
// selection before a download has to fail against it.
package healthcheck
