// Package loadbalancer picks the backend handle for each new stream and
// accounts for its load until the stream ends.
//
// Acquire runs selection and the load increment under one lock, so two
// concurrent requests never both observe the same minimum. The returned
// Lease must be released exactly once when the stream finishes; extra
// releases are no-ops.
package loadbalancer
