// Package strategy defines the backend selection interface and implements
// the available algorithms:
//
//   - Least Loaded: picks the handle with the fewest in-flight streams,
//     earliest registered handle on ties
//   - Round Robin: sequential distribution across handles
//   - Random: uniform random pick
//
// Strategies only choose among the workload entries they are given. The
// caller filters out handles that must not be used and records the use of
// the chosen one.
package strategy
