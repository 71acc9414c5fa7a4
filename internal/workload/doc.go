// Package workload tracks how many in-flight streams each backend handle
// is serving.
//
// The table is the only source of load figures for selection. Entries are
// kept in registration order so that callers breaking ties by position get
// a stable answer.
package workload
