// Package session keeps one backend session per handle for the life of the
// process.
//
// The first request for a handle opens the session; concurrent first
// requests share that single open. Later requests reuse the cached
// session. A failed open is not cached, so the next request retries it.
package session
