// Package httpserver wraps http.Server with address validation, timeouts
// suited to long running downloads, and graceful shutdown.
package httpserver
