// Package handler implements the download endpoint. For every request it
// resolves the file, validates the range, leases the least loaded backend,
// and streams the planned chunks to the client.
//
// Everything that can fail cleanly (identifier, range, backend
// availability) is decided before the status line is written. Once bytes
// are flowing a backend failure can only abort the connection, which the
// client sees as a truncated download.
package handler
