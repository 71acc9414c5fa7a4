package backend

import (
	"context"
	"errors"
)

var (
	// ErrObjectNotFound is returned when the referenced object does not exist
	// in the bucket behind a handle.
	ErrObjectNotFound = errors.New("backend: object not found")

	// ErrClosed is returned by fetches issued after the session was closed.
	ErrClosed = errors.New("backend: session closed")
)

// Session fetches chunks of stored objects through one backend handle.
type Session interface {
	// FetchChunk returns up to length bytes of key starting at offset. The
	// result is shorter than length only when the object ends first.
	FetchChunk(ctx context.Context, key string, offset, length int64) ([]byte, error)
	Close() error
}

// Opener builds the session bound to a handle.
type Opener func(ctx context.Context, h Handle) (Session, error)
