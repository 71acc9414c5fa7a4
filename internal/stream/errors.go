package stream

import (
	"errors"
	"fmt"
)

// ErrClientDisconnected marks a stream stopped because the client went away.
var ErrClientDisconnected = errors.New("client disconnected")

// FetchError reports a failed or short backend read for one chunk.
type FetchError struct {
	Index  int64
	Offset int64
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch chunk %d at offset %d: %v", e.Index, e.Offset, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
