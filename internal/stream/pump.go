package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
)

type flusher interface {
	Flush()
}

// Pump drains a into w, flushing after every chunk when w supports it. It
// returns the number of bytes written. A write failure or a done context
// stops the stream with ErrClientDisconnected before any further fetch.
func Pump(ctx context.Context, w io.Writer, a *Assembler) (int64, error) {
	f, canFlush := w.(flusher)

	var written int64
	for {
		chunk, err := a.Next(ctx)
		if errors.Is(err, io.EOF) {
			return written, nil
		}
		if err != nil {
			return written, err
		}

		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("%w: %w", ErrClientDisconnected, err)
		}

		if canFlush {
			f.Flush()
		}
	}
}
