package stream

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

const maxBurst = 64 * 1024

// ThrottledWriter caps the byte rate of an underlying writer.
type ThrottledWriter struct {
	ctx     context.Context
	w       io.Writer
	limiter *rate.Limiter
	burst   int
}

// NewThrottledWriter limits w to bytesPerSecond. Waiting for tokens stops
// when ctx is done.
func NewThrottledWriter(ctx context.Context, w io.Writer, bytesPerSecond int64) *ThrottledWriter {
	burst := int(min(max(bytesPerSecond, 1), maxBurst))
	return &ThrottledWriter{
		ctx:     ctx,
		w:       w,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), burst),
		burst:   burst,
	}
}

func (t *ThrottledWriter) Write(p []byte) (int, error) {
	var written int
	for len(p) > 0 {
		n := min(len(p), t.burst)
		if err := t.limiter.WaitN(t.ctx, n); err != nil {
			return written, err
		}

		m, err := t.w.Write(p[:n])
		written += m
		if err != nil {
			return written, err
		}
		p = p[n:]
	}
	return written, nil
}

func (t *ThrottledWriter) Flush() {
	if f, ok := t.w.(flusher); ok {
		f.Flush()
	}
}
