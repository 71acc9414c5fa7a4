package handler

import (
	"context"
	"time"

	"github.com/angeloszaimis/blobstream/internal/backend"
	"github.com/angeloszaimis/blobstream/internal/metrics"
)

// observedSession reports every successful chunk fetch to the collector.
type observedSession struct {
	backend.Session
	name string
	emit func(metrics.Event)
}

func (s *observedSession) FetchChunk(ctx context.Context, key string, offset, length int64) ([]byte, error) {
	start := time.Now()
	chunk, err := s.Session.FetchChunk(ctx, key, offset, length)
	if err == nil {
		s.emit(metrics.Event{
			Type:     metrics.EventChunkFetched,
			Backend:  s.name,
			Duration: time.Since(start),
			Bytes:    int64(len(chunk)),
		})
	}
	return chunk, err
}
