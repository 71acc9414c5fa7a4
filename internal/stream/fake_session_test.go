package stream_test

import (
	"context"
	"sync"
)

// fakeSession serves chunks from an in-memory object and counts fetches.
type fakeSession struct {
	mutex   sync.Mutex
	data    []byte
	fetches []int64
	failAt  int
	failErr error
	short   bool
	onFetch func()
}

func newFakeSession(data []byte) *fakeSession {
	return &fakeSession{data: data, failAt: -1}
}

func (s *fakeSession) FetchChunk(ctx context.Context, _ string, offset, length int64) ([]byte, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.onFetch != nil {
		s.onFetch()
	}

	idx := len(s.fetches)
	s.fetches = append(s.fetches, offset)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if idx == s.failAt {
		return nil, s.failErr
	}

	end := min(offset+length, int64(len(s.data)))
	if s.short {
		end = offset + (end-offset)/2
	}
	return append([]byte(nil), s.data[offset:end]...), nil
}

func (s *fakeSession) Close() error { return nil }

func (s *fakeSession) FetchCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.fetches)
}

func (s *fakeSession) Offsets() []int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]int64(nil), s.fetches...)
}

func object(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i*7 + i/251)
	}
	return data
}
