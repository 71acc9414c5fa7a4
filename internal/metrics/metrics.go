package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxSamples = 1000

type Metrics struct {
	mutex     sync.RWMutex
	backends  map[string]*backendStats
	rejected  map[int]int64
	startTime time.Time
}

type backendStats struct {
	started   int64
	completed int64
	failures  int64
	chunks    int64
	bytes     int64
	durations []time.Duration
	statuses  map[int]int64
}

type Snapshot struct {
	Uptime   time.Duration             `json:"uptime"`
	Streams  int64                     `json:"streams"`
	Rejected map[int]int64             `json:"rejected"`
	Backends map[string]BackendMetrics `json:"backends"`
}

type BackendMetrics struct {
	Streams     int64         `json:"streams"`
	Completed   int64         `json:"completed"`
	Failures    int64         `json:"failures"`
	Chunks      int64         `json:"chunks"`
	Bytes       int64         `json:"bytes"`
	AvgDuration time.Duration `json:"avg_duration"`
	P50Duration time.Duration `json:"p50_duration"`
	P95Duration time.Duration `json:"p95_duration"`
	P99Duration time.Duration `json:"p99_duration"`
	StatusCodes map[int]int64 `json:"status_codes"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		backends:  make(map[string]*backendStats),
		rejected:  make(map[int]int64),
		startTime: time.Now(),
	}
}

func (m *Metrics) stats(backend string) *backendStats {
	s, ok := m.backends[backend]
	if !ok {
		s = &backendStats{statuses: make(map[int]int64)}
		m.backends[backend] = s
	}
	return s
}

func (m *Metrics) RecordStreamStarted(backend string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.stats(backend).started++
}

func (m *Metrics) RecordChunk(backend string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.stats(backend).chunks++
}

func (m *Metrics) RecordStreamCompleted(backend string, duration time.Duration, bytes int64, statusCode int, failed bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s := m.stats(backend)
	s.completed++
	s.bytes += bytes
	s.statuses[statusCode]++
	if failed {
		s.failures++
	}

	s.durations = append(s.durations, duration)
	if len(s.durations) > maxSamples {
		s.durations = s.durations[1:]
	}
}

func (m *Metrics) RecordRejected(statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rejected[statusCode]++
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:   time.Since(m.startTime),
		Rejected: make(map[int]int64, len(m.rejected)),
		Backends: make(map[string]BackendMetrics, len(m.backends)),
	}

	for code, n := range m.rejected {
		snap.Rejected[code] = n
	}

	for name, s := range m.backends {
		snap.Streams += s.started

		bm := BackendMetrics{
			Streams:     s.started,
			Completed:   s.completed,
			Failures:    s.failures,
			Chunks:      s.chunks,
			Bytes:       s.bytes,
			StatusCodes: make(map[int]int64, len(s.statuses)),
		}
		for code, n := range s.statuses {
			bm.StatusCodes[code] = n
		}

		if len(s.durations) > 0 {
			sorted := make([]time.Duration, len(s.durations))
			copy(sorted, s.durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			bm.AvgDuration = average(sorted)
			bm.P50Duration = percentile(sorted, 0.50)
			bm.P95Duration = percentile(sorted, 0.95)
			bm.P99Duration = percentile(sorted, 0.99)
		}

		snap.Backends[name] = bm
	}

	return snap
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
