package metrics

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type EventType string

const (
	EventStreamStarted   EventType = "stream_started"
	EventChunkFetched    EventType = "chunk_fetched"
	EventStreamCompleted EventType = "stream_completed"
	EventRequestRejected EventType = "request_rejected"
)

type Event struct {
	Type       EventType
	Backend    string
	Duration   time.Duration
	Bytes      int64
	StatusCode int
	Failed     bool
}

type Collector struct {
	eventCh  chan Event
	metrics  *Metrics
	logger   *slog.Logger
	registry *prometheus.Registry
	prom     promSeries
	done     chan struct{}
	once     sync.Once
}

type promSeries struct {
	streams       *prometheus.CounterVec
	responses     *prometheus.CounterVec
	chunks        *prometheus.CounterVec
	bytes         *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	dropped       prometheus.Counter
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	if bufferSize <= 0 {
		bufferSize = 1
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		eventCh:  make(chan Event, bufferSize),
		metrics:  NewMetrics(),
		logger:   logger,
		registry: reg,
		done:     make(chan struct{}),
		prom: promSeries{
			streams: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "blobstream_streams_total",
				Help: "Streams served per backend and outcome",
			}, []string{"backend", "outcome"}),
			responses: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "blobstream_responses_total",
				Help: "Download responses by status code",
			}, []string{"status"}),
			chunks: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "blobstream_chunk_fetches_total",
				Help: "Chunk fetches issued per backend",
			}, []string{"backend"}),
			bytes: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "blobstream_bytes_streamed_total",
				Help: "Bytes delivered to clients per backend",
			}, []string{"backend"}),
			fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "blobstream_chunk_fetch_duration_seconds",
				Help:    "Backend chunk fetch latency",
				Buckets: prometheus.DefBuckets,
			}, []string{"backend"}),
			dropped: factory.NewCounter(prometheus.CounterOpts{
				Name: "blobstream_metric_events_dropped_total",
				Help: "Events dropped because the collector buffer was full",
			}),
		},
	}
}

// Emit queues an event without blocking.
func (c *Collector) Emit(event Event) {
	select {
	case c.eventCh <- event:
	default:
		c.prom.dropped.Inc()
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

// Done is closed once the collector has drained and stopped.
func (c *Collector) Done() <-chan struct{} {
	return c.done
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("metrics collector started")
	defer c.logger.Info("metrics collector stopped")
	defer c.once.Do(func() { close(c.done) })

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event Event) {
	switch event.Type {
	case EventStreamStarted:
		c.metrics.RecordStreamStarted(event.Backend)

	case EventChunkFetched:
		c.metrics.RecordChunk(event.Backend)
		c.prom.chunks.WithLabelValues(event.Backend).Inc()
		c.prom.fetchDuration.WithLabelValues(event.Backend).Observe(event.Duration.Seconds())

	case EventStreamCompleted:
		c.metrics.RecordStreamCompleted(event.Backend, event.Duration, event.Bytes, event.StatusCode, event.Failed)
		outcome := "ok"
		if event.Failed {
			outcome = "failed"
		}
		c.prom.streams.WithLabelValues(event.Backend, outcome).Inc()
		c.prom.bytes.WithLabelValues(event.Backend).Add(float64(event.Bytes))
		c.prom.responses.WithLabelValues(strconv.Itoa(event.StatusCode)).Inc()

	case EventRequestRejected:
		c.metrics.RecordRejected(event.StatusCode)
		c.prom.responses.WithLabelValues(strconv.Itoa(event.StatusCode)).Inc()
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
