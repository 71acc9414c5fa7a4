package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angeloszaimis/blobstream/internal/backend"
	"github.com/angeloszaimis/blobstream/internal/loadbalancer"
	"github.com/angeloszaimis/blobstream/internal/metadata"
	"github.com/angeloszaimis/blobstream/internal/metrics"
	"github.com/angeloszaimis/blobstream/internal/session"
	"github.com/angeloszaimis/blobstream/internal/stream"
)

type Options struct {
	ChunkSize         int64
	MaxBytesPerSecond int64
}

type StreamHandler struct {
	logger           *slog.Logger
	resolver         metadata.Resolver
	balancer         *loadbalancer.Balancer
	sessions         *session.Cache
	metricsCollector *metrics.Collector
	opts             Options
}

func NewStreamHandler(
	logger *slog.Logger,
	resolver metadata.Resolver,
	balancer *loadbalancer.Balancer,
	sessions *session.Cache,
	collector *metrics.Collector,
	opts Options,
) *StreamHandler {
	return &StreamHandler{
		logger:           logger,
		resolver:         resolver,
		balancer:         balancer,
		sessions:         sessions,
		metricsCollector: collector,
		opts:             opts,
	}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	log := h.logger.With(
		slog.String("client", extractClientIP(r)),
		slog.String("id", id),
	)

	file, err := h.resolver.Resolve(ctx, id)
	switch {
	case errors.Is(err, metadata.ErrInvalidIdentifier):
		log.Debug("rejected identifier", slog.String("error", err.Error()))
		h.reject(w, http.StatusForbidden)
		return
	case errors.Is(err, metadata.ErrNotFound):
		h.reject(w, http.StatusNotFound)
		return
	case err != nil:
		h.fail(w, log, "failed to resolve file", err)
		return
	}

	rng, partial, err := stream.ParseRange(r.Header.Get("Range"), file.Size)
	if errors.Is(err, stream.ErrRangeNotSatisfiable) {
		w.Header().Set("Content-Range", stream.UnsatisfiedRange(file.Size))
		h.reject(w, http.StatusRequestedRangeNotSatisfiable)
		return
	}

	plan, err := stream.NewPlan(rng, file.Size, h.opts.ChunkSize)
	if err != nil {
		h.fail(w, log, "failed to plan stream", err)
		return
	}

	status := http.StatusOK
	if partial {
		status = http.StatusPartialContent
	}

	if r.Method == http.MethodHead || plan.ChunkCount == 0 {
		writeHeaders(w, file, plan)
		w.WriteHeader(status)
		return
	}

	lease, err := h.balancer.Acquire()
	if errors.Is(err, loadbalancer.ErrNoBackendAvailable) {
		log.Warn("no backend available")
		h.reject(w, http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		h.fail(w, log, "failed to select backend", err)
		return
	}
	defer lease.Release()

	handle := lease.Handle()
	log = log.With(slog.String("backend", handle.Name))
	if h.balancer.Table().Len() > 1 {
		log.Info("serving stream",
			slog.Int64("from", plan.From),
			slog.Int64("until", plan.Until),
		)
	}

	sess, err := h.sessions.Get(ctx, handle)
	if err != nil {
		h.balancer.Report(handle, err)
		h.fail(w, log, "failed to open backend session", err)
		return
	}

	start := time.Now()
	assembler := stream.NewAssembler(h.observe(sess, handle), file.ObjectKey, plan)

	// Nothing is written until the first chunk is in hand, so a missing
	// object or a dead backend still gets a proper status.
	if err := assembler.Prefetch(ctx); err != nil {
		switch {
		case errors.Is(err, stream.ErrClientDisconnected):
			log.Debug("client disconnected before first chunk")
		case errors.Is(err, backend.ErrObjectNotFound):
			log.Warn("object missing from backend", slog.String("key", file.ObjectKey))
			h.reject(w, http.StatusNotFound)
		default:
			h.balancer.Report(handle, err)
			h.fail(w, log, "failed to fetch first chunk", err)
		}
		return
	}

	h.emit(metrics.Event{Type: metrics.EventStreamStarted, Backend: handle.Name})

	writeHeaders(w, file, plan)
	w.WriteHeader(status)

	var out io.Writer = w
	if h.opts.MaxBytesPerSecond > 0 {
		out = stream.NewThrottledWriter(ctx, w, h.opts.MaxBytesPerSecond)
	}

	written, err := stream.Pump(ctx, out, assembler)

	completed := metrics.Event{
		Type:       metrics.EventStreamCompleted,
		Backend:    handle.Name,
		Duration:   time.Since(start),
		Bytes:      written,
		StatusCode: status,
	}

	switch {
	case err == nil:
		h.balancer.Report(handle, nil)
		h.emit(completed)
		log.Debug("stream completed", slog.Int64("bytes", written), slog.Int64("chunks", assembler.Fetched()))

	case errors.Is(err, stream.ErrClientDisconnected):
		h.emit(completed)
		log.Debug("client disconnected", slog.Int64("bytes", written))

	default:
		h.balancer.Report(handle, err)
		completed.Failed = true
		h.emit(completed)
		log.Error("backend failed mid-stream",
			slog.Int64("bytes", written),
			slog.String("error", err.Error()),
		)
		panic(http.ErrAbortHandler)
	}
}

func writeHeaders(w http.ResponseWriter, file metadata.FileDescriptor, plan stream.Plan) {
	header := w.Header()
	header.Set("Content-Type", file.ContentType())
	header.Set("Content-Length", strconv.FormatInt(plan.Length(), 10))
	if plan.Length() > 0 {
		header.Set("Content-Range", plan.ContentRange(file.Size))
	}
	header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", escapeFilename(file.DisplayName)))
	header.Set("Accept-Ranges", "bytes")
}

// escapeFilename makes name safe inside a quoted-string header parameter.
func escapeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (h *StreamHandler) reject(w http.ResponseWriter, status int) {
	h.emit(metrics.Event{Type: metrics.EventRequestRejected, StatusCode: status})
	w.WriteHeader(status)
}

func (h *StreamHandler) fail(w http.ResponseWriter, log *slog.Logger, msg string, err error) {
	log.Error(msg, slog.String("error", err.Error()))
	h.emit(metrics.Event{Type: metrics.EventRequestRejected, StatusCode: http.StatusInternalServerError})
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func (h *StreamHandler) emit(event metrics.Event) {
	if h.metricsCollector != nil {
		h.metricsCollector.Emit(event)
	}
}

func (h *StreamHandler) observe(sess backend.Session, handle backend.Handle) backend.Session {
	if h.metricsCollector == nil {
		return sess
	}
	return &observedSession{Session: sess, name: handle.Name, emit: h.metricsCollector.Emit}
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
