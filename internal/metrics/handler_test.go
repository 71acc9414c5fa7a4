package metrics_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/blobstream/internal/backend"
	"github.com/angeloszaimis/blobstream/internal/circuitbreaker"
	"github.com/angeloszaimis/blobstream/internal/metrics"
	"github.com/angeloszaimis/blobstream/internal/workload"
)

var _ = Describe("Handlers", func() {
	var (
		collector *metrics.Collector
		table     *workload.Table
		a, b, c   backend.Handle
	)

	BeforeEach(func() {
		collector = metrics.NewCollector(10, slog.New(slog.NewTextHandler(io.Discard, nil)))
		a = backend.Handle{Name: "a", URL: "mem://a"}
		b = backend.Handle{Name: "b", URL: "mem://b"}
		c = backend.Handle{Name: "c", URL: "mem://c"}
		table = workload.NewTable([]backend.Handle{a, b, c})
		table.RecordUse(b)
		table.RecordUse(b)
		table.RecordUse(c)
	})

	Describe("StatusHandler", func() {
		It("should report loads sorted from busiest", func() {
			rec := httptest.NewRecorder()
			collector.StatusHandler(table, nil, "1.2.3").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))

			var status metrics.Status
			Expect(json.Unmarshal(rec.Body.Bytes(), &status)).To(Succeed())
			Expect(status.ServerStatus).To(Equal("running"))
			Expect(status.Version).To(Equal("1.2.3"))
			Expect(status.ConnectedBackends).To(Equal(3))
			Expect(status.Loads).To(Equal([]metrics.BackendLoad{
				{Backend: "b", Load: 2},
				{Backend: "c", Load: 1},
				{Backend: "a", Load: 0},
			}))
			Expect(status.Breakers).To(BeEmpty())
		})

		It("should report breaker states by backend name", func() {
			breakers := circuitbreaker.NewRegistry(1, time.Hour)
			breakers.Report(b, errors.New("bucket unreachable"))
			breakers.GetBreaker(a)

			rec := httptest.NewRecorder()
			collector.StatusHandler(table, breakers, "1.2.3").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

			var status metrics.Status
			Expect(json.Unmarshal(rec.Body.Bytes(), &status)).To(Succeed())
			Expect(status.Breakers).To(Equal(map[string]string{
				"a": "CLOSED",
				"b": "OPEN",
			}))
		})
	})

	Describe("PrometheusHandler", func() {
		It("should expose backend load gauges", func() {
			collector.TrackLoads(table)

			rec := httptest.NewRecorder()
			collector.PrometheusHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`blobstream_backend_load{backend="b"} 2`))
			Expect(rec.Body.String()).To(ContainSubstring(`blobstream_backend_load{backend="a"} 0`))
		})
	})
})
