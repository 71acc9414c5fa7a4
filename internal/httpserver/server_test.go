package httpserver_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/blobstream/internal/httpserver"
)

var _ = Describe("HTTP Server", func() {
	timeouts := httpserver.Timeouts{ReadHeader: time.Second, Idle: time.Second}
	noop := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	DescribeTable("server creation",
		func(addr string, valid bool) {
			srv, err := httpserver.New(addr, noop, timeouts)
			if valid {
				Expect(err).NotTo(HaveOccurred())
				Expect(srv).NotTo(BeNil())
			} else {
				Expect(err).To(HaveOccurred())
				Expect(srv).To(BeNil())
			}
		},
		Entry("host name", "localhost:9999", true),
		Entry("ip address", "127.0.0.1:9999", true),
		Entry("port only", ":9999", true),
		Entry("too many colons", "invalid:host:port", false),
		Entry("missing port", "localhost", false),
	)

	Context("server lifecycle", func() {
		var (
			srv *httpserver.Server
			ln  net.Listener
		)

		start := func(handler http.Handler) {
			var err error
			srv, err = httpserver.New("127.0.0.1:0", handler, timeouts)
			Expect(err).NotTo(HaveOccurred())

			ln, err = net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())

			go func() {
				defer GinkgoRecover()
				Expect(srv.Serve(ln)).To(Succeed())
			}()
		}

		AfterEach(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		})

		It("serves requests", func() {
			start(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("test"))
			}))

			resp, err := http.Get("http://" + ln.Addr().String())
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(string(body)).To(Equal("test"))
		})

		It("closes streams still running after the shutdown deadline", func() {
			started := make(chan struct{})
			start(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.(http.Flusher).Flush()
				close(started)
				<-r.Context().Done()
			}))

			go func() {
				resp, err := http.Get("http://" + ln.Addr().String())
				if err == nil {
					io.Copy(io.Discard, resp.Body)
					resp.Body.Close()
				}
			}()
			Eventually(started).Should(BeClosed())

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			Expect(srv.Shutdown(ctx)).To(MatchError(context.DeadlineExceeded))
		})
	})
})
