package stream_test

import (
	"bytes"
	"context"
	"errors"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/blobstream/internal/stream"
)

func assemble(data []byte, r stream.Range, chunk int64) ([]byte, *fakeSession, stream.Plan) {
	sess := newFakeSession(data)
	plan, err := stream.NewPlan(r, int64(len(data)), chunk)
	Expect(err).NotTo(HaveOccurred())

	var out bytes.Buffer
	_, err = stream.Pump(context.Background(), &out, stream.NewAssembler(sess, "obj", plan))
	Expect(err).NotTo(HaveOccurred())

	return out.Bytes(), sess, plan
}

var _ = Describe("Assembler", func() {
	It("should yield the exact slice and fetch exactly ChunkCount chunks for every range", func() {
		for _, size := range []int{1, 2, 15, 16, 17, 48, 50} {
			data := object(size)
			for _, chunk := range []int64{1, 4, 16, 64} {
				for from := 0; from < size; from++ {
					for until := from; until < size; until++ {
						got, sess, plan := assemble(data, stream.Range{From: int64(from), Until: int64(until)}, chunk)

						Expect(got).To(Equal(data[from:until+1]),
							"size=%d chunk=%d from=%d until=%d", size, chunk, from, until)
						Expect(int64(sess.FetchCount())).To(Equal(plan.ChunkCount),
							"size=%d chunk=%d from=%d until=%d", size, chunk, from, until)
					}
				}
			}
		}
	})

	It("should fetch in ascending aligned offsets", func() {
		data := object(100)
		_, sess, _ := assemble(data, stream.Range{From: 5, Until: 99}, 16)
		Expect(sess.Offsets()).To(Equal([]int64{0, 16, 32, 48, 64, 80, 96}))
	})

	It("should trim both ends of a single chunk", func() {
		data := object(64)
		got, sess, _ := assemble(data, stream.Range{From: 3, Until: 9}, 64)
		Expect(got).To(Equal(data[3:10]))
		Expect(sess.FetchCount()).To(Equal(1))
	})

	It("should stream the 2000000-2999999 window of a 10 MB object in two fetches", func() {
		data := object(10000000)
		got, sess, _ := assemble(data, stream.Range{From: 2000000, Until: 2999999}, 1048576)

		Expect(got).To(HaveLen(1000000))
		Expect(bytes.Equal(got, data[2000000:3000000])).To(BeTrue())
		Expect(sess.Offsets()).To(Equal([]int64{1048576, 2097152}))
	})

	It("should return io.EOF for an empty plan without fetching", func() {
		sess := newFakeSession(nil)
		plan, err := stream.NewPlan(stream.Range{From: 0, Until: -1}, 0, 16)
		Expect(err).NotTo(HaveOccurred())

		a := stream.NewAssembler(sess, "obj", plan)
		_, err = a.Next(context.Background())
		Expect(err).To(MatchError(io.EOF))
		Expect(sess.FetchCount()).To(BeZero())
	})

	Describe("Prefetch", func() {
		It("should fetch only the first chunk and hand it to Next", func() {
			data := object(64)
			sess := newFakeSession(data)
			plan, err := stream.NewPlan(stream.Range{From: 3, Until: 40}, 64, 16)
			Expect(err).NotTo(HaveOccurred())
			a := stream.NewAssembler(sess, "obj", plan)

			Expect(a.Prefetch(context.Background())).To(Succeed())
			Expect(a.Prefetch(context.Background())).To(Succeed())
			Expect(sess.FetchCount()).To(Equal(1))

			var out bytes.Buffer
			_, err = stream.Pump(context.Background(), &out, a)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Bytes()).To(Equal(data[3:41]))
			Expect(int64(sess.FetchCount())).To(Equal(plan.ChunkCount))
		})

		It("should return the first fetch error before anything is yielded", func() {
			sess := newFakeSession(object(64))
			sess.failAt = 0
			sess.failErr = errors.New("no such object")
			plan, err := stream.NewPlan(stream.Range{From: 0, Until: 63}, 64, 16)
			Expect(err).NotTo(HaveOccurred())

			err = stream.NewAssembler(sess, "obj", plan).Prefetch(context.Background())

			var fetchErr *stream.FetchError
			Expect(errors.As(err, &fetchErr)).To(BeTrue())
			Expect(fetchErr.Index).To(BeZero())
			Expect(err).To(MatchError(sess.failErr))
		})

		It("should do nothing for an empty plan", func() {
			sess := newFakeSession(nil)
			plan, err := stream.NewPlan(stream.Range{From: 0, Until: -1}, 0, 16)
			Expect(err).NotTo(HaveOccurred())

			Expect(stream.NewAssembler(sess, "obj", plan).Prefetch(context.Background())).To(Succeed())
			Expect(sess.FetchCount()).To(BeZero())
		})
	})

	It("should surface backend failures as FetchError and stop", func() {
		sess := newFakeSession(object(64))
		sess.failAt = 1
		sess.failErr = errors.New("connection reset")

		plan, _ := stream.NewPlan(stream.Range{From: 0, Until: 63}, 64, 16)
		a := stream.NewAssembler(sess, "obj", plan)

		var out bytes.Buffer
		n, err := stream.Pump(context.Background(), &out, a)
		Expect(n).To(Equal(int64(16)))

		var fetchErr *stream.FetchError
		Expect(errors.As(err, &fetchErr)).To(BeTrue())
		Expect(fetchErr.Index).To(Equal(int64(1)))
		Expect(fetchErr.Offset).To(Equal(int64(16)))
		Expect(err).To(MatchError(ContainSubstring("connection reset")))
		Expect(sess.FetchCount()).To(Equal(2))
	})

	It("should treat short reads as backend failures", func() {
		sess := newFakeSession(object(64))
		sess.short = true

		plan, _ := stream.NewPlan(stream.Range{From: 0, Until: 63}, 64, 16)
		_, err := stream.NewAssembler(sess, "obj", plan).Next(context.Background())

		var fetchErr *stream.FetchError
		Expect(errors.As(err, &fetchErr)).To(BeTrue())
		Expect(err).To(MatchError(io.ErrUnexpectedEOF))
	})
})
