package stream_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/blobstream/internal/stream"
)

var _ = Describe("NewPlan", func() {
	It("should lay out the 2000000-2999999 window over 1 MiB chunks", func() {
		plan, err := stream.NewPlan(stream.Range{From: 2000000, Until: 2999999}, 10000000, 1048576)
		Expect(err).NotTo(HaveOccurred())

		Expect(plan.AlignedOffset).To(Equal(int64(1048576)))
		Expect(plan.FirstTrim).To(Equal(int64(951424)))
		Expect(plan.ChunkCount).To(Equal(int64(2)))
		Expect(plan.LastTrim).To(Equal(int64(2999999%1048576 + 1)))
		Expect(plan.Length()).To(Equal(int64(1000000)))

		lastStart := plan.ChunkOffset(plan.ChunkCount - 1)
		Expect(lastStart).To(BeNumerically("<=", 2999999))
		Expect(lastStart + plan.FetchLength(plan.ChunkCount-1)).To(BeNumerically(">", 2999999))
	})

	DescribeTable("chunk layout",
		func(from, until, size, chunk, aligned, first, last, count int64) {
			plan, err := stream.NewPlan(stream.Range{From: from, Until: until}, size, chunk)
			Expect(err).NotTo(HaveOccurred())
			Expect(plan.AlignedOffset).To(Equal(aligned))
			Expect(plan.FirstTrim).To(Equal(first))
			Expect(plan.LastTrim).To(Equal(last))
			Expect(plan.ChunkCount).To(Equal(count))
		},
		Entry("whole single chunk file", int64(0), int64(499), int64(500), int64(1024), int64(0), int64(0), int64(500), int64(1)),
		Entry("inside one chunk", int64(10), int64(20), int64(100), int64(32), int64(0), int64(10), int64(21), int64(1)),
		Entry("exact multiple to end", int64(0), int64(63), int64(64), int64(16), int64(0), int64(0), int64(16), int64(4)),
		Entry("aligned start mid file", int64(32), int64(47), int64(64), int64(16), int64(32), int64(0), int64(16), int64(1)),
		Entry("crossing one boundary", int64(15), int64(16), int64(64), int64(16), int64(0), int64(15), int64(1), int64(2)),
		Entry("until clamped to size", int64(0), int64(1000), int64(100), int64(64), int64(0), int64(0), int64(36), int64(2)),
	)

	It("should plan nothing for an empty file", func() {
		plan, err := stream.NewPlan(stream.Range{From: 0, Until: -1}, 0, 64)
		Expect(err).NotTo(HaveOccurred())
		Expect(plan.ChunkCount).To(BeZero())
		Expect(plan.Length()).To(BeZero())
	})

	It("should reject a non positive chunk size", func() {
		_, err := stream.NewPlan(stream.Range{From: 0, Until: 1}, 2, 0)
		Expect(err).To(HaveOccurred())
	})

	It("should keep the aligned offset on a chunk boundary at or before from", func() {
		for _, chunk := range []int64{1, 3, 7, 16, 1024} {
			for from := int64(0); from < 200; from += 3 {
				plan, err := stream.NewPlan(stream.Range{From: from, Until: 199}, 200, chunk)
				Expect(err).NotTo(HaveOccurred())
				Expect(plan.AlignedOffset % chunk).To(BeZero())
				Expect(plan.AlignedOffset).To(BeNumerically("<=", from))
				Expect(from).To(BeNumerically("<", plan.AlignedOffset+chunk))
			}
		}
	})
})
