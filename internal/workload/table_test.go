package workload_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/blobstream/internal/backend"
	"github.com/angeloszaimis/blobstream/internal/workload"
)

var _ = Describe("Table", func() {
	var (
		a, b  backend.Handle
		table *workload.Table
	)

	BeforeEach(func() {
		a = backend.Handle{Name: "a", URL: "mem://"}
		b = backend.Handle{Name: "b", URL: "mem://"}
		table = workload.NewTable([]backend.Handle{a, b, a})
	})

	It("should register each handle once at load zero", func() {
		Expect(table.Len()).To(Equal(2))
		Expect(table.Snapshot()).To(Equal([]workload.Entry{
			{Handle: a, Load: 0},
			{Handle: b, Load: 0},
		}))
	})

	It("should count uses and releases", func() {
		table.RecordUse(a)
		table.RecordUse(a)
		table.RecordUse(b)
		table.Release(a)

		Expect(table.Load(a)).To(Equal(int64(1)))
		Expect(table.Load(b)).To(Equal(int64(1)))
	})

	It("should not go below zero", func() {
		table.Release(b)
		Expect(table.Load(b)).To(Equal(int64(0)))
	})

	It("should ignore unknown handles", func() {
		stranger := backend.Handle{Name: "c", URL: "mem://"}
		table.RecordUse(stranger)

		Expect(table.Load(stranger)).To(Equal(int64(0)))
		Expect(table.Handles()).To(Equal([]backend.Handle{a, b}))
	})

	It("should stay consistent under concurrent updates", func() {
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				table.RecordUse(a)
				table.Release(a)
				table.RecordUse(b)
			}()
		}
		wg.Wait()

		Expect(table.Load(a)).To(Equal(int64(0)))
		Expect(table.Load(b)).To(Equal(int64(50)))
	})
})
