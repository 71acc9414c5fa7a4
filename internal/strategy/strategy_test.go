package strategy_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/blobstream/config"
	"github.com/angeloszaimis/blobstream/internal/backend"
	"github.com/angeloszaimis/blobstream/internal/strategy"
	"github.com/angeloszaimis/blobstream/internal/workload"
)

func handles(names ...string) []backend.Handle {
	hs := make([]backend.Handle, len(names))
	for i, n := range names {
		hs[i] = backend.Handle{Name: n, URL: "mem://" + n}
	}
	return hs
}

func entries(hs []backend.Handle, loads ...int64) []workload.Entry {
	es := make([]workload.Entry, len(hs))
	for i, h := range hs {
		es[i] = workload.Entry{Handle: h, Load: loads[i]}
	}
	return es
}

var _ = Describe("New", func() {
	DescribeTable("should resolve strategy names",
		func(name string, shouldFail bool) {
			s, err := strategy.New(name)
			if shouldFail {
				Expect(err).To(HaveOccurred())
				Expect(s).To(BeNil())
				return
			}
			Expect(err).NotTo(HaveOccurred())
			Expect(s).NotTo(BeNil())
		},
		Entry("least-loaded", config.StrategyLeastLoaded, false),
		Entry("default", "", false),
		Entry("round-robin", config.StrategyRoundRobin, false),
		Entry("random", config.StrategyRandom, false),
		Entry("unknown", "weighted", true),
	)
})

var _ = Describe("LeastLoaded", func() {
	var (
		strat strategy.Strategy
		hs    []backend.Handle
	)

	BeforeEach(func() {
		strat = strategy.NewLeastLoadedStrategy()
		hs = handles("a", "b", "c")
	})

	DescribeTable("Select",
		func(loads []int64, expected int) {
			selected, ok := strat.Select(entries(hs, loads...))
			Expect(ok).To(BeTrue())
			Expect(selected).To(Equal(hs[expected]))
		},
		Entry("picks the lowest load", []int64{2, 1, 0}, 2),
		Entry("picks the first on a full tie", []int64{0, 0, 0}, 0),
		Entry("picks the earliest of the tied minimum", []int64{3, 1, 1}, 1),
		Entry("ignores large loads", []int64{1 << 40, 7, 1 << 40}, 1),
	)

	It("should report nothing for an empty list", func() {
		_, ok := strat.Select(nil)
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("RoundRobin", func() {
	var (
		strat strategy.Strategy
		es    []workload.Entry
		hs    []backend.Handle
	)

	BeforeEach(func() {
		strat = strategy.NewRoundRobinStrategy()
		hs = handles("a", "b", "c")
		es = entries(hs, 5, 0, 0)
	})

	It("should cycle through entries in order regardless of load", func() {
		for _, want := range []int{0, 1, 2, 0} {
			selected, ok := strat.Select(es)
			Expect(ok).To(BeTrue())
			Expect(selected).To(Equal(hs[want]))
		}
	})

	It("should distribute evenly", func() {
		counts := make(map[string]int)
		for i := 0; i < 300; i++ {
			selected, _ := strat.Select(es)
			counts[selected.Name]++
		}
		Expect(counts).To(Equal(map[string]int{"a": 100, "b": 100, "c": 100}))
	})

	It("should report nothing for an empty list", func() {
		_, ok := strat.Select([]workload.Entry{})
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Random", func() {
	var (
		strat strategy.Strategy
		hs    []backend.Handle
	)

	BeforeEach(func() {
		strat = strategy.NewRandomStrategy()
		hs = handles("a", "b", "c")
	})

	It("should select one of the entries", func() {
		selected, ok := strat.Select(entries(hs, 0, 0, 0))
		Expect(ok).To(BeTrue())
		Expect(hs).To(ContainElement(selected))
	})

	It("should spread across entries over many calls", func() {
		seen := make(map[backend.Handle]bool)
		for i := 0; i < 100; i++ {
			selected, _ := strat.Select(entries(hs, 0, 0, 0))
			seen[selected] = true
		}
		Expect(len(seen)).To(BeNumerically(">=", 2))
	})
})
