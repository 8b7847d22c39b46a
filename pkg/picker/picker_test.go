package picker_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/steer/pkg/future"
	"github.com/angeloszaimis/steer/pkg/picker"
	"github.com/angeloszaimis/steer/pkg/steer"
)

type stubHandler struct{}

func (stubHandler) PollReady(steer.Waker) (steer.Poll, error) { return steer.Ready, nil }
func (stubHandler) Invoke(string) *future.Future[string]      { return future.Resolved("") }

func stubHandlers(n int) []steer.Handler[string, string] {
	handlers := make([]steer.Handler[string, string], n)
	for i := range handlers {
		handlers[i] = stubHandler{}
	}
	return handlers
}

var _ = Describe("RoundRobin", func() {
	It("should cycle through handler indexes in order", func() {
		p := picker.RoundRobin[string, string]()
		handlers := stubHandlers(3)

		Expect(p.Pick("a", handlers)).To(Equal(0))
		Expect(p.Pick("b", handlers)).To(Equal(1))
		Expect(p.Pick("c", handlers)).To(Equal(2))
		Expect(p.Pick("d", handlers)).To(Equal(0))
	})

	It("should distribute picks evenly", func() {
		p := picker.RoundRobin[string, string]()
		handlers := stubHandlers(3)

		counts := make(map[int]int)
		for i := 0; i < 300; i++ {
			counts[p.Pick("req", handlers)]++
		}

		Expect(counts[0]).To(Equal(100))
		Expect(counts[1]).To(Equal(100))
		Expect(counts[2]).To(Equal(100))
	})
})

var _ = Describe("Random", func() {
	It("should pick an in-range index", func() {
		p := picker.Random[string, string]()
		handlers := stubHandlers(3)

		for i := 0; i < 50; i++ {
			idx := p.Pick("req", handlers)
			Expect(idx).To(BeNumerically(">=", 0))
			Expect(idx).To(BeNumerically("<", 3))
		}
	})

	It("should reach more than one handler over many picks", func() {
		p := picker.Random[string, string]()
		handlers := stubHandlers(3)

		seen := make(map[int]bool)
		for i := 0; i < 100; i++ {
			seen[p.Pick("req", handlers)] = true
		}

		Expect(len(seen)).To(BeNumerically(">=", 2))
	})
})

var _ = Describe("Hash", func() {
	identity := func(req string) string { return req }

	It("should pick the same handler for the same key", func() {
		p := picker.Hash[string, string](identity)
		handlers := stubHandlers(5)

		first := p.Pick("192.168.1.1", handlers)
		for i := 0; i < 10; i++ {
			Expect(p.Pick("192.168.1.1", handlers)).To(Equal(first))
		}
	})

	It("should spread distinct keys across handlers", func() {
		p := picker.Hash[string, string](identity)
		handlers := stubHandlers(5)

		seen := make(map[int]bool)
		for i := 0; i < 100; i++ {
			seen[p.Pick(string(rune('a'+i)), handlers)] = true
		}

		Expect(len(seen)).To(BeNumerically(">=", 2))
	})

	It("should always pick in range", func() {
		p := picker.Hash[string, string](identity)
		handlers := stubHandlers(3)

		for i := 0; i < 100; i++ {
			idx := p.Pick(string(rune(i)), handlers)
			Expect(idx).To(BeNumerically(">=", 0))
			Expect(idx).To(BeNumerically("<", 3))
		}
	})
})
