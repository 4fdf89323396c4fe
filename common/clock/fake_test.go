package clock_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/forma22-agency/gh-dispatch-relay/common/clock"
)

var _ = Describe("FakeClock", func() {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	It("stands still until advanced", func() {
		c := clock.Fake(start)
		Expect(c.Now()).To(Equal(start))
		Expect(c.Now()).To(Equal(start))
	})

	It("moves forward on Advance", func() {
		c := clock.Fake(start)
		c.Advance(90 * time.Second)
		Expect(c.Now()).To(Equal(start.Add(90 * time.Second)))
	})

	It("ignores negative advances", func() {
		c := clock.Fake(start)
		c.Advance(-time.Hour)
		Expect(c.Now()).To(Equal(start))
	})

	It("jumps to an absolute time on Set", func() {
		c := clock.Fake(start)
		later := start.Add(2 * time.Hour)
		c.Set(later)
		Expect(c.Now()).To(Equal(later))
	})
})

var _ = Describe("Real", func() {
	It("tracks the wall clock", func() {
		before := time.Now()
		now := clock.Real().Now()
		Expect(now).To(BeTemporally(">=", before))
	})
})
