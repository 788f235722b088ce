package l1cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/coherencesim/bus"
	"github.com/sarchlab/coherencesim/l1cache"
	"github.com/sarchlab/coherencesim/protocol"
)

var _ = Describe("Cache", func() {
	var (
		b      *bus.Bus
		c0, c1 *l1cache.Cache
	)

	newSystem := func(protoName string) {
		b = bus.New()

		p0, _ := protocol.ByName(protoName)
		p1, _ := protocol.ByName(protoName)

		cfg := l1cache.Config{SizeBytes: 4096, Associativity: 2, BlockBytes: 32}

		c0, _ = l1cache.New(0, cfg, p0)
		c1, _ = l1cache.New(1, cfg, p1)

		b.Register(0, c0)
		b.Register(1, c1)
	}

	Describe("S1: single-core cold miss (MESI)", func() {
		BeforeEach(func() { newSystem("MESI") })

		It("misses, fetches from memory, and lands in E", func() {
			res, err := c0.Access(false, 0x0, 0, b)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Hit).To(BeFalse())
			Expect(res.ExtraCycles).To(Equal(uint64(100)))

			bytes, inv, upd := b.Stats()
			Expect(bytes).To(Equal(uint64(32)))
			Expect(inv).To(Equal(uint64(0)))
			Expect(upd).To(Equal(uint64(0)))
		})
	})

	Describe("S2: write-then-write same core (MESI)", func() {
		BeforeEach(func() { newSystem("MESI") })

		It("misses once into M, then hits silently with no extra cycles", func() {
			res1, err := c0.Access(true, 0x0, 0, b)
			Expect(err).NotTo(HaveOccurred())
			Expect(res1.Hit).To(BeFalse())

			res2, err := c0.Access(true, 0x0, 101, b)
			Expect(err).NotTo(HaveOccurred())
			Expect(res2.Hit).To(BeTrue())
			Expect(res2.ExtraCycles).To(Equal(uint64(0)))
		})
	})

	Describe("S6: upgrade on shared (MESI)", func() {
		BeforeEach(func() { newSystem("MESI") })

		It("moves both to S on load, then upgrades and invalidates the peer", func() {
			_, err := c0.Access(false, 0x0, 0, b)
			Expect(err).NotTo(HaveOccurred())
			_, err = c1.Access(false, 0x0, 0, b)
			Expect(err).NotTo(HaveOccurred())

			res, err := c0.Access(true, 0x0, 200, b)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Hit).To(BeTrue())

			_, inv, _ := b.Stats()
			Expect(inv).To(BeNumerically(">=", uint64(1)))
		})
	})

	Describe("S6: upgrade on shared (Dragon)", func() {
		BeforeEach(func() { newSystem("Dragon") })

		It("emits a BusUpd instead of invalidating the peer", func() {
			_, err := c0.Access(false, 0x0, 0, b)
			Expect(err).NotTo(HaveOccurred())
			_, err = c1.Access(false, 0x0, 0, b)
			Expect(err).NotTo(HaveOccurred())

			_, err = c0.Access(true, 0x0, 200, b)
			Expect(err).NotTo(HaveOccurred())

			_, _, upd := b.Stats()
			Expect(upd).To(BeNumerically(">=", uint64(1)))
		})
	})

	Describe("S5: eviction writeback", func() {
		It("charges a writeback plus a fresh fill on eviction", func() {
			b = bus.New()
			p, _ := protocol.ByName("MESI")
			cfg := l1cache.Config{SizeBytes: 32, Associativity: 1, BlockBytes: 32}
			c, err := l1cache.New(0, cfg, p)
			Expect(err).NotTo(HaveOccurred())
			b.Register(0, c)

			_, err = c.Access(true, 0x0, 0, b)
			Expect(err).NotTo(HaveOccurred())

			res, err := c.Access(false, 0x40, 101, b)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.ExtraCycles).To(Equal(uint64(200)))
		})
	})

	Describe("eviction writeback for a line dirtied only via a hit-path upgrade", func() {
		It("still charges a writeback when the line was never itself a write miss", func() {
			b = bus.New()
			p, err := protocol.ByName("MESI")
			Expect(err).NotTo(HaveOccurred())
			cfg := l1cache.Config{SizeBytes: 32, Associativity: 1, BlockBytes: 32}
			c, err := l1cache.New(0, cfg, p)
			Expect(err).NotTo(HaveOccurred())
			b.Register(0, c)

			res, err := c.Access(false, 0x0, 0, b)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Hit).To(BeFalse())

			res, err = c.Access(true, 0x0, 101, b)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Hit).To(BeTrue())
			Expect(res.ExtraCycles).To(Equal(uint64(0)))

			res, err = c.Access(false, 0x40, 102, b)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.ExtraCycles).To(Equal(uint64(200)))
		})
	})

	Describe("configuration validation", func() {
		It("rejects geometries that do not divide evenly", func() {
			cfg := l1cache.Config{SizeBytes: 100, Associativity: 3, BlockBytes: 32}
			_, err := l1cache.New(0, cfg, protocol.NewMESI())
			Expect(err).To(HaveOccurred())
		})
	})
})
