package protocol_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/coherencesim/protocol"
)

var _ = Describe("MOESI", func() {
	var p protocol.Protocol

	BeforeEach(func() {
		p = protocol.NewMOESI()
	})

	Describe("processor events", func() {
		It("issues BusUpgr from Owned to M on a write hit", func() {
			d, err := p.OnProcessorEvent(true, true, protocol.Owned)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Op).To(Equal(protocol.BusUpgr))
			Expect(d.StateAlone).To(Equal(protocol.Modified))
		})

		It("stays silent on a read hit from Owned", func() {
			d, err := p.OnProcessorEvent(true, false, protocol.Owned)
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Op).To(Equal(protocol.NoOp))
			Expect(d.StateAlone).To(Equal(protocol.Owned))
		})
	})

	Describe("snoop events", func() {
		It("supplies and moves M to Owned on BusRd, unlike MESI's M-to-S", func() {
			s, err := p.OnSnoopEvent(protocol.BusRd, protocol.Modified)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Supplied).To(BeTrue())
			Expect(s.NextState).To(Equal(protocol.Owned))
		})

		It("keeps supplying from Owned on repeated BusRd", func() {
			s, err := p.OnSnoopEvent(protocol.BusRd, protocol.Owned)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Supplied).To(BeTrue())
			Expect(s.NextState).To(Equal(protocol.Owned))
		})

		It("invalidates Owned on BusRdX", func() {
			s, err := p.OnSnoopEvent(protocol.BusRdX, protocol.Owned)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.NextState).To(Equal(protocol.Invalid))
		})

		It("rejects an impossible BusUpd against a line in Owned", func() {
			_, err := p.OnSnoopEvent(protocol.BusUpd, protocol.Owned)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("classification", func() {
		It("classifies Owned and Shared as shared, M and E as private", func() {
			Expect(p.Classify(protocol.Owned)).To(Equal(protocol.SharedAccess))
			Expect(p.Classify(protocol.Shared)).To(Equal(protocol.SharedAccess))
			Expect(p.Classify(protocol.Modified)).To(Equal(protocol.Private))
			Expect(p.Classify(protocol.Exclusive)).To(Equal(protocol.Private))
		})
	})
})
