// Package bus implements the shared-bus arbiter: FCFS transaction
// scheduling, byte/invalidation/update accounting, and snoop fan-out to
// peer caches. The bus holds only non-owning references to the caches it
// snoops; the driver owns both the bus and the caches and is the only
// component that wires them together (spec §9's cyclic-reference note).
package bus

import "github.com/sarchlab/coherencesim/protocol"

// wordBytes is the width of a single word for update-broadcast and
// cache-to-cache transfer accounting (spec §4.3.1, §4.3.2).
const wordBytes = 4

// Snooper is implemented by an L1 cache to receive a bus snoop.
type Snooper interface {
	Snoop(op protocol.Op, addr uint32) (SnoopOutcome, error)
}

// SnoopOutcome is one cache's response to a single snoop.
type SnoopOutcome struct {
	Present  bool
	Supplied bool
}

// TxnResult is the aggregate outcome of a bus transaction across every
// peer, plus the timing the issuing core must pay.
type TxnResult struct {
	AnyPresent  bool
	AnySupplied bool
	EndTime     uint64
	Duration    uint64
	Bytes       uint64
}

// Bus is the single process-wide shared-bus instance for a simulation
// run.
type Bus struct {
	freeTime      uint64
	dataBytes     uint64
	invalidations uint64
	updates       uint64

	peers map[int]Snooper
}

// New returns an empty bus with no registered peers.
func New() *Bus {
	return &Bus{peers: make(map[int]Snooper)}
}

// Register attaches a cache as a snoop target under the given core id.
func (b *Bus) Register(id int, s Snooper) {
	b.peers[id] = s
}

// Transact performs one bus transaction: it snoops every peer other than
// issuerID, computes the byte/cycle cost implied by op and the snoop
// outcome, schedules the transaction at max(coreReady, bus free time),
// and updates the running counters. blockBytes is the cache's block size,
// used to size BusRd/BusRdX fill costs.
func (b *Bus) Transact(issuerID int, op protocol.Op, addr uint32, coreReady uint64, blockBytes int) (TxnResult, error) {
	var anyPresent, anySupplied bool

	for id, peer := range b.peers {
		if id == issuerID {
			continue
		}

		outcome, err := peer.Snoop(op, addr)
		if err != nil {
			return TxnResult{}, err
		}

		anyPresent = anyPresent || outcome.Present
		anySupplied = anySupplied || outcome.Supplied
	}

	duration, dataBytes := b.cost(op, anySupplied, anyPresent, blockBytes)

	start := coreReady
	if b.freeTime > start {
		start = b.freeTime
	}

	end := start + duration
	b.freeTime = end
	b.dataBytes += dataBytes

	switch op {
	case protocol.BusRdX, protocol.BusUpgr:
		b.invalidations++
	case protocol.BusUpd:
		b.updates++
	}

	return TxnResult{
		AnyPresent:  anyPresent,
		AnySupplied: anySupplied,
		EndTime:     end,
		Duration:    duration,
		Bytes:       dataBytes,
	}, nil
}

// cost returns the (duration, data bytes) charged for one transaction of
// the given op, per spec §4.3.1/§4.3.2/§4.4.
func (b *Bus) cost(op protocol.Op, anySupplied, anyPresent bool, blockBytes int) (uint64, uint64) {
	switch op {
	case protocol.BusRd, protocol.BusRdX:
		if anySupplied {
			words := uint64(blockBytes / wordBytes)
			return 2 * words, uint64(blockBytes)
		}

		return 100, uint64(blockBytes)
	case protocol.BusUpgr:
		return 1, 0
	case protocol.BusUpd:
		if anyPresent {
			return 2, wordBytes
		}

		return 0, wordBytes
	default:
		return 0, 0
	}
}

// AccountWriteback bills a dirty-eviction writeback to the bus's
// cumulative byte counter without contending for the serialized bus
// timeline (spec §4.4's writeback policy clarification).
func (b *Bus) AccountWriteback(bytes uint64) {
	b.dataBytes += bytes
}

// Stats returns the running cumulative bus counters.
func (b *Bus) Stats() (dataBytes, invalidations, updates uint64) {
	return b.dataBytes, b.invalidations, b.updates
}

// FreeTime returns the cycle at which the bus next becomes free.
func (b *Bus) FreeTime() uint64 {
	return b.freeTime
}
