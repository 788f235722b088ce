// Package l1cache implements the per-core private L1 cache: set-associative
// lookup, LRU replacement, and write-back/write-allocate, layered over a
// pluggable coherence protocol. Tag storage is a hand-rolled set/way array,
// in the same spirit as this module's protocol and bus packages: a closed,
// fixed-shape structure with no ecosystem library niche (the akita cache
// package's directory/victim-finder types the teacher's timing/cache
// reaches for live under mem/cache/internal/tagging and are not part of
// that package's importable surface).
package l1cache

import (
	"fmt"

	"github.com/sarchlab/coherencesim/addr"
	"github.com/sarchlab/coherencesim/bus"
	"github.com/sarchlab/coherencesim/protocol"
)

// Config describes a cache's geometry.
type Config struct {
	// SizeBytes is the total cache capacity in bytes.
	SizeBytes int
	// Associativity is the number of ways per set.
	Associativity int
	// BlockBytes is the block (line) size in bytes.
	BlockBytes int
}

// NumSets returns the derived set count for the configuration.
func (c Config) NumSets() int {
	return c.SizeBytes / (c.Associativity * c.BlockBytes)
}

// Validate reports a configuration error if the geometry does not divide
// exactly, per spec §6.
func (c Config) Validate() error {
	if c.SizeBytes <= 0 || c.Associativity <= 0 || c.BlockBytes <= 0 {
		return fmt.Errorf("l1cache: size, associativity, and block size must all be positive")
	}

	if c.SizeBytes%(c.Associativity*c.BlockBytes) != 0 {
		return fmt.Errorf("l1cache: cache size %d does not divide evenly by associativity %d x block size %d",
			c.SizeBytes, c.Associativity, c.BlockBytes)
	}

	return nil
}

// AccessResult classifies one processor-side access.
type AccessResult struct {
	Hit            bool
	ExtraCycles    uint64
	DataBytes      uint64
	Classification protocol.Classification
}

// line is one set/way slot: a tag, its coherence state, and the
// bookkeeping LRU replacement and writeback billing need.
type line struct {
	valid bool
	dirty bool
	tag   uint64
	state protocol.State

	lastUsed uint64
}

// Cache is a set-associative L1 cache for one core, driven by a pluggable
// coherence protocol.
type Cache struct {
	id       int
	cfg      Config
	protocol protocol.Protocol

	sets [][]line

	clock uint64
}

// New constructs a cache for core id with the given geometry and
// coherence protocol.
func New(id int, cfg Config, p protocol.Protocol) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sets := make([][]line, cfg.NumSets())
	for i := range sets {
		sets[i] = make([]line, cfg.Associativity)
	}

	return &Cache{
		id:       id,
		cfg:      cfg,
		protocol: p,
		sets:     sets,
	}, nil
}

// dirtyState reports whether state leaves this cache holding the only
// up-to-date copy of the block, obligating a writeback on eviction
// (spec §3: MESI M; Dragon M and Sm; the MOESI extension's O, which still
// owes memory a writeback despite having supplied peers via BusRd).
func dirtyState(s protocol.State) bool {
	switch s {
	case protocol.Modified, protocol.SharedModified, protocol.Owned:
		return true
	default:
		return false
	}
}

// lookup returns the line holding tag in set, or nil if absent.
func (c *Cache) lookup(set int, tag uint64) *line {
	for i := range c.sets[set] {
		l := &c.sets[set][i]
		if l.valid && l.tag == tag {
			return l
		}
	}

	return nil
}

// findVictim picks a replacement way in set: an invalid way if one exists,
// otherwise the least recently used way.
func (c *Cache) findVictim(set int) *line {
	ways := c.sets[set]

	for i := range ways {
		if !ways[i].valid {
			return &ways[i]
		}
	}

	victim := &ways[0]
	for i := 1; i < len(ways); i++ {
		if ways[i].lastUsed < victim.lastUsed {
			victim = &ways[i]
		}
	}

	return victim
}

// visit stamps l as the most recently used line for LRU replacement.
func (c *Cache) visit(l *line) {
	c.clock++
	l.lastUsed = c.clock
}

// Access performs one processor memory access (spec §4.2).
func (c *Cache) Access(isWrite bool, a uint32, coreReady uint64, b *bus.Bus) (AccessResult, error) {
	_, set, tag := addr.Decode(a, c.cfg.BlockBytes, c.cfg.NumSets())

	if l := c.lookup(set, tag); l != nil {
		return c.accessHit(isWrite, a, coreReady, b, l)
	}

	return c.accessMiss(isWrite, a, coreReady, b, set, tag)
}

func (c *Cache) accessHit(isWrite bool, a uint32, coreReady uint64, b *bus.Bus, l *line) (AccessResult, error) {
	c.visit(l)

	prior := l.state

	decision, err := c.protocol.OnProcessorEvent(true, isWrite, prior)
	if err != nil {
		return AccessResult{}, err
	}

	classification := c.protocol.Classify(prior)

	if decision.Op == protocol.NoOp {
		l.state = decision.StateAlone
		l.dirty = dirtyState(l.state)

		return AccessResult{Hit: true, Classification: classification}, nil
	}

	txn, err := b.Transact(c.id, decision.Op, a, coreReady, c.cfg.BlockBytes)
	if err != nil {
		return AccessResult{}, err
	}

	if txn.AnyPresent {
		l.state = decision.StateShared
	} else {
		l.state = decision.StateAlone
	}

	l.dirty = dirtyState(l.state)

	return AccessResult{
		Hit:            true,
		ExtraCycles:    txn.Duration,
		DataBytes:      txn.Bytes,
		Classification: classification,
	}, nil
}

func (c *Cache) accessMiss(isWrite bool, a uint32, coreReady uint64, b *bus.Bus, set int, tag uint64) (AccessResult, error) {
	victim := c.findVictim(set)

	var extra, bytesUsed uint64

	if victim.valid && victim.dirty {
		extra += 100
		bytesUsed += uint64(c.cfg.BlockBytes)
		b.AccountWriteback(uint64(c.cfg.BlockBytes))
	}

	victim.valid = false
	victim.tag = tag

	decision, err := c.protocol.OnProcessorEvent(false, isWrite, protocol.Invalid)
	if err != nil {
		return AccessResult{}, err
	}

	txn1, err := b.Transact(c.id, decision.Op, a, coreReady, c.cfg.BlockBytes)
	if err != nil {
		return AccessResult{}, err
	}

	extra += txn1.Duration
	bytesUsed += txn1.Bytes
	present := txn1.AnyPresent

	if decision.Op2 != protocol.NoOp && (present || !decision.Op2OnlyIfPresent) {
		txn2, err := b.Transact(c.id, decision.Op2, a, coreReady, c.cfg.BlockBytes)
		if err != nil {
			return AccessResult{}, err
		}

		extra += txn2.Duration
		bytesUsed += txn2.Bytes
		present = txn2.AnyPresent
	}

	var newState protocol.State
	if present {
		newState = decision.StateShared
	} else {
		newState = decision.StateAlone
	}

	victim.valid = true
	victim.state = newState
	victim.dirty = dirtyState(newState)
	c.visit(victim)

	return AccessResult{
		Hit:            false,
		ExtraCycles:    extra,
		DataBytes:      bytesUsed,
		Classification: c.protocol.Classify(newState),
	}, nil
}

// Snoop is called by the bus on every cache other than the transaction's
// issuer (spec §4.2's snoop() operation, implements bus.Snooper).
func (c *Cache) Snoop(op protocol.Op, a uint32) (bus.SnoopOutcome, error) {
	_, set, tag := addr.Decode(a, c.cfg.BlockBytes, c.cfg.NumSets())

	l := c.lookup(set, tag)
	if l == nil {
		return bus.SnoopOutcome{}, nil
	}

	decision, err := c.protocol.OnSnoopEvent(op, l.state)
	if err != nil {
		return bus.SnoopOutcome{}, err
	}

	l.state = decision.NextState
	l.valid = decision.NextState != protocol.Invalid

	if !l.valid {
		l.dirty = false
	} else {
		l.dirty = dirtyState(l.state)
	}

	return bus.SnoopOutcome{Present: decision.Present, Supplied: decision.Supplied}, nil
}

// ID returns the owning core's index.
func (c *Cache) ID() int {
	return c.id
}
