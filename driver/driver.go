// Package driver implements the discrete-event simulator loop that
// advances per-core clocks and interleaves memory operations across cores
// (spec §4.5). It exclusively owns the caches, per-core state, and the
// bus for the run.
package driver

import (
	"fmt"

	"github.com/sarchlab/coherencesim/bus"
	"github.com/sarchlab/coherencesim/config"
	"github.com/sarchlab/coherencesim/l1cache"
	"github.com/sarchlab/coherencesim/protocol"
	"github.com/sarchlab/coherencesim/stats"
	"github.com/sarchlab/coherencesim/trace"
)

// core is the driver's private per-core cursor and counters.
type core struct {
	id    int
	trace []trace.Record
	idx   int
	ready uint64
	stats stats.CoreStats
}

func (c *core) pendingMemOp() bool {
	return c.idx < len(c.trace)
}

func (c *core) drainCompute() {
	for c.idx < len(c.trace) && c.trace[c.idx].Kind == trace.Compute {
		c.ready += c.trace[c.idx].Cycles
		c.stats.ComputeCycles += c.trace[c.idx].Cycles
		c.idx++
	}
}

// Simulator owns the caches, per-core state, and bus for one run.
type Simulator struct {
	cores  []*core
	caches []*l1cache.Cache
	bus    *bus.Bus
}

// New builds a Simulator from a validated RunConfig and one trace per
// core, in core order.
func New(cfg config.RunConfig, traces [][]trace.Record) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if len(traces) != cfg.NumCores {
		return nil, fmt.Errorf("driver: expected %d traces, got %d", cfg.NumCores, len(traces))
	}

	b := bus.New()
	cacheCfg := l1cache.Config{
		SizeBytes:     cfg.CacheSizeBytes,
		Associativity: cfg.Associativity,
		BlockBytes:    cfg.BlockSizeBytes,
	}

	sim := &Simulator{bus: b}

	for i := 0; i < cfg.NumCores; i++ {
		p, err := protocol.ByName(cfg.Protocol)
		if err != nil {
			return nil, err
		}

		c, err := l1cache.New(i, cacheCfg, p)
		if err != nil {
			return nil, err
		}

		b.Register(i, c)
		sim.caches = append(sim.caches, c)
		sim.cores = append(sim.cores, &core{id: i, trace: traces[i]})
	}

	return sim, nil
}

// Run executes the main loop to completion and returns the final
// statistics sink (spec §4.5, §4.6).
func (s *Simulator) Run() (*stats.Sink, error) {
	for {
		for _, c := range s.cores {
			c.drainCompute()
		}

		next := s.selectNext()
		if next == nil {
			break
		}

		if err := s.service(next); err != nil {
			return nil, err
		}
	}

	sink := stats.New(len(s.cores))

	for i, c := range s.cores {
		c.stats.ExecutionCycles = c.ready
		sink.Cores[i] = c.stats
	}

	sink.BusDataBytes, sink.BusInvalidations, sink.BusUpdates = s.bus.Stats()

	return sink, nil
}

// selectNext returns the core with the smallest ready-time among those
// with a pending memory record, breaking ties by smallest core id.
func (s *Simulator) selectNext() *core {
	var best *core

	for _, c := range s.cores {
		if !c.pendingMemOp() {
			continue
		}

		if best == nil || c.ready < best.ready || (c.ready == best.ready && c.id < best.id) {
			best = c
		}
	}

	return best
}

func (s *Simulator) service(c *core) error {
	rec := c.trace[c.idx]
	c.idx++

	isWrite := rec.Kind == trace.Store

	res, err := s.caches[c.id].Access(isWrite, rec.Addr, c.ready, s.bus)
	if err != nil {
		return fmt.Errorf("driver: core %d: %w", c.id, err)
	}

	c.ready += 1 + res.ExtraCycles

	if isWrite {
		c.stats.Stores++
	} else {
		c.stats.Loads++
	}

	if res.Hit {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}

	if res.ExtraCycles > 0 {
		c.stats.IdleCycles += res.ExtraCycles
	}

	switch res.Classification {
	case protocol.Private:
		c.stats.PrivateAccesses++
	case protocol.SharedAccess:
		c.stats.SharedAccesses++
	}

	return nil
}
