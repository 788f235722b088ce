// Package stats holds the per-core and aggregate counters the driver
// accumulates into during a run (spec §4.6). It is an explicit,
// caller-threaded record rather than a process-wide singleton, per spec
// §9's design note on re-architecting the source's global statistics
// sink.
package stats

// CoreStats holds one core's counters for the duration of a run.
type CoreStats struct {
	ExecutionCycles uint64
	ComputeCycles   uint64
	IdleCycles      uint64

	Loads  uint64
	Stores uint64
	Hits   uint64
	Misses uint64

	PrivateAccesses uint64
	SharedAccesses  uint64
}

// Sink aggregates per-core counters plus the bus's cumulative traffic
// counters into a single owned record (spec §3, §4.6).
type Sink struct {
	Cores []CoreStats

	BusDataBytes     uint64
	BusInvalidations uint64
	BusUpdates       uint64
}

// New returns a Sink with numCores zeroed per-core entries.
func New(numCores int) *Sink {
	return &Sink{Cores: make([]CoreStats, numCores)}
}

// OverallExecutionCycles is the maximum per-core execution cycle count
// (spec §4.5's termination rule, invariant 5 in §8).
func (s *Sink) OverallExecutionCycles() uint64 {
	var max uint64

	for _, c := range s.Cores {
		if c.ExecutionCycles > max {
			max = c.ExecutionCycles
		}
	}

	return max
}
