// Package report formats a completed run's statistics for human or
// machine consumption, the same text/JSON duality the teacher's
// benchmarks harness prints results in.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sarchlab/coherencesim/config"
	"github.com/sarchlab/coherencesim/stats"
)

// CoreReport is one core's counters plus its derived hit rate.
type CoreReport struct {
	Core            int     `json:"core"`
	ExecutionCycles uint64  `json:"execution_cycles"`
	ComputeCycles   uint64  `json:"compute_cycles"`
	IdleCycles      uint64  `json:"idle_cycles"`
	Loads           uint64  `json:"loads"`
	Stores          uint64  `json:"stores"`
	Hits            uint64  `json:"hits"`
	Misses          uint64  `json:"misses"`
	HitRate         float64 `json:"hit_rate"`
	PrivateAccesses uint64  `json:"private_accesses"`
	SharedAccesses  uint64  `json:"shared_accesses"`
}

// Report is the complete output of one simulation run.
type Report struct {
	Protocol               string       `json:"protocol"`
	CacheSizeBytes         int          `json:"cache_size_bytes"`
	Associativity          int          `json:"associativity"`
	BlockSizeBytes         int          `json:"block_size_bytes"`
	OverallExecutionCycles uint64       `json:"overall_execution_cycles"`
	Cores                  []CoreReport `json:"cores"`
	BusDataBytes           uint64       `json:"bus_data_bytes"`
	BusInvalidations       uint64       `json:"bus_invalidations"`
	BusUpdates             uint64       `json:"bus_updates"`
}

// Build assembles a Report from a run's statistics sink and the
// configuration it ran under.
func Build(sink *stats.Sink, cfg config.RunConfig) Report {
	r := Report{
		Protocol:               cfg.Protocol,
		CacheSizeBytes:         cfg.CacheSizeBytes,
		Associativity:          cfg.Associativity,
		BlockSizeBytes:         cfg.BlockSizeBytes,
		OverallExecutionCycles: sink.OverallExecutionCycles(),
		Cores:                  make([]CoreReport, len(sink.Cores)),
		BusDataBytes:           sink.BusDataBytes,
		BusInvalidations:       sink.BusInvalidations,
		BusUpdates:             sink.BusUpdates,
	}

	for i, c := range sink.Cores {
		total := c.Hits + c.Misses

		var hitRate float64
		if total > 0 {
			hitRate = float64(c.Hits) / float64(total)
		}

		r.Cores[i] = CoreReport{
			Core:            i,
			ExecutionCycles: c.ExecutionCycles,
			ComputeCycles:   c.ComputeCycles,
			IdleCycles:      c.IdleCycles,
			Loads:           c.Loads,
			Stores:          c.Stores,
			Hits:            c.Hits,
			Misses:          c.Misses,
			HitRate:         hitRate,
			PrivateAccesses: c.PrivateAccesses,
			SharedAccesses:  c.SharedAccesses,
		}
	}

	return r
}

// WriteText prints a human-readable summary, one section per core
// followed by the shared bus counters.
func (r Report) WriteText(w io.Writer) {
	fmt.Fprintf(w, "=== Coherence Simulation Results (%s, %dB/%d-way/%dB blocks) ===\n\n",
		r.Protocol, r.CacheSizeBytes, r.Associativity, r.BlockSizeBytes)

	for _, c := range r.Cores {
		fmt.Fprintf(w, "Core %d:\n", c.Core)
		fmt.Fprintf(w, "  Execution cycles: %d (compute %d, idle %d)\n",
			c.ExecutionCycles, c.ComputeCycles, c.IdleCycles)
		fmt.Fprintf(w, "  Loads: %d  Stores: %d\n", c.Loads, c.Stores)
		fmt.Fprintf(w, "  Hits: %d  Misses: %d  Hit rate: %.1f%%\n",
			c.Hits, c.Misses, 100*c.HitRate)
		fmt.Fprintf(w, "  Private accesses: %d  Shared accesses: %d\n\n",
			c.PrivateAccesses, c.SharedAccesses)
	}

	fmt.Fprintf(w, "--- Bus ---\n")
	fmt.Fprintf(w, "  Data bytes:     %d\n", r.BusDataBytes)
	fmt.Fprintf(w, "  Invalidations:  %d\n", r.BusInvalidations)
	fmt.Fprintf(w, "  Updates:        %d\n", r.BusUpdates)
	fmt.Fprintf(w, "\nOverall execution cycles: %d\n", r.OverallExecutionCycles)
}

// WriteJSON writes the report as indented JSON.
func (r Report) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(r)
}
