// Package config holds the run configuration for a coherence simulation:
// protocol choice, cache geometry, core count, and trace file paths.
// Shape and JSON-load/validate conventions follow the teacher's
// timing/latency.TimingConfig.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/coherencesim/protocol"
)

// RunConfig configures one simulation run (spec §6).
type RunConfig struct {
	// Protocol is one of "MESI", "Dragon", or the MOESI extension.
	Protocol string `json:"protocol"`

	// CacheSizeBytes is the total per-core L1 capacity.
	CacheSizeBytes int `json:"cache_size_bytes"`
	// Associativity is the number of ways per set.
	Associativity int `json:"associativity"`
	// BlockSizeBytes is the cache line size.
	BlockSizeBytes int `json:"block_size_bytes"`

	// NumCores is the number of cores/traces in this run. Canonically 4.
	NumCores int `json:"num_cores"`
	// TraceFiles holds one trace path per core, in core order.
	TraceFiles []string `json:"trace_files"`
}

// Default returns the canonical 4-core, 4096B/2-way/32B configuration
// used throughout spec §8's scenarios.
func Default() RunConfig {
	return RunConfig{
		Protocol:       "MESI",
		CacheSizeBytes: 4096,
		Associativity:  2,
		BlockSizeBytes: 32,
		NumCores:       4,
	}
}

// Error reports a fatal, pre-simulation configuration problem (spec §7).
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validate checks every numeric parameter is positive, the cache
// geometry divides evenly, the protocol name is recognized, and exactly
// NumCores trace files are configured.
func (c RunConfig) Validate() error {
	if c.CacheSizeBytes <= 0 {
		return &Error{Field: "cache_size_bytes", Err: fmt.Errorf("must be positive")}
	}

	if c.Associativity <= 0 {
		return &Error{Field: "associativity", Err: fmt.Errorf("must be positive")}
	}

	if c.BlockSizeBytes <= 0 {
		return &Error{Field: "block_size_bytes", Err: fmt.Errorf("must be positive")}
	}

	if c.CacheSizeBytes%(c.Associativity*c.BlockSizeBytes) != 0 {
		return &Error{Field: "cache_size_bytes", Err: fmt.Errorf(
			"%d must divide evenly by associativity (%d) x block size (%d)",
			c.CacheSizeBytes, c.Associativity, c.BlockSizeBytes)}
	}

	if c.NumCores <= 0 {
		return &Error{Field: "num_cores", Err: fmt.Errorf("must be positive")}
	}

	if len(c.TraceFiles) != c.NumCores {
		return &Error{Field: "trace_files", Err: fmt.Errorf(
			"expected %d trace files, got %d", c.NumCores, len(c.TraceFiles))}
	}

	if _, err := protocol.ByName(c.Protocol); err != nil {
		return &Error{Field: "protocol", Err: err}
	}

	return nil
}

// Load reads a RunConfig from a JSON file, seeded with Default() values
// for any field the file omits.
func Load(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes the RunConfig to path as indented JSON.
func (c RunConfig) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: serializing: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}

	return nil
}
