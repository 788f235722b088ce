// Command coherencesim runs a trace-driven cache-coherence simulation and
// reports per-core and bus statistics.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/coherencesim/config"
	"github.com/sarchlab/coherencesim/driver"
	"github.com/sarchlab/coherencesim/report"
	"github.com/sarchlab/coherencesim/trace"
)

var (
	configPath = flag.String("config", "", "Path to a run configuration JSON file")
	protocol   = flag.String("protocol", "", "Coherence protocol: MESI, Dragon, or MOESI (overrides -config)")
	jsonOut    = flag.Bool("json", false, "Print results as JSON instead of text")
)

func main() {
	flag.Parse()

	traceFiles := flag.Args()
	if len(traceFiles) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: coherencesim [options] <trace0> <trace1> ...\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := loadConfig(traceFiles)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	traces := make([][]trace.Record, len(cfg.TraceFiles))
	for i, path := range cfg.TraceFiles {
		records, err := trace.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		traces[i] = records
	}

	sim, err := driver.New(*cfg, traces)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building simulator: %v\n", err)
		os.Exit(1)
	}

	sink, err := sim.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running simulation: %v\n", err)
		os.Exit(1)
	}

	r := report.Build(sink, *cfg)

	if *jsonOut {
		if err := r.WriteJSON(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON: %v\n", err)
			os.Exit(1)
		}

		return
	}

	r.WriteText(os.Stdout)
}

// loadConfig resolves the run configuration from -config if given,
// otherwise the canonical default, then overlays the trace files given on
// the command line and an explicit -protocol override.
func loadConfig(traceFiles []string) (*config.RunConfig, error) {
	var cfg config.RunConfig

	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}

		cfg = *loaded
	} else {
		cfg = config.Default()
	}

	cfg.TraceFiles = traceFiles
	cfg.NumCores = len(traceFiles)

	if *protocol != "" {
		cfg.Protocol = *protocol
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
