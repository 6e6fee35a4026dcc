package main

import (
	"os"

	"fireops-sim/internal/config"
	"fireops-sim/internal/sim"
)

// newWriters sets up the simulation writers based on flags and env vars.
// It returns the writer and a cleanup function to close any resources.
func newWriters(cfg *config.SimulationConfig, printOnly, tui bool, logFile string) (sim.Writer, func(), error) {
	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	var base sim.Writer
	if tui {
		tw := sim.NewTUIWriter(cfg)
		closers = append(closers, tw.Close)
		base = tw
	} else {
		w, err := baseWriter(cfg, printOnly)
		if err != nil {
			return nil, nil, err
		}
		base = w
	}
	if logFile == "" {
		return base, cleanup, nil
	}

	fw, err := sim.NewFileWriter(logFile, logFile+".status", logFile+".faults", logFile+".state")
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, fw.Close)
	return sim.NewMultiWriter(base, fw), cleanup, nil
}

// baseWriter chooses STDOUT or GreptimeDB based on printOnly and env vars.
func baseWriter(cfg *config.SimulationConfig, printOnly bool) (sim.Writer, error) {
	endpoint := os.Getenv("GREPTIMEDB_ENDPOINT")
	if printOnly || endpoint == "" {
		return sim.NewStdoutWriter(cfg), nil
	}
	w, err := sim.NewGreptimeDBWriter(endpoint, os.Getenv("GREPTIMEDB_DATABASE"))
	if err != nil {
		return nil, err
	}
	return w, nil
}
