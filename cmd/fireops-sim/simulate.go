package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fireops-sim/internal/admin"
	"fireops-sim/internal/config"
	"fireops-sim/internal/logging"
	"fireops-sim/internal/metrics"
	"fireops-sim/internal/sim"
	"fireops-sim/internal/trace"
)

var (
	simPrintOnly  bool
	simConfigPath string
	simSchemaPath string
	simTick       time.Duration
	simLogFile    string
	simTUI        bool
	simAdminAddr  string
	simTracePath  string
	simSummary    bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the incident dispatch simulation",
	Long:  "simulate feeds incidents to the drone fleets and runs until every incident is resolved, failed or the process is interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		log := logging.FromContext(ctx)

		cfg, err := config.Load(simConfigPath, simSchemaPath)
		if err != nil {
			return err
		}
		if simTick > 0 {
			cfg.TickInterval = simTick
		}
		if envTick := os.Getenv("TICK_INTERVAL"); envTick != "" {
			d, err := time.ParseDuration(envTick)
			if err != nil {
				return fmt.Errorf("invalid TICK_INTERVAL: %w", err)
			}
			cfg.TickInterval = d
		}
		if simTracePath != "" {
			cfg.Trace.Path = simTracePath
		}

		zones, incidents, err := sim.LoadSource(ctx, cfg)
		if err != nil {
			return err
		}

		writer, cleanup, err := newWriters(cfg, simPrintOnly, simTUI, simLogFile)
		if err != nil {
			return err
		}
		defer cleanup()

		clusterID := os.Getenv("CLUSTER_ID")
		if clusterID == "" {
			clusterID = "fireops-01"
		}

		prom, err := metrics.NewProm(nil)
		if err != nil {
			return err
		}

		var emitter trace.Emitter = trace.Nop{}
		traceDone := make(chan struct{})
		if cfg.Trace.Path != "" {
			sink := trace.NewSink()
			flusher, err := trace.OpenFile(sink, cfg.Trace.Path, cfg.Trace.FlushInterval)
			if err != nil {
				return err
			}
			emitter = sink
			go func() {
				defer close(traceDone)
				if err := flusher.Run(context.WithoutCancel(ctx)); err != nil {
					log.Error("trace flush failed", "err", err)
				}
			}()
			defer func() {
				sink.Close()
				<-traceDone
			}()
		} else {
			close(traceDone)
		}

		simulator := sim.NewSimulator(clusterID, cfg, zones, incidents, sim.Options{
			Writer:  writer,
			Trace:   emitter,
			Metrics: prom,
		})
		if ct, ok := writer.(interface{ SetChaosToggler(func() bool) }); ok {
			ct.SetChaosToggler(simulator.ToggleChaos)
		}

		if simAdminAddr != "" {
			srv := admin.NewServer(simulator, nil)
			setAdminStatus(writer, true)
			go func() {
				log.Info("admin UI listening", "addr", simAdminAddr)
				if err := srv.Start(ctx, simAdminAddr); err != nil {
					log.Error("admin server failed", "err", err)
					setAdminStatus(writer, false)
				}
			}()
		}

		log.Info("simulation starting", "cluster_id", clusterID, "zones", len(zones), "incidents", len(incidents), "drones", cfg.DroneCount())
		runErr := simulator.Run(ctx)
		if runErr != nil && ctx.Err() != nil {
			log.Info("simulation interrupted")
			runErr = nil
		}

		if simSummary {
			out, err := json.MarshalIndent(simulator.Summary(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, string(out))
		}
		return runErr
	},
}

func setAdminStatus(w sim.Writer, active bool) {
	if as, ok := w.(sim.AdminStatusWriter); ok {
		as.SetAdminStatus(active)
	}
}

func init() {
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print output to STDOUT instead of writing to DB")
	simulateCmd.Flags().StringVar(&simConfigPath, "config", "config/simulation.yaml", "Path to simulation configuration YAML")
	simulateCmd.Flags().StringVar(&simSchemaPath, "schema", "schemas/simulation.cue", "Path to CUE schema file")
	simulateCmd.Flags().DurationVar(&simTick, "tick", 0, "Status tick interval (overrides tick_interval)")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Path to export responses as JSONL; status, faults and state go to sibling files")
	simulateCmd.Flags().BoolVar(&simTUI, "tui", false, "Render an interactive terminal UI")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin-addr", ":8080", "Admin UI listen address; empty disables it")
	simulateCmd.Flags().StringVar(&simTracePath, "trace", "", "Path to the activity trace file (overrides trace.path)")
	simulateCmd.Flags().BoolVar(&simSummary, "summary", true, "Print the run summary as JSON to STDERR on exit")
}
