package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fireops-sim/internal/config"
	"fireops-sim/internal/logging"
	"fireops-sim/internal/sim"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded response log",
	Long:  "replay feeds drone responses from a JSONL log back into GreptimeDB or STDOUT, keeping their original spacing scaled by --speed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		writer, cleanup, err := newWriters(&config.SimulationConfig{}, replayPrintOnly, false, "")
		if err != nil {
			return err
		}
		defer cleanup()

		n, err := sim.ReplayLogFile(ctx, replayInput, writer, replaySpeed)
		logging.FromContext(ctx).Info("replay finished", "responses", n)
		return err
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to response log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier; 0 replays without delay")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print responses to STDOUT instead of writing to DB")
	_ = replayCmd.MarkFlagRequired("input")
}
