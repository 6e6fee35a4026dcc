package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"fireops-sim/internal/logging"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "fireops-sim",
	Short: "Firefighting drone dispatch simulator",
	Long:  "FireOps-Sim dispatches fire incidents to drone fleets and records their responses.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := logging.NewWith(os.Stderr, logLevel, logFormat)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		cmd.SetContext(logging.NewContext(cmd.Context(), logger))
		return nil
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text or json)")
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(dashboardCmd)
}
