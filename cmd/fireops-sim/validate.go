package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fireops-sim/internal/config"
	"fireops-sim/internal/sim"
)

var (
	validateConfigPath string
	validateSchemaPath string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a simulation configuration",
	Long:  "validate checks the configuration against the CUE schema, then loads its zones and incidents.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(validateConfigPath, validateSchemaPath)
		if err != nil {
			return err
		}
		zones, incidents, err := sim.LoadSource(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "config ok: %d zones, %d incidents, %d drones in %d fleets\n",
			len(zones), len(incidents), cfg.DroneCount(), len(cfg.Fleets))
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateConfigPath, "config", "config/simulation.yaml", "Path to simulation configuration YAML")
	validateCmd.Flags().StringVar(&validateSchemaPath, "schema", "schemas/simulation.cue", "Path to CUE schema file")
}
