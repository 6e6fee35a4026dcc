package sim

import (
	"context"
	"fmt"

	"fireops-sim/internal/config"
	"fireops-sim/internal/feed"
	"fireops-sim/internal/incident"
	"fireops-sim/internal/logging"
	"fireops-sim/internal/scenario"
)

// LoadSource reads the zones and the incident feed named by cfg. Inline
// zones are merged with the zone file; an incidents file wins over a scenario.
func LoadSource(ctx context.Context, cfg *config.SimulationConfig) ([]incident.Zone, []incident.Incident, error) {
	log := logging.FromContext(ctx)
	zones := append([]incident.Zone(nil), cfg.Zones...)
	if cfg.ZonesFile != "" {
		fromFile, err := feed.LoadZones(cfg.ZonesFile)
		if err != nil {
			return nil, nil, fmt.Errorf("load zones: %w", err)
		}
		zones = append(zones, fromFile...)
	}
	if len(zones) == 0 {
		return nil, nil, feed.ErrNoZones
	}

	if cfg.IncidentsFile != "" {
		incs, skipped, err := feed.LoadIncidents(ctx, cfg.IncidentsFile, zones)
		if err != nil {
			return nil, nil, fmt.Errorf("load incidents: %w", err)
		}
		log.Info("loaded incident feed", "path", cfg.IncidentsFile, "incidents", len(incs), "skipped", skipped)
		return zones, incs, nil
	}

	sc, err := scenario.Resolve(cfg.Scenario)
	if err != nil {
		return nil, nil, err
	}
	incs, err := sc.Generate(zones)
	if err != nil {
		return nil, nil, fmt.Errorf("scenario %s: %w", cfg.Scenario, err)
	}
	log.Info("generated scenario feed", "scenario", sc.Name, "incidents", len(incs))
	return zones, incs, nil
}
