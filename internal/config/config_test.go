package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const schemaPath = "../../schemas/simulation.cue"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sim.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	path := writeConfig(t, `
zones:
  - id: 1
    start: {x: 0, y: 0}
    end: {x: 700, y: 600}
incidents_file: incidents.txt
time_unit: 5ms
fleets:
  - name: fleet-x
    count: 2
    attributes:
      travel_speed: 12
      flow_rate: 1.25
      max_capacity: 15
faults:
  mode: scripted
  every_nth: 3
`)
	cfg, err := Load(path, schemaPath)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if len(cfg.Fleets) != 1 || cfg.Fleets[0].Name != "fleet-x" || cfg.Fleets[0].Attributes.FlowRate != 1.25 {
		t.Errorf("Unexpected fleet data: %+v", cfg.Fleets)
	}
	if cfg.Zones[0].End.Y != 600 {
		t.Errorf("Unexpected zone data: %+v", cfg.Zones)
	}
	if cfg.TimeUnit != 5*time.Millisecond {
		t.Errorf("time_unit = %s", cfg.TimeUnit)
	}
	if cfg.TickInterval != time.Second || cfg.Trace.FlushInterval != time.Second {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if want := filepath.Join(filepath.Dir(path), "incidents.txt"); cfg.IncidentsFile != want {
		t.Errorf("incidents_file = %q, want %q", cfg.IncidentsFile, want)
	}
	if cfg.DroneCount() != 2 {
		t.Errorf("drone count = %d", cfg.DroneCount())
	}
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load("../../config/simulation.yaml", schemaPath)
	if err != nil {
		t.Fatalf("shipped config invalid: %v", err)
	}
	if cfg.ZonesFile == "" || cfg.IncidentsFile == "" {
		t.Fatalf("expected file references, got %+v", cfg)
	}
	if len(cfg.FaultKinds()) != 3 {
		t.Fatalf("fault kinds = %v", cfg.FaultKinds())
	}
}

func TestSchemaRejectsBadFleet(t *testing.T) {
	path := writeConfig(t, `
zones_file: zones.csv
scenario: wildfire-season
fleets:
  - name: broken
    count: 0
    attributes:
      travel_speed: 12
      flow_rate: 1
      max_capacity: 15
`)
	if _, err := Load(path, schemaPath); err == nil {
		t.Fatal("expected schema validation error for zero count")
	}
}

func TestSchemaRejectsUnknownFaultKind(t *testing.T) {
	path := writeConfig(t, `
zones_file: zones.csv
scenario: wildfire-season
fleets:
  - name: ok
    count: 1
    attributes: {travel_speed: 1, flow_rate: 1, max_capacity: 1}
faults:
  kinds: [meteor_strike]
`)
	if err := ValidateWithCue(path, schemaPath); err == nil {
		t.Fatal("expected schema error for unknown fault kind")
	}
}

func TestValidate(t *testing.T) {
	base := func() *SimulationConfig {
		c := &SimulationConfig{
			ZonesFile: "zones.csv",
			Scenario:  "wildfire-season",
			Fleets: []Fleet{{Name: "a", Count: 1, Attributes: Attributes{
				TravelSpeed: 1, FlowRate: 1, MaxCapacity: 1,
			}}},
		}
		c.ApplyDefaults()
		return c
	}
	cases := []struct {
		name   string
		mutate func(*SimulationConfig)
		want   string
	}{
		{"valid", func(*SimulationConfig) {}, ""},
		{"no zones", func(c *SimulationConfig) { c.ZonesFile = "" }, "zones"},
		{"no source", func(c *SimulationConfig) { c.Scenario = "" }, "incidents_file or scenario"},
		{"no fleets", func(c *SimulationConfig) { c.Fleets = nil }, "fleet"},
		{"zero speed", func(c *SimulationConfig) { c.Fleets[0].Attributes.TravelSpeed = 0 }, "must be positive"},
		{"bad mode", func(c *SimulationConfig) { c.Faults.Mode = "sometimes" }, "fault mode"},
		{"scripted without n", func(c *SimulationConfig) { c.Faults.Mode = "scripted" }, "every_nth"},
		{"bad kind", func(c *SimulationConfig) { c.Faults.Kinds = []string{"gremlins"} }, "unknown fault kind"},
		{"bad probability", func(c *SimulationConfig) { c.Faults.Probability = 2 }, "out of range"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base()
			tc.mutate(c)
			err := c.Validate()
			if tc.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
