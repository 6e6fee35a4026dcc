// YAML config loader with CUE validation integration
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"fireops-sim/internal/incident"
)

// Attributes are the fixed performance figures of every drone in a fleet.
type Attributes struct {
	TakeoffSpeed float64 `yaml:"takeoff_speed"`
	TravelSpeed  float64 `yaml:"travel_speed"`
	FlowRate     float64 `yaml:"flow_rate"`
	MaxCapacity  float64 `yaml:"max_capacity"`
	DrainPerTask float64 `yaml:"drain_per_task"`
}

// Fleet defines a group of identical drones
type Fleet struct {
	Name       string     `yaml:"name"`
	Count      int        `yaml:"count"`
	Attributes Attributes `yaml:"attributes"`
}

// Faults selects the fault injection policy.
type Faults struct {
	// Mode is none, random or scripted.
	Mode        string   `yaml:"mode"`
	Probability float64  `yaml:"probability"`
	Kinds       []string `yaml:"kinds"`
	Seed        int64    `yaml:"seed"`
	EveryNth    int      `yaml:"every_nth"`
	// Disabled starts the run with injection switched off; it can be
	// toggled at runtime.
	Disabled bool `yaml:"disabled"`
}

// Trace configures the activity trace file.
type Trace struct {
	Path          string        `yaml:"path"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// SimulationConfig is the root configuration for zones, incidents and fleets
type SimulationConfig struct {
	Zones         []incident.Zone `yaml:"zones"`
	ZonesFile     string          `yaml:"zones_file"`
	IncidentsFile string          `yaml:"incidents_file"`
	Scenario      string          `yaml:"scenario"`
	Fleets        []Fleet         `yaml:"fleets"`
	TimeUnit      time.Duration   `yaml:"time_unit"`
	RefillDelay   int             `yaml:"refill_delay"`
	RecoveryDelay int             `yaml:"recovery_delay"`
	Faults        Faults          `yaml:"faults"`
	RetryFailed   bool            `yaml:"retry_failed"`
	MaxRetries    int             `yaml:"max_retries"`
	ReplaySpeed   float64         `yaml:"replay_speed"`
	Trace         Trace           `yaml:"trace"`
	TickInterval  time.Duration   `yaml:"tick_interval"`
}

const (
	defaultTimeUnit      = 10 * time.Millisecond
	defaultTickInterval  = time.Second
	defaultFlushInterval = time.Second
	defaultMaxRetries    = 3
)

// Load loads YAML config and validates it against a CUE schema. Relative
// file references are resolved against the config file's directory.
func Load(configPath, cueSchemaPath string) (*SimulationConfig, error) {
	if cueSchemaPath != "" {
		if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.resolvePaths(filepath.Dir(configPath))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog.Debug("loaded configuration", "path", configPath, "fleets", len(cfg.Fleets), "zones", len(cfg.Zones))
	return cfg, nil
}

// Parse decodes YAML and applies defaults. It does not validate.
func Parse(data []byte) (*SimulationConfig, error) {
	var cfg SimulationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills unset timing fields.
func (c *SimulationConfig) ApplyDefaults() {
	if c.TimeUnit <= 0 {
		c.TimeUnit = defaultTimeUnit
	}
	if c.TickInterval <= 0 {
		c.TickInterval = defaultTickInterval
	}
	if c.Trace.FlushInterval <= 0 {
		c.Trace.FlushInterval = defaultFlushInterval
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.Faults.Mode == "" {
		c.Faults.Mode = "none"
	}
}

func (c *SimulationConfig) resolvePaths(base string) {
	for _, p := range []*string{&c.ZonesFile, &c.IncidentsFile, &c.Trace.Path} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
	// built-in scenario names stay as they are
	if strings.HasSuffix(c.Scenario, ".yaml") && !filepath.IsAbs(c.Scenario) {
		c.Scenario = filepath.Join(base, c.Scenario)
	}
}

// Validate performs the semantic checks the schema cannot express.
func (c *SimulationConfig) Validate() error {
	var errs []error
	if len(c.Zones) == 0 && c.ZonesFile == "" {
		errs = append(errs, errors.New("either zones or zones_file is required"))
	}
	if c.IncidentsFile == "" && c.Scenario == "" {
		errs = append(errs, errors.New("either incidents_file or scenario is required"))
	}
	if len(c.Fleets) == 0 {
		errs = append(errs, errors.New("at least one fleet is required"))
	}
	seen := map[int]bool{}
	for _, z := range c.Zones {
		if seen[z.ID] {
			errs = append(errs, fmt.Errorf("duplicate zone id %d", z.ID))
		}
		seen[z.ID] = true
	}
	for _, f := range c.Fleets {
		if f.Count <= 0 {
			errs = append(errs, fmt.Errorf("fleet %q: count must be positive", f.Name))
		}
		a := f.Attributes
		if a.TravelSpeed <= 0 || a.FlowRate <= 0 || a.MaxCapacity <= 0 {
			errs = append(errs, fmt.Errorf("fleet %q: travel_speed, flow_rate and max_capacity must be positive", f.Name))
		}
		if a.DrainPerTask < 0 || a.TakeoffSpeed < 0 {
			errs = append(errs, fmt.Errorf("fleet %q: negative attribute", f.Name))
		}
	}
	if c.RefillDelay < 0 || c.RecoveryDelay < 0 {
		errs = append(errs, errors.New("delays must not be negative"))
	}
	switch c.Faults.Mode {
	case "none", "random", "scripted":
	default:
		errs = append(errs, fmt.Errorf("unknown fault mode %q", c.Faults.Mode))
	}
	if c.Faults.Probability < 0 || c.Faults.Probability > 1 {
		errs = append(errs, fmt.Errorf("fault probability %v out of range", c.Faults.Probability))
	}
	if c.Faults.Mode == "scripted" && c.Faults.EveryNth <= 0 {
		errs = append(errs, errors.New("scripted faults need every_nth > 0"))
	}
	for _, k := range c.Faults.Kinds {
		if _, err := incident.ParseFaultKind(k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FaultKinds returns the configured kinds, all kinds when none are set.
func (c *SimulationConfig) FaultKinds() []incident.FaultKind {
	if len(c.Faults.Kinds) == 0 {
		return incident.FaultKinds
	}
	kinds := make([]incident.FaultKind, 0, len(c.Faults.Kinds))
	for _, k := range c.Faults.Kinds {
		if fk, err := incident.ParseFaultKind(k); err == nil {
			kinds = append(kinds, fk)
		}
	}
	return kinds
}

// DroneCount returns the number of drones over all fleets.
func (c *SimulationConfig) DroneCount() int {
	n := 0
	for _, f := range c.Fleets {
		n += f.Count
	}
	return n
}
