// Package scenario generates synthetic incident feeds from phased wave
// definitions.
package scenario

import (
	"fmt"
	"math/rand"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"fireops-sim/internal/feed"
	"fireops-sim/internal/incident"
)

// Scenario defines an incident scenario with ordered phases and an overall description.
type Scenario struct {
	Name        string  `yaml:"name,omitempty"`
	Description string  `yaml:"description,omitempty"`
	Start       string  `yaml:"start,omitempty"` // HH:MM:SS of the first phase
	Seed        int64   `yaml:"seed,omitempty"`
	Phases      []Phase `yaml:"phases"`
}

// Phase is a stretch of detection time with its own waves of incidents.
type Phase struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Duration    time.Duration `yaml:"duration"`
	Waves       []Wave        `yaml:"waves,omitempty"`
}

// Wave emits Count incidents Interval apart from the phase start. Zones are
// used round-robin; an empty list means every zone. Severity "random" picks
// HIGH, MODERATE or LOW with the scenario seed.
type Wave struct {
	Zones    []int         `yaml:"zones,omitempty"`
	Count    int           `yaml:"count"`
	Interval time.Duration `yaml:"interval"`
	Type     string        `yaml:"type"`
	Severity string        `yaml:"severity"`
}

// Load reads a YAML scenario definition from disk.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return &s, nil
}

// Resolve returns the built-in scenario called nameOrPath, or loads it from disk.
func Resolve(nameOrPath string) (*Scenario, error) {
	if s, ok := BuiltIn()[nameOrPath]; ok {
		return &s, nil
	}
	return Load(nameOrPath)
}

var activeSeverities = []incident.Severity{incident.SeverityHigh, incident.SeverityModerate, incident.SeverityLow}

// Generate expands the phases into incidents ordered by detection time.
func (s *Scenario) Generate(zones []incident.Zone) ([]incident.Incident, error) {
	if len(zones) == 0 {
		return nil, feed.ErrNoZones
	}
	byID := make(map[int]incident.Zone, len(zones))
	for _, z := range zones {
		byID[z.ID] = z
	}
	var offset time.Duration
	if s.Start != "" {
		start, err := feed.ParseClock(s.Start)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		offset = start
	}
	rng := rand.New(rand.NewSource(s.Seed))

	var out []incident.Incident
	for _, p := range s.Phases {
		for wi, w := range p.Waves {
			typ, err := incident.ParseEventType(w.Type)
			if err != nil {
				return nil, fmt.Errorf("phase %s wave %d: %w", p.Name, wi, err)
			}
			targets, err := waveZones(w, zones, byID)
			if err != nil {
				return nil, fmt.Errorf("phase %s wave %d: %w", p.Name, wi, err)
			}
			for i := 0; i < w.Count; i++ {
				sev, err := pickSeverity(w.Severity, rng)
				if err != nil {
					return nil, fmt.Errorf("phase %s wave %d: %w", p.Name, wi, err)
				}
				at := offset + time.Duration(i)*w.Interval
				out = append(out, incident.New(at, targets[i%len(targets)], typ, sev))
			}
		}
		offset += p.Duration
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

func waveZones(w Wave, all []incident.Zone, byID map[int]incident.Zone) ([]incident.Zone, error) {
	if len(w.Zones) == 0 {
		return all, nil
	}
	out := make([]incident.Zone, 0, len(w.Zones))
	for _, id := range w.Zones {
		z, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown zone %d", id)
		}
		out = append(out, z)
	}
	return out, nil
}

func pickSeverity(s string, rng *rand.Rand) (incident.Severity, error) {
	if s == "" || s == "random" {
		return activeSeverities[rng.Intn(len(activeSeverities))], nil
	}
	return incident.ParseSeverity(s)
}
