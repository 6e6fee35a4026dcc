package scenario

import "time"

// BuiltIn returns predefined incident scenarios.
func BuiltIn() map[string]Scenario {
	return map[string]Scenario{
		"single-high": {
			Name:        "Single High",
			Description: "One high severity fire in the first zone; the reference round trip.",
			Start:       "13:00:00",
			Phases: []Phase{{
				Name:  "ignition",
				Waves: []Wave{{Zones: []int{1}, Count: 1, Type: "FIRE_DETECTED", Severity: "HIGH"}},
			}},
		},
		"wildfire-season": {
			Name:        "Wildfire Season",
			Description: "Scattered low fires build into simultaneous high severity outbreaks.",
			Start:       "12:00:00",
			Seed:        11,
			Phases: []Phase{
				{
					Name:        "setup",
					Description: "Isolated smoke reports across the region.",
					Duration:    20 * time.Minute,
					Waves:       []Wave{{Count: 3, Interval: 5 * time.Minute, Type: "FIRE_DETECTED", Severity: "LOW"}},
				},
				{
					Name:        "escalation",
					Description: "Dry wind spreads fires and crews request support.",
					Duration:    30 * time.Minute,
					Waves: []Wave{
						{Count: 4, Interval: 5 * time.Minute, Type: "FIRE_DETECTED", Severity: "random"},
						{Count: 2, Interval: 10 * time.Minute, Type: "DRONE_REQUEST", Severity: "MODERATE"},
					},
				},
				{
					Name:        "climax",
					Description: "Several zones burn at once.",
					Duration:    15 * time.Minute,
					Waves:       []Wave{{Count: 4, Interval: time.Minute, Type: "FIRE_DETECTED", Severity: "HIGH"}},
				},
				{
					Name:        "resolution",
					Description: "Remaining hot spots are mopped up.",
					Waves:       []Wave{{Count: 2, Interval: 10 * time.Minute, Type: "DRONE_REQUEST", Severity: "LOW"}},
				},
			},
		},
		"storm-front": {
			Name:        "Storm Front",
			Description: "Lightning strikes ignite a burst of fires within minutes.",
			Start:       "18:30:00",
			Seed:        5,
			Phases: []Phase{
				{
					Name:        "strikes",
					Description: "Lightning ignites fires across every zone.",
					Duration:    10 * time.Minute,
					Waves:       []Wave{{Count: 8, Interval: 30 * time.Second, Type: "FIRE_DETECTED", Severity: "random"}},
				},
				{
					Name:        "aftermath",
					Description: "Ground crews call in drones for flare-ups.",
					Waves:       []Wave{{Count: 3, Interval: 5 * time.Minute, Type: "DRONE_REQUEST", Severity: "MODERATE"}},
				},
			},
		},
	}
}
