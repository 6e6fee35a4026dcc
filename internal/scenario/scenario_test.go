package scenario

import (
	"testing"
	"time"

	"fireops-sim/internal/incident"
)

var testZones = []incident.Zone{
	{ID: 1, End: incident.Point{X: 700, Y: 600}},
	{ID: 2, Start: incident.Point{Y: 600}, End: incident.Point{X: 650, Y: 1500}},
}

func TestLoadScenario(t *testing.T) {
	sc, err := Load("testdata/simple.yaml")
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if sc.Name != "example" {
		t.Fatalf("unexpected name %s", sc.Name)
	}
	if sc.Description != "basic test scenario" {
		t.Fatalf("unexpected description %s", sc.Description)
	}
	if len(sc.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(sc.Phases))
	}
	if sc.Phases[0].Duration != 10*time.Minute || sc.Phases[1].Waves[0].Interval != 30*time.Second {
		t.Fatalf("durations not decoded: %+v", sc.Phases)
	}
}

func TestGenerateOrdersByTime(t *testing.T) {
	sc, err := Load("testdata/simple.yaml")
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	incs, err := sc.Generate(testZones)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(incs) != 5 {
		t.Fatalf("expected 5 incidents, got %d", len(incs))
	}
	wantClock := []string{"10:00:00", "10:01:00", "10:10:00", "10:10:30", "10:11:00"}
	wantZone := []int{2, 2, 1, 2, 1}
	for i, inc := range incs {
		if inc.Clock() != wantClock[i] || inc.ZoneID != wantZone[i] {
			t.Fatalf("incident %d = %s zone %d", i, inc.Clock(), inc.ZoneID)
		}
	}
	if incs[2].Type != incident.DroneRequest || incs[2].Severity != incident.SeverityHigh {
		t.Fatalf("unexpected flare-up incident %+v", incs[2])
	}
}

func TestGenerateErrors(t *testing.T) {
	cases := map[string]Scenario{
		"unknown zone": {Phases: []Phase{{Waves: []Wave{{Zones: []int{9}, Count: 1, Type: "FIRE_DETECTED", Severity: "LOW"}}}}},
		"bad type":     {Phases: []Phase{{Waves: []Wave{{Count: 1, Type: "SMOKE", Severity: "LOW"}}}}},
		"bad severity": {Phases: []Phase{{Waves: []Wave{{Count: 1, Type: "FIRE_DETECTED", Severity: "EXTREME"}}}}},
		"bad start":    {Start: "25:99", Phases: []Phase{}},
	}
	for name, sc := range cases {
		if _, err := sc.Generate(testZones); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := (&Scenario{}).Generate(nil); err == nil {
		t.Error("expected error without zones")
	}
}

func TestBuiltInScenarios(t *testing.T) {
	for name, sc := range BuiltIn() {
		if sc.Description == "" {
			t.Fatalf("scenario %s missing description", name)
		}
		incs, err := sc.Generate(testZones)
		if err != nil {
			t.Fatalf("scenario %s: %v", name, err)
		}
		if len(incs) == 0 {
			t.Fatalf("scenario %s generated nothing", name)
		}
		for _, inc := range incs {
			if inc.Resolved() {
				t.Fatalf("scenario %s generated a resolved incident", name)
			}
		}
	}
	single, err := Resolve("single-high")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	incs, _ := single.Generate(testZones)
	if len(incs) != 1 || incs[0].Severity != incident.SeverityHigh || incs[0].ZoneID != 1 {
		t.Fatalf("unexpected single-high feed %+v", incs)
	}
	if _, err := Resolve("testdata/missing.yaml"); err == nil {
		t.Fatal("expected error for missing scenario file")
	}
}
