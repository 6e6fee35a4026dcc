package drone

import (
	"context"
	"slices"
	"testing"
	"time"

	"fireops-sim/internal/incident"
)

func TestRandomFaultsProbabilityBounds(t *testing.T) {
	never := NewRandomFaults(0, nil, 1)
	always := NewRandomFaults(1, []incident.FaultKind{incident.FaultStuckInFlight}, 1)
	for i := 1; i <= 50; i++ {
		if _, ok := never.Inject("d", i, incident.Incident{}); ok {
			t.Fatalf("probability 0 injected a fault on task %d", i)
		}
		kind, ok := always.Inject("d", i, incident.Incident{})
		if !ok || kind != incident.FaultStuckInFlight {
			t.Fatalf("probability 1 should always fault, got %q %v", kind, ok)
		}
	}
}

func TestRandomFaultsDefaultsToAllKinds(t *testing.T) {
	r := NewRandomFaults(1, nil, 42)
	for i := 0; i < 20; i++ {
		kind, _ := r.Inject("d", i, incident.Incident{})
		if !slices.Contains(incident.FaultKinds, kind) {
			t.Fatalf("unexpected kind %q", kind)
		}
	}
}

func TestScriptedFaultsEveryNth(t *testing.T) {
	s := ScriptedFaults{EveryNth: 3}
	var hits []int
	for task := 1; task <= 9; task++ {
		if kind, ok := s.Inject("d", task, incident.Incident{}); ok {
			if kind != incident.FaultMechanismJam {
				t.Fatalf("default kind = %q", kind)
			}
			hits = append(hits, task)
		}
	}
	if !slices.Equal(hits, []int{3, 6, 9}) {
		t.Fatalf("faulted tasks = %v", hits)
	}
}

func TestSwitchToggle(t *testing.T) {
	s := NewSwitch(ScriptedFaults{EveryNth: 1}, false)
	if _, ok := s.Inject("d", 1, incident.Incident{}); ok {
		t.Fatal("disabled switch injected")
	}
	if !s.Toggle() || !s.Enabled() {
		t.Fatal("toggle should enable")
	}
	if _, ok := s.Inject("d", 1, incident.Incident{}); !ok {
		t.Fatal("enabled switch did not inject")
	}
	s.SetEnabled(false)
	if s.Enabled() {
		t.Fatal("expected disabled")
	}
}

func TestScaledClockHonoursContext(t *testing.T) {
	c := ScaledClock{Unit: time.Hour}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	start := time.Now()
	if err := c.Sleep(ctx, 5); err == nil {
		t.Fatal("expected context error")
	}
	if time.Since(start) > time.Second {
		t.Fatal("sleep ignored cancellation")
	}
	if err := (ScaledClock{Unit: time.Millisecond}).Sleep(context.Background(), 2); err != nil {
		t.Fatalf("sleep: %v", err)
	}
}
