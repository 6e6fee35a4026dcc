package sim

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"fireops-sim/internal/config"
	"fireops-sim/internal/incident"
	"fireops-sim/internal/telemetry"
)

func TestJSONStdoutWriterEnvelopes(t *testing.T) {
	buf := &bytes.Buffer{}
	w := &JSONStdoutWriter{out: buf}
	if err := w.Write(telemetry.StatusRow{ClusterID: "c1", DroneID: "d1", Timestamp: time.Unix(0, 0)}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := w.WriteResponse(incident.Response{DroneID: "d1", Kind: incident.ResponseSuccess}); err != nil {
		t.Fatalf("response failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	var env struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != "response" {
		t.Fatalf("type = %q, want response", env.Type)
	}
}

func TestNewStdoutWriterPicksBackend(t *testing.T) {
	switch w := NewStdoutWriter(&config.SimulationConfig{}).(type) {
	case *JSONStdoutWriter, *ColorStdoutWriter:
	default:
		t.Fatalf("unexpected writer %T", w)
	}
}

func TestColorStdoutWriterOverviewOnce(t *testing.T) {
	cfg := &config.SimulationConfig{
		Fleets: []config.Fleet{{Name: "heavy", Count: 2, Attributes: config.Attributes{TravelSpeed: 12, FlowRate: 1.25, MaxCapacity: 15}}},
	}
	cfg.ApplyDefaults()
	buf := &bytes.Buffer{}
	w := NewColorStdoutWriter(cfg)
	w.out = buf
	row := telemetry.StatusRow{ClusterID: "c1", DroneID: "d1", Fleet: "heavy", State: "IDLE", Status: telemetry.StatusOK, Timestamp: time.Unix(0, 0)}
	if err := w.Write(row); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "Simulation Configuration:") || !strings.Contains(output, "Fleets:") {
		t.Fatalf("overview not printed: %q", output)
	}
	if !strings.Contains(output, "\x1b[") {
		t.Fatalf("expected color codes in output: %q", output)
	}

	buf.Reset()
	if err := w.WriteFault(incident.FaultRecord{DroneID: "d1", Kind: incident.FaultStuckInFlight}); err != nil {
		t.Fatalf("fault write failed: %v", err)
	}
	if strings.Contains(buf.String(), "Simulation Configuration:") {
		t.Fatalf("overview printed more than once")
	}
	if !strings.Contains(buf.String(), "FAULT") {
		t.Fatalf("fault line missing: %q", buf.String())
	}
}
