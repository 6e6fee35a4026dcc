package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"fireops-sim/internal/config"
	"fireops-sim/internal/incident"
	"fireops-sim/internal/sim"
	"fireops-sim/internal/telemetry"
)

func isStdout(w sim.Writer) bool {
	switch w.(type) {
	case *sim.JSONStdoutWriter, *sim.ColorStdoutWriter:
		return true
	}
	return false
}

func TestNewWritersPrintOnly(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "localhost:4001")
	w, cleanup, err := newWriters(&config.SimulationConfig{}, true, false, "")
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if !isStdout(w) {
		t.Fatalf("expected a stdout writer, got %T", w)
	}
}

func TestNewWritersGreptimeFallback(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	w, cleanup, err := newWriters(&config.SimulationConfig{}, false, false, "")
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if !isStdout(w) {
		t.Fatalf("expected a stdout writer, got %T", w)
	}
}

func TestNewWritersLogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "responses.log")
	w, cleanup, err := newWriters(&config.SimulationConfig{}, true, false, path)
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	if _, ok := w.(*sim.MultiWriter); !ok {
		t.Fatalf("expected *sim.MultiWriter, got %T", w)
	}
	resp := incident.Response{ClusterID: "c1", DroneID: "d1", Kind: incident.ResponseSuccess, Timestamp: time.Now()}
	if err := w.WriteResponse(resp); err != nil {
		t.Fatalf("write response failed: %v", err)
	}
	sw, ok := w.(sim.StateWriter)
	if !ok {
		t.Fatalf("writer does not implement StateWriter")
	}
	if err := sw.WriteState(telemetry.SimulationStateRow{ClusterID: "c1", Backlog: 2, Timestamp: time.Now()}); err != nil {
		t.Fatalf("write state failed: %v", err)
	}
	cleanup()

	for _, p := range []string{path, path + ".state"} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s failed: %v", p, err)
		}
		if info.Size() == 0 {
			t.Fatalf("expected %s to be non-empty", p)
		}
	}
}

func TestNewWritersBadLogDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "responses.log")
	if _, _, err := newWriters(&config.SimulationConfig{}, true, false, path); err == nil {
		t.Fatal("expected error for unwritable log path")
	}
}
