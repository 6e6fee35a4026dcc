package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestFlusherWritesAllLinesOnClose(t *testing.T) {
	sink := NewSink()
	buf := &syncBuffer{}
	fl := NewFlusher(sink, buf, 10*time.Millisecond)

	sink.Emit("Drone d1", "en route to zone 3")
	sink.Emit("Scheduler", "incident claimed")

	done := make(chan error, 1)
	go func() { done <- fl.Run(context.Background()) }()

	sink.Emit("Drone d1", "returning")
	sink.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("flusher did not stop after close")
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if entry["role"] != "Drone d1" || entry["message"] != "en route to zone 3" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if fl.Written() != 3 {
		t.Fatalf("written = %d", fl.Written())
	}
}

func TestFlusherFlushesPeriodically(t *testing.T) {
	sink := NewSink()
	buf := &syncBuffer{}
	fl := NewFlusher(sink, buf, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fl.Run(ctx)

	sink.Emit("Drone d2", "refilling")
	deadline := time.Now().Add(time.Second)
	for !strings.Contains(buf.String(), "refilling") {
		if time.Now().After(deadline) {
			t.Fatal("line was not flushed while running")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestOpenFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	sink := NewSink()
	fl, err := OpenFile(sink, path, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	sink.Emit("Drone d3", "idle")
	sink.Close()
	if err := fl.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "idle") {
		t.Fatalf("trace file missing line: %q", b)
	}
	if sink.Backlog() != 0 {
		t.Fatalf("backlog not drained")
	}
}
