package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWithJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWith(&buf, "warn", "json")
	if err != nil {
		t.Fatalf("NewWith: %v", err)
	}
	l.Info("hidden")
	l.Warn("shown", "drone_id", "d1")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only the warning, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["msg"] != "shown" || entry["drone_id"] != "d1" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewWithRejectsBadInput(t *testing.T) {
	if _, err := NewWith(&bytes.Buffer{}, "loud", "text"); err == nil {
		t.Fatal("expected level error")
	}
	if _, err := NewWith(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Fatal("expected format error")
	}
}

func TestContextRoundTrip(t *testing.T) {
	l, _ := NewWith(&bytes.Buffer{}, "debug", "text")
	ctx := NewContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatal("logger not stored in context")
	}
	if FromContext(context.Background()) == nil {
		t.Fatal("expected default logger")
	}
}
