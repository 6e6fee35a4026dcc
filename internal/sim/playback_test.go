package sim

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"fireops-sim/internal/incident"
)

type collectWriter struct{ responses []incident.Response }

func (c *collectWriter) WriteResponse(r incident.Response) error {
	c.responses = append(c.responses, r)
	return nil
}

func encodeResponses(t *testing.T, resps []incident.Response) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range resps {
		if err := enc.Encode(r); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	return &buf
}

func TestReplayLog(t *testing.T) {
	resps := []incident.Response{
		{DroneID: "d1", Kind: incident.ResponseSuccess, Timestamp: time.Unix(0, 0)},
		{DroneID: "d2", Kind: incident.ResponseFailure, Timestamp: time.Unix(1, 0)},
	}
	cw := &collectWriter{}
	n, err := ReplayLog(context.Background(), encodeResponses(t, resps), cw, 0)
	if err != nil {
		t.Fatalf("ReplayLog: %v", err)
	}
	if n != len(resps) || len(cw.responses) != len(resps) {
		t.Fatalf("expected %d responses, got %d", len(resps), len(cw.responses))
	}
	for i, r := range resps {
		if cw.responses[i].DroneID != r.DroneID || cw.responses[i].Kind != r.Kind {
			t.Fatalf("response %d mismatch: %+v vs %+v", i, cw.responses[i], r)
		}
	}
}

func TestReplayLogStopsOnCancel(t *testing.T) {
	resps := []incident.Response{
		{DroneID: "d1", Timestamp: time.Unix(0, 0)},
		{DroneID: "d2", Timestamp: time.Unix(3600, 0)},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cw := &collectWriter{}
	n, err := ReplayLog(ctx, encodeResponses(t, resps), cw, 1)
	if err == nil {
		t.Fatal("expected context error")
	}
	if n != 1 {
		t.Fatalf("replayed %d responses before cancel, want 1", n)
	}
}

func TestReplayLogRejectsGarbage(t *testing.T) {
	_, err := ReplayLog(context.Background(), bytes.NewBufferString("{not json"), &collectWriter{}, 0)
	if err == nil {
		t.Fatal("expected decode error")
	}
}
