package feed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fireops-sim/internal/incident"
	"fireops-sim/internal/queue"
)

const zoneCSV = `ZoneID,ZoneStart,ZoneEnd
1,(0;0),(700;600)
2,(0;600),(650;1500)
`

func TestParseZones(t *testing.T) {
	zones, err := ParseZones(strings.NewReader(zoneCSV))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(zones) != 2 {
		t.Fatalf("expected 2 zones, got %d", len(zones))
	}
	want := incident.Zone{ID: 1, Start: incident.Point{X: 0, Y: 0}, End: incident.Point{X: 700, Y: 600}}
	if zones[0] != want {
		t.Fatalf("zone 1 = %+v", zones[0])
	}
	if zones[1].End.Y != 1500 {
		t.Fatalf("zone 2 end = %+v", zones[1].End)
	}
}

func TestParseZonesErrors(t *testing.T) {
	cases := map[string]string{
		"empty":     "ZoneID,ZoneStart,ZoneEnd\n",
		"bad point": "1,(0-0),(1;1)\n",
		"bad id":    "ZoneID,ZoneStart,ZoneEnd\nx,(0;0),(1;1)\n",
		"short row": "1,(0;0)\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseZones(strings.NewReader(in)); err == nil {
				t.Fatalf("expected error for %q", in)
			}
		})
	}
	if _, err := ParseZones(strings.NewReader(cases["empty"])); !errors.Is(err, ErrNoZones) {
		t.Fatalf("expected ErrNoZones, got %v", err)
	}
}

func TestParseIncidentsSkipsMalformedLines(t *testing.T) {
	zones, _ := ParseZones(strings.NewReader(zoneCSV))
	in := strings.Join([]string{
		"Time Zone_ID Event_type Severity",
		"14:03:15 1 FIRE_DETECTED High",
		"14:10:00\t2\tDRONE_REQUEST\tModerate",
		"14:11:00 9 FIRE_DETECTED Low",
		"garbage",
		"14:12:00 2 FIRE_DETECTED Extreme",
		"",
		"14:20:05 1 FIRE_DETECTED low",
	}, "\n")
	incs, skipped, err := ParseIncidents(context.Background(), strings.NewReader(in), zones)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(incs) != 3 || skipped != 3 {
		t.Fatalf("got %d incidents, %d skipped", len(incs), skipped)
	}
	first := incs[0]
	if first.Clock() != "14:03:15" || first.ZoneID != 1 || first.Type != incident.FireDetected || first.Severity != incident.SeverityHigh {
		t.Fatalf("unexpected first incident %+v", first)
	}
	if first.Zone.End.Y != 600 {
		t.Fatalf("incident should carry its zone, got %+v", first.Zone)
	}
	if incs[1].Type != incident.DroneRequest || incs[1].Severity != incident.SeverityModerate {
		t.Fatalf("unexpected second incident %+v", incs[1])
	}
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	zp := filepath.Join(dir, "zones.csv")
	ip := filepath.Join(dir, "incidents.txt")
	if err := os.WriteFile(zp, []byte(zoneCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ip, []byte("00:00:01 2 FIRE_DETECTED High\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	zones, err := LoadZones(zp)
	if err != nil {
		t.Fatalf("zones: %v", err)
	}
	incs, _, err := LoadIncidents(context.Background(), ip, zones)
	if err != nil || len(incs) != 1 {
		t.Fatalf("incidents: %v %d", err, len(incs))
	}
	if _, err := LoadZones(filepath.Join(dir, "missing.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestReplayKeepsOrderAndHonoursSpeed(t *testing.T) {
	z := incident.Zone{ID: 1}
	incs := []incident.Incident{
		incident.New(10*time.Second, z, incident.FireDetected, incident.SeverityLow),
		incident.New(11*time.Second, z, incident.FireDetected, incident.SeverityHigh),
		incident.New(12*time.Second, z, incident.DroneRequest, incident.SeverityModerate),
	}
	backlog := queue.New[incident.Incident]()
	start := time.Now()
	n, err := Replay(context.Background(), incs, backlog, 100)
	if err != nil || n != 3 {
		t.Fatalf("replay: %d %v", n, err)
	}
	if el := time.Since(start); el < 15*time.Millisecond {
		t.Fatalf("replay did not wait between incidents: %s", el)
	}
	for i := range incs {
		got, ok := backlog.TryPop()
		if !ok || got.ID != incs[i].ID {
			t.Fatalf("item %d out of order", i)
		}
	}
}

func TestReplayStopsOnCancel(t *testing.T) {
	z := incident.Zone{ID: 1}
	incs := []incident.Incident{
		incident.New(0, z, incident.FireDetected, incident.SeverityLow),
		incident.New(time.Hour, z, incident.FireDetected, incident.SeverityLow),
	}
	backlog := queue.New[incident.Incident]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	n, err := Replay(ctx, incs, backlog, 1)
	if !errors.Is(err, context.DeadlineExceeded) || n != 1 {
		t.Fatalf("expected interruption after first incident, got %d %v", n, err)
	}
}
