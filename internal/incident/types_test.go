package incident

import (
	"testing"
	"time"
)

func TestRequiredVolume(t *testing.T) {
	cases := map[Severity]float64{
		SeverityHigh:     15,
		SeverityModerate: 10,
		SeverityLow:      5,
		SeverityOut:      0,
	}
	for sev, want := range cases {
		if got := sev.RequiredVolume(); got != want {
			t.Errorf("RequiredVolume(%s)=%v, want %v", sev, got, want)
		}
	}
}

func TestParseSeverity(t *testing.T) {
	for in, want := range map[string]Severity{"High": SeverityHigh, "moderate": SeverityModerate, " LOW ": SeverityLow, "out": SeverityOut} {
		got, err := ParseSeverity(in)
		if err != nil || got != want {
			t.Errorf("ParseSeverity(%q)=%v,%v want %v", in, got, err, want)
		}
	}
	if _, err := ParseSeverity("extreme"); err == nil {
		t.Fatalf("expected error for unknown severity")
	}
}

func TestZoneDistance(t *testing.T) {
	z := Zone{ID: 1, Start: Point{0, 0}, End: Point{700, 600}}
	if got := z.Distance(); got != 600 {
		t.Fatalf("distance = %v, want 600", got)
	}
	if c := z.Center(); c.X != 350 || c.Y != 300 {
		t.Fatalf("unexpected center %+v", c)
	}
}

func TestResolveLeavesOriginal(t *testing.T) {
	inc := New(14*time.Hour+3*time.Minute+15*time.Second, Zone{ID: 3}, FireDetected, SeverityHigh)
	res := inc.Resolve()
	if !res.Resolved() || inc.Resolved() {
		t.Fatalf("resolve should only affect the copy: %v / %v", inc.Severity, res.Severity)
	}
	if res.ID != inc.ID {
		t.Fatalf("resolve changed id")
	}
	if inc.Clock() != "14:03:15" {
		t.Fatalf("clock = %s", inc.Clock())
	}
}

func TestFaultRecordTransport(t *testing.T) {
	rec := FaultRecord{
		Timestamp: time.Unix(10, 0).UTC(),
		Kind:      FaultMechanismJam,
		DroneID:   "d1",
		Incident:  New(time.Minute, Zone{ID: 2}, DroneRequest, SeverityLow),
	}
	b, err := rec.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := UnmarshalFault(b)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Kind != rec.Kind || got.DroneID != rec.DroneID || got.Incident.ID != rec.Incident.ID || !got.Timestamp.Equal(rec.Timestamp) {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, rec)
	}
	if _, err := UnmarshalFault([]byte("{")); err == nil {
		t.Fatalf("expected decode error")
	}
}
