package telemetry

import (
	"testing"
	"time"

	"fireops-sim/internal/drone"
	"fireops-sim/internal/fsm"
	"fireops-sim/internal/incident"
)

func TestGenerateStatus(t *testing.T) {
	gen := NewGenerator("cluster-1")
	snap := drone.Snapshot{
		ID:         "heavy-0",
		Fleet:      "heavy",
		State:      fsm.EnRoute,
		Volume:     15,
		Capacity:   15,
		Location:   incident.Point{X: 350, Y: 300},
		IncidentID: "inc-1",
		ZoneID:     1,
		TravelLegs: 1,
	}

	row := gen.GenerateStatus(snap)

	if row.ClusterID != "cluster-1" {
		t.Errorf("expected cluster-1, got %s", row.ClusterID)
	}
	if row.DroneID != "heavy-0" || row.Fleet != "heavy" {
		t.Errorf("unexpected identity %+v", row)
	}
	if row.State != "EN_ROUTE" || row.X != 350 || row.Y != 300 || row.IncidentID != "inc-1" {
		t.Errorf("snapshot not copied: %+v", row)
	}
	if row.Status != StatusOK {
		t.Errorf("expected ok, got %s", row.Status)
	}
	if time.Since(row.Timestamp) > 1*time.Second {
		t.Errorf("timestamp too old: %v", row.Timestamp)
	}
}

func TestStatusDerivation(t *testing.T) {
	cases := []struct {
		name string
		snap drone.Snapshot
		want string
	}{
		{"full", drone.Snapshot{State: fsm.Idle, Volume: 10, Capacity: 10}, StatusOK},
		{"low", drone.Snapshot{State: fsm.Returning, Volume: 2, Capacity: 10}, StatusLowVolume},
		{"empty", drone.Snapshot{State: fsm.Returning, Volume: 0, Capacity: 10}, StatusLowVolume},
		{"faulted", drone.Snapshot{State: fsm.Faulted, Volume: 10, Capacity: 10}, StatusFaulted},
	}
	for _, tc := range cases {
		if got := status(tc.snap); got != tc.want {
			t.Errorf("%s: status = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestStatusRowTableName(t *testing.T) {
	orig := StatusTableName
	StatusTableName = "custom"
	defer func() { StatusTableName = orig }()
	if (StatusRow{}).TableName() != "custom" {
		t.Errorf("expected custom table name, got %s", (StatusRow{}).TableName())
	}
}
