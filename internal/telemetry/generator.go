package telemetry

import (
	"time"

	"fireops-sim/internal/drone"
	"fireops-sim/internal/fsm"
)

// lowVolumeRatio is the tank fill level below which a drone reports low volume.
const lowVolumeRatio = 0.2

// Generator turns drone snapshots into status rows for a cluster.
type Generator struct {
	ClusterID string
	now       func() time.Time
}

// NewGenerator creates a new status generator for a given cluster.
func NewGenerator(clusterID string) *Generator {
	return &Generator{ClusterID: clusterID, now: time.Now}
}

// GenerateStatus returns a StatusRow ready for DB write.
func (g *Generator) GenerateStatus(s drone.Snapshot) StatusRow {
	return StatusRow{
		ClusterID:  g.ClusterID,
		DroneID:    s.ID,
		Fleet:      s.Fleet,
		State:      string(s.State),
		Volume:     s.Volume,
		Capacity:   s.Capacity,
		X:          s.Location.X,
		Y:          s.Location.Y,
		IncidentID: s.IncidentID,
		ZoneID:     s.ZoneID,
		Tasks:      s.Tasks,
		Faults:     s.Faults,
		TravelLegs: s.TravelLegs,
		Status:     status(s),
		Timestamp:  g.now().UTC(),
	}
}

func status(s drone.Snapshot) string {
	switch {
	case s.State == fsm.Faulted:
		return StatusFaulted
	case s.Capacity > 0 && s.Volume <= s.Capacity*lowVolumeRatio:
		return StatusLowVolume
	default:
		return StatusOK
	}
}
