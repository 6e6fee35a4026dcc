// Status structs with greptime tags
package telemetry

import (
	"os"
	"time"
)

// StatusRow represents one drone status record for GreptimeDB.
type StatusRow struct {
	ClusterID  string    `json:"cluster_id"`            // TAG
	DroneID    string    `json:"drone_id"`              // TAG
	Fleet      string    `json:"fleet"`                 // TAG
	State      string    `json:"state"`                 // FIELD
	Volume     float64   `json:"volume"`                // FIELD
	Capacity   float64   `json:"capacity"`              // FIELD
	X          float64   `json:"x"`                     // FIELD
	Y          float64   `json:"y"`                     // FIELD
	IncidentID string    `json:"incident_id,omitempty"` // FIELD
	ZoneID     int       `json:"zone_id,omitempty"`     // FIELD
	Tasks      int       `json:"tasks"`                 // FIELD
	Faults     int       `json:"faults"`                // FIELD
	TravelLegs int       `json:"travel_legs"`           // FIELD
	Status     string    `json:"status"`                // FIELD
	Timestamp  time.Time `json:"ts"`                    // TIME INDEX
}

// StatusTableName holds the table name used when writing to GreptimeDB.
// It defaults to "drone_status" but can be overridden via the
// GREPTIMEDB_TABLE environment variable.
var StatusTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "drone_status"
}()

// GreptimeDB tables for the other record kinds.
const (
	ResponseTableName = "drone_responses"
	FaultTableName    = "drone_faults"
	StateTableName    = "simulation_state"
)

func (StatusRow) TableName() string {
	return StatusTableName
}

// Drone status constants.
const (
	StatusOK        = "ok"
	StatusLowVolume = "low_volume"
	StatusFaulted   = "faulted"
)
