package telemetry

import "time"

// SimulationStateRow captures per-tick simulator state metrics.
type SimulationStateRow struct {
	ClusterID   string    `json:"cluster_id"`
	Backlog     int       `json:"backlog"`
	Outstanding int       `json:"outstanding"`
	Pending     bool      `json:"pending"`
	Submitted   int       `json:"submitted"`
	Resolved    int       `json:"resolved"`
	Failed      int       `json:"failed"`
	Retried     int       `json:"retried"`
	IdleDrones  int       `json:"idle_drones"`
	ChaosMode   bool      `json:"chaos_mode"`
	Timestamp   time.Time `json:"ts"`
}
