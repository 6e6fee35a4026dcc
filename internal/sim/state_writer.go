package sim

import "fireops-sim/internal/telemetry"

// StateWriter handles simulation state rows.
type StateWriter interface {
	WriteState(telemetry.SimulationStateRow) error
}
