package sim

import (
	"fireops-sim/internal/incident"
	"fireops-sim/internal/telemetry"
)

// StatusWriter is an interface to support different output writers.
type StatusWriter interface {
	Write(telemetry.StatusRow) error
}

// Optional: Writers can also support batch mode
type batchWriter interface {
	WriteBatch([]telemetry.StatusRow) error
}

// ResponseWriter records drone responses drained from the dispatcher.
type ResponseWriter interface {
	WriteResponse(incident.Response) error
}

// FaultWriter records injected drone faults.
type FaultWriter interface {
	WriteFault(incident.FaultRecord) error
}

// Writer is implemented by every output backend.
type Writer interface {
	StatusWriter
	ResponseWriter
	FaultWriter
}

// chaosToggleWriter is implemented by interactive writers that can switch
// fault injection.
type chaosToggleWriter interface {
	SetChaosToggler(func() bool)
}
