package sim

import (
	"errors"

	"fireops-sim/internal/incident"
	"fireops-sim/internal/telemetry"
)

// MultiWriter fans out status rows, responses and faults to multiple writers.
// A failing writer does not stop the others; errors are joined.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(ws ...Writer) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// Write sends a status row to all writers.
func (mw *MultiWriter) Write(row telemetry.StatusRow) error {
	var errs []error
	for _, w := range mw.writers {
		errs = append(errs, w.Write(row))
	}
	return errors.Join(errs...)
}

// WriteBatch sends multiple status rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(rows []telemetry.StatusRow) error {
	var errs []error
	for _, w := range mw.writers {
		if bw, ok := w.(batchWriter); ok {
			errs = append(errs, bw.WriteBatch(rows))
			continue
		}
		for _, r := range rows {
			errs = append(errs, w.Write(r))
		}
	}
	return errors.Join(errs...)
}

// WriteResponse sends a response to all writers.
func (mw *MultiWriter) WriteResponse(r incident.Response) error {
	var errs []error
	for _, w := range mw.writers {
		errs = append(errs, w.WriteResponse(r))
	}
	return errors.Join(errs...)
}

// WriteFault sends a fault record to all writers.
func (mw *MultiWriter) WriteFault(f incident.FaultRecord) error {
	var errs []error
	for _, w := range mw.writers {
		errs = append(errs, w.WriteFault(f))
	}
	return errors.Join(errs...)
}

// WriteState forwards state rows to writers that accept them.
func (mw *MultiWriter) WriteState(row telemetry.SimulationStateRow) error {
	var errs []error
	for _, w := range mw.writers {
		if sw, ok := w.(StateWriter); ok {
			errs = append(errs, sw.WriteState(row))
		}
	}
	return errors.Join(errs...)
}

// SetAdminStatus forwards the admin UI status to writers that display it.
func (mw *MultiWriter) SetAdminStatus(listening bool) {
	for _, w := range mw.writers {
		if aw, ok := w.(AdminStatusWriter); ok {
			aw.SetAdminStatus(listening)
		}
	}
}

// SetChaosToggler forwards the fault toggle to writers that offer it.
func (mw *MultiWriter) SetChaosToggler(fn func() bool) {
	for _, w := range mw.writers {
		if cw, ok := w.(chaosToggleWriter); ok {
			cw.SetChaosToggler(fn)
		}
	}
}
