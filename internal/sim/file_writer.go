package sim

import (
	"encoding/json"
	"errors"
	"os"
	"sync"

	"fireops-sim/internal/incident"
	"fireops-sim/internal/telemetry"
)

// FileWriter writes responses, status rows, faults and state to JSONL files.
// The response log is what the replay command reads back.
type FileWriter struct {
	mu       sync.Mutex
	files    []*os.File
	respEnc  *json.Encoder
	statEnc  *json.Encoder
	faultEnc *json.Encoder
	stateEnc *json.Encoder
}

// NewFileWriter creates a FileWriter. statusPath, faultPath or statePath may
// be empty to skip those logs.
func NewFileWriter(responsePath, statusPath, faultPath, statePath string) (*FileWriter, error) {
	fw := &FileWriter{}
	for _, out := range []struct {
		path string
		enc  **json.Encoder
	}{
		{responsePath, &fw.respEnc},
		{statusPath, &fw.statEnc},
		{faultPath, &fw.faultEnc},
		{statePath, &fw.stateEnc},
	} {
		if out.path == "" {
			continue
		}
		f, err := os.Create(out.path)
		if err != nil {
			fw.Close()
			return nil, err
		}
		fw.files = append(fw.files, f)
		*out.enc = json.NewEncoder(f)
	}
	return fw, nil
}

func (f *FileWriter) encode(enc *json.Encoder, v any) error {
	if enc == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return enc.Encode(v)
}

// Write logs a single status row, if enabled.
func (f *FileWriter) Write(row telemetry.StatusRow) error {
	return f.encode(f.statEnc, row)
}

// WriteBatch logs multiple status rows.
func (f *FileWriter) WriteBatch(rows []telemetry.StatusRow) error {
	for _, r := range rows {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteResponse logs a drone response.
func (f *FileWriter) WriteResponse(r incident.Response) error {
	return f.encode(f.respEnc, r)
}

// WriteFault logs a fault record, if enabled.
func (f *FileWriter) WriteFault(rec incident.FaultRecord) error {
	return f.encode(f.faultEnc, rec)
}

// WriteState logs a simulation state row, if enabled.
func (f *FileWriter) WriteState(row telemetry.SimulationStateRow) error {
	return f.encode(f.stateEnc, row)
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var errs []error
	for _, file := range f.files {
		errs = append(errs, file.Close())
	}
	f.files = nil
	return errors.Join(errs...)
}
