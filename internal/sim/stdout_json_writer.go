package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"fireops-sim/internal/incident"
	"fireops-sim/internal/telemetry"
)

// JSONStdoutWriter prints status rows, responses and faults as JSON lines.
// Every line carries a "type" field so the stream can be split again.
type JSONStdoutWriter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func (w *JSONStdoutWriter) emit(kind string, v any) error {
	data, err := json.Marshal(envelope{Type: kind, Data: v})
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// Write outputs a status row in JSON format.
func (w *JSONStdoutWriter) Write(row telemetry.StatusRow) error {
	return w.emit("status", row)
}

// WriteBatch outputs multiple status rows in JSON format.
func (w *JSONStdoutWriter) WriteBatch(rows []telemetry.StatusRow) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteResponse outputs a drone response in JSON format.
func (w *JSONStdoutWriter) WriteResponse(r incident.Response) error {
	return w.emit("response", r)
}

// WriteFault outputs a fault record in JSON format.
func (w *JSONStdoutWriter) WriteFault(f incident.FaultRecord) error {
	return w.emit("fault", f)
}

// WriteState outputs simulation state metrics in JSON format.
func (w *JSONStdoutWriter) WriteState(row telemetry.SimulationStateRow) error {
	return w.emit("state", row)
}
