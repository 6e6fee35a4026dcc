// ColorStdoutWriter prints human-friendly, colorized activity to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"fireops-sim/internal/config"
	"fireops-sim/internal/incident"
	"fireops-sim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

// ColorStdoutWriter prints status rows and responses using ANSI colors.
type ColorStdoutWriter struct {
	cfg         *config.SimulationConfig
	out         io.Writer
	once        sync.Once
	mu          sync.Mutex
	fleetColors map[string]string
	colorIdx    int
}

var fleetPalette = []string{colorCyan, colorMagenta, colorBlue, colorYellow, colorGreen}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.SimulationConfig) *ColorStdoutWriter {
	return &ColorStdoutWriter{
		cfg:         cfg,
		out:         os.Stdout,
		fleetColors: make(map[string]string),
	}
}

func (w *ColorStdoutWriter) getFleetColor(name string) string {
	if c, ok := w.fleetColors[name]; ok {
		return c
	}
	c := fleetPalette[w.colorIdx%len(fleetPalette)]
	w.fleetColors[name] = c
	w.colorIdx++
	return c
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}

	fmt.Fprintln(w.out, "Simulation Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Time Unit:\t%s\n", w.cfg.TimeUnit)
	fmt.Fprintf(tw, "Refill Delay:\t%d\n", w.cfg.RefillDelay)
	fmt.Fprintf(tw, "Recovery Delay:\t%d\n", w.cfg.RecoveryDelay)
	fmt.Fprintf(tw, "Fault Mode:\t%s\n", w.cfg.Faults.Mode)
	fmt.Fprintf(tw, "Retry Failed:\t%t (max %d)\n", w.cfg.RetryFailed, w.cfg.MaxRetries)
	tw.Flush()

	fmt.Fprintln(w.out, "\nFleets:")
	tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name\tCount\tTravel\tFlow\tCapacity\n")
	for _, f := range w.cfg.Fleets {
		col := w.getFleetColor(f.Name)
		a := f.Attributes
		fmt.Fprintf(tw, "%s%s%s\t%d\t%.2f\t%.2f\t%.1f\n", col, f.Name, colorReset, f.Count, a.TravelSpeed, a.FlowRate, a.MaxCapacity)
	}
	tw.Flush()
	fmt.Fprintln(w.out)
}

// Write outputs a single status row in colorized format.
func (w *ColorStdoutWriter) Write(row telemetry.StatusRow) error {
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()

	fColor := w.getFleetColor(row.Fleet)
	statusColor := colorGreen
	switch row.Status {
	case telemetry.StatusFaulted:
		statusColor = colorRed
	case telemetry.StatusLowVolume:
		statusColor = colorYellow
	}

	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, row.Timestamp.Format(time.RFC3339), colorReset)
	fmt.Fprintf(w.out, "%scluster=%s%s ", colorBlue, row.ClusterID, colorReset)
	fmt.Fprintf(w.out, "%sdrone=%s%s ", fColor, row.DroneID, colorReset)
	fmt.Fprintf(w.out, "%sstate=%s%s ", colorWhite(), row.State, colorReset)
	fmt.Fprintf(w.out, "%svol=%.1f/%.1f%s ", colorCyan, row.Volume, row.Capacity, colorReset)
	fmt.Fprintf(w.out, "%spos=(%.0f,%.0f)%s ", colorYellow, row.X, row.Y, colorReset)
	if row.IncidentID != "" {
		fmt.Fprintf(w.out, "%szone=%d%s ", colorMagenta, row.ZoneID, colorReset)
	}
	fmt.Fprintf(w.out, "%stasks=%d faults=%d%s ", colorGray, row.Tasks, row.Faults, colorReset)
	fmt.Fprintf(w.out, "%sstatus=%s%s", statusColor, row.Status, colorReset)
	fmt.Fprintln(w.out)
	return nil
}

func colorWhite() string { return "\x1b[37m" }

// WriteBatch outputs multiple status rows.
func (w *ColorStdoutWriter) WriteBatch(rows []telemetry.StatusRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

func responseColor(kind incident.ResponseKind) string {
	switch kind {
	case incident.ResponseSuccess:
		return colorGreen
	case incident.ResponseFailure:
		return colorRed
	default:
		return colorYellow
	}
}

// WriteResponse prints a drone response to STDOUT.
func (w *ColorStdoutWriter) WriteResponse(r incident.Response) error {
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "%s[%s]%s %sRESPONSE%s %s%s%s drone=%s incident=%s\n",
		colorGray, r.Timestamp.Format(time.RFC3339), colorReset,
		colorBlue, colorReset, responseColor(r.Kind), r.Kind, colorReset,
		r.DroneID, r.Incident)
	return nil
}

// WriteFault prints a fault record to STDOUT.
func (w *ColorStdoutWriter) WriteFault(f incident.FaultRecord) error {
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "%s[%s]%s %sFAULT%s kind=%s drone=%s incident=%s\n",
		colorGray, f.Timestamp.Format(time.RFC3339), colorReset,
		colorRed, colorReset, f.Kind, f.DroneID, f.Incident.ID)
	return nil
}

// WriteState prints simulation state metrics to STDOUT.
func (w *ColorStdoutWriter) WriteState(row telemetry.SimulationStateRow) error {
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "%s[%s]%s %sSTATE%s backlog=%d outstanding=%d resolved=%d failed=%d retried=%d idle=%d chaos=%t\n",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorBlue, colorReset, row.Backlog, row.Outstanding, row.Resolved,
		row.Failed, row.Retried, row.IdleDrones, row.ChaosMode)
	return nil
}
