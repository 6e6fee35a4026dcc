// Writer selection for STDOUT
package sim

import (
	"os"

	"golang.org/x/term"

	"fireops-sim/internal/config"
)

// NewStdoutWriter returns a colorized writer when STDOUT is a terminal and
// a JSON line writer otherwise.
func NewStdoutWriter(cfg *config.SimulationConfig) Writer {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return NewColorStdoutWriter(cfg)
	}
	return NewJSONStdoutWriter()
}
