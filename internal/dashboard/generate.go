package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"fireops-sim/internal/telemetry"
)

//go:embed templates/*.json.tmpl
var templates embed.FS

// Tables names the GreptimeDB tables the dashboards query.
type Tables struct {
	Status    string
	Responses string
	Faults    string
	State     string
}

// DefaultTables returns the tables the GreptimeDB writer fills.
func DefaultTables() Tables {
	return Tables{
		Status:    telemetry.StatusTableName,
		Responses: telemetry.ResponseTableName,
		Faults:    telemetry.FaultTableName,
		State:     telemetry.StateTableName,
	}
}

// Render parses dashboard templates and writes rendered dashboards to outDir.
// Templates read the Grafana datasource UID from GREPTIMEDB_DATASOURCE_UID.
func Render(outDir string, tables Tables) ([]string, error) {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}

	names, err := templates.ReadDir("templates")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	var written []string
	for _, e := range names {
		t, err := template.New(e.Name()).Funcs(funcMap).ParseFS(templates, "templates/"+e.Name())
		if err != nil {
			return written, err
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(e.Name(), ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return written, err
		}
		if err := t.Execute(f, tables); err != nil {
			f.Close()
			os.Remove(outPath)
			return written, err
		}
		if err := f.Close(); err != nil {
			return written, err
		}
		written = append(written, outPath)
	}
	return written, nil
}
