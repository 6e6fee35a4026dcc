package dashboard

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderMissingEnv(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "")
	dir := t.TempDir()
	if _, err := Render(dir, DefaultTables()); err == nil {
		t.Fatalf("expected error for missing env vars")
	}
	if _, err := os.Stat(filepath.Join(dir, "fireops-dashboard.json")); !os.IsNotExist(err) {
		t.Fatalf("expected partial dashboard to be removed")
	}
}

func TestRenderSuccess(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "uid1")

	dir := t.TempDir()
	tables := DefaultTables()
	tables.State = "custom_state"
	written, err := Render(dir, tables)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if len(written) != 1 {
		t.Fatalf("written = %v, want one dashboard", written)
	}

	b, err := os.ReadFile(filepath.Join(dir, "fireops-dashboard.json"))
	if err != nil {
		t.Fatalf("read dashboard: %v", err)
	}
	if !strings.Contains(string(b), "uid1") {
		t.Fatalf("greptime uid not rendered")
	}
	if !strings.Contains(string(b), "FROM custom_state") {
		t.Fatalf("state table not rendered")
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("dashboard is not valid JSON: %v", err)
	}
}
