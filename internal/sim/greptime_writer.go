package sim

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"fireops-sim/internal/incident"
	"fireops-sim/internal/telemetry"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
)

const (
	defaultGreptimePort = 4001
	writeTimeout        = 5 * time.Second
)

// greptimeClient is the part of the ingester client the writer needs.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes status rows, responses, faults and state to
// GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	client        greptimeClient
	statusTable   string
	responseTable string
	faultTable    string
	stateTable    string
}

// NewGreptimeDBWriter connects to endpoint (host or host:port). Tables are
// created by GreptimeDB on first write.
func NewGreptimeDBWriter(endpoint, database string) (*GreptimeDBWriter, error) {
	host, port := endpoint, defaultGreptimePort
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid greptime port %q: %w", p, err)
		}
		host, port = h, n
	}
	if database == "" {
		database = "public"
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return newGreptimeDBWriter(client), nil
}

func newGreptimeDBWriter(client greptimeClient) *GreptimeDBWriter {
	return &GreptimeDBWriter{
		client:        client,
		statusTable:   telemetry.StatusTableName,
		responseTable: telemetry.ResponseTableName,
		faultTable:    telemetry.FaultTableName,
		stateTable:    telemetry.StateTableName,
	}
}

func (w *GreptimeDBWriter) write(name string, tbl *table.Table, n int) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if _, err := w.client.Write(ctx, tbl); err != nil {
		slog.Error("greptime write failed", "table", name, "err", err)
		return err
	}
	slog.Debug("greptime write", "table", name, "rows", n)
	return nil
}

// Write inserts a single status row.
func (w *GreptimeDBWriter) Write(row telemetry.StatusRow) error {
	return w.WriteBatch([]telemetry.StatusRow{row})
}

// WriteBatch inserts multiple status rows.
func (w *GreptimeDBWriter) WriteBatch(rows []telemetry.StatusRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := newTable(w.statusTable,
		[]string{"cluster_id", "drone_id", "fleet"},
		[]column{
			{"state", types.STRING}, {"volume", types.FLOAT64}, {"capacity", types.FLOAT64},
			{"x", types.FLOAT64}, {"y", types.FLOAT64}, {"incident_id", types.STRING},
			{"zone_id", types.INT64}, {"tasks", types.INT64}, {"faults", types.INT64},
			{"travel_legs", types.INT64}, {"status", types.STRING},
		})
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.ClusterID, r.DroneID, r.Fleet,
			r.State, r.Volume, r.Capacity, r.X, r.Y, r.IncidentID,
			int64(r.ZoneID), int64(r.Tasks), int64(r.Faults), int64(r.TravelLegs), r.Status,
			r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(w.statusTable, tbl, len(rows))
}

// WriteResponse inserts a drone response.
func (w *GreptimeDBWriter) WriteResponse(r incident.Response) error {
	tbl, err := newTable(w.responseTable,
		[]string{"cluster_id", "drone_id", "kind"},
		[]column{
			{"incident_id", types.STRING}, {"zone_id", types.INT64}, {"event_type", types.STRING},
			{"severity", types.STRING}, {"detected_at", types.STRING},
		})
	if err != nil {
		return err
	}
	inc := r.Incident
	if err := tbl.AddRow(r.ClusterID, r.DroneID, string(r.Kind),
		inc.ID, int64(inc.ZoneID), string(inc.Type), string(inc.Severity), inc.Clock(),
		r.Timestamp); err != nil {
		return err
	}
	return w.write(w.responseTable, tbl, 1)
}

// WriteFault inserts a fault record; the full record goes into a JSON column.
func (w *GreptimeDBWriter) WriteFault(f incident.FaultRecord) error {
	tbl, err := newTable(w.faultTable,
		[]string{"cluster_id", "drone_id", "kind"},
		[]column{{"incident_id", types.STRING}, {"record", types.JSON}})
	if err != nil {
		return err
	}
	payload, err := f.Marshal()
	if err != nil {
		return err
	}
	if err := tbl.AddRow(f.ClusterID, f.DroneID, string(f.Kind), f.Incident.ID, string(payload), f.Timestamp); err != nil {
		return err
	}
	return w.write(w.faultTable, tbl, 1)
}

// WriteState inserts a simulation state row.
func (w *GreptimeDBWriter) WriteState(row telemetry.SimulationStateRow) error {
	tbl, err := newTable(w.stateTable,
		[]string{"cluster_id"},
		[]column{
			{"backlog", types.INT64}, {"outstanding", types.INT64}, {"pending", types.BOOLEAN},
			{"submitted", types.INT64}, {"resolved", types.INT64}, {"failed", types.INT64},
			{"retried", types.INT64}, {"idle_drones", types.INT64}, {"chaos_mode", types.BOOLEAN},
		})
	if err != nil {
		return err
	}
	if err := tbl.AddRow(row.ClusterID,
		int64(row.Backlog), int64(row.Outstanding), row.Pending,
		int64(row.Submitted), int64(row.Resolved), int64(row.Failed),
		int64(row.Retried), int64(row.IdleDrones), row.ChaosMode,
		row.Timestamp); err != nil {
		return err
	}
	return w.write(w.stateTable, tbl, 1)
}

type column struct {
	name string
	typ  types.ColumnType
}

// newTable declares tag columns, then field columns, then the ts time index.
func newTable(name string, tags []string, fields []column) (*table.Table, error) {
	tbl, err := table.New(name)
	if err != nil {
		return nil, err
	}
	for _, t := range tags {
		if err := tbl.AddTagColumn(t, types.STRING); err != nil {
			return nil, err
		}
	}
	for _, f := range fields {
		if err := tbl.AddFieldColumn(f.name, f.typ); err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	return tbl, nil
}
