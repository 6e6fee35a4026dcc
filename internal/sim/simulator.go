// Simulator orchestrating drones, the dispatcher and telemetry ticks
package sim

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fireops-sim/internal/config"
	"fireops-sim/internal/dispatch"
	"fireops-sim/internal/drone"
	"fireops-sim/internal/incident"
	"fireops-sim/internal/metrics"
	"fireops-sim/internal/queue"
	"fireops-sim/internal/telemetry"
	"fireops-sim/internal/trace"

	"github.com/google/uuid"
)

const (
	// maxRecent bounds the response and fault history kept for the admin UI.
	maxRecent = 200
	// chaosProbability is used when faults are toggled on without a configured policy.
	chaosProbability = 0.1
	simRole          = "Simulator"
)

// Options wires optional collaborators into a Simulator.
type Options struct {
	Writer       Writer
	Trace        trace.Emitter
	Metrics      metrics.Sink
	Clock        drone.Clock
	TickInterval time.Duration
}

// Simulator feeds incidents through the dispatcher to the drone fleets.
type Simulator struct {
	clusterID    string
	cfg          *config.SimulationConfig
	zones        []incident.Zone
	incidents    []incident.Incident
	fleets       []DroneFleet
	disp         *dispatch.Dispatcher
	backlog      *queue.Queue[incident.Incident]
	faults       *drone.Switch
	statusGen    *telemetry.Generator
	writer       Writer
	trace        trace.Emitter
	metrics      metrics.Sink
	tickInterval time.Duration
	now          func() time.Time
	log          *slog.Logger

	mu          sync.Mutex
	outstanding int
	submitted   int
	resolved    int
	failed      int
	refills     int
	retried     int
	dropped     int
	attempts    map[string]int
	turnaround  []float64
	recent      []incident.Response
	faultLog    []incident.FaultRecord
	startedAt   time.Time
	finishedAt  time.Time
}

// DroneFleet holds runtime drones for one fleet.
type DroneFleet struct {
	Name   string
	Drones []*drone.Drone
}

// NewSimulator creates the dispatcher and every drone of every fleet.
// Incidents must be ordered by detection time.
func NewSimulator(clusterID string, cfg *config.SimulationConfig, zones []incident.Zone, incidents []incident.Incident, opts Options) *Simulator {
	if opts.Writer == nil {
		opts.Writer = discardWriter{}
	}
	if opts.Trace == nil {
		opts.Trace = trace.Nop{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Clock == nil {
		opts.Clock = drone.ScaledClock{Unit: cfg.TimeUnit}
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = cfg.TickInterval
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}

	s := &Simulator{
		clusterID:    clusterID,
		cfg:          cfg,
		zones:        zones,
		incidents:    incidents,
		disp:         dispatch.New(),
		backlog:      queue.New[incident.Incident](),
		faults:       drone.NewSwitch(faultPolicy(cfg), cfg.Faults.Mode != "none" && !cfg.Faults.Disabled),
		statusGen:    telemetry.NewGenerator(clusterID),
		writer:       opts.Writer,
		trace:        opts.Trace,
		metrics:      opts.Metrics,
		tickInterval: opts.TickInterval,
		now:          time.Now,
		log:          slog.Default(),
		attempts:     map[string]int{},
	}
	s.disp.OnEvent(func(ev dispatch.Event) {
		s.metrics.DispatchEvent(string(ev))
	})

	rec := recorder{Sink: opts.Metrics, sim: s}
	for _, f := range cfg.Fleets {
		fleet := DroneFleet{Name: f.Name}
		attrs := drone.Attributes{
			TakeoffSpeed: f.Attributes.TakeoffSpeed,
			TravelSpeed:  f.Attributes.TravelSpeed,
			FlowRate:     f.Attributes.FlowRate,
			MaxCapacity:  f.Attributes.MaxCapacity,
			DrainPerTask: f.Attributes.DrainPerTask,
		}
		for i := 0; i < f.Count; i++ {
			d := drone.New(generateDroneID(f.Name, i), attrs, drone.Options{
				ClusterID:     clusterID,
				Fleet:         f.Name,
				Responses:     s.disp,
				Source:        s.disp,
				Faults:        s.faults,
				OnFault:       s.recordFault,
				OnDropped:     s.recordDropped,
				Clock:         opts.Clock,
				RefillDelay:   cfg.RefillDelay,
				RecoveryDelay: cfg.RecoveryDelay,
				Trace:         opts.Trace,
				Metrics:       rec,
			})
			fleet.Drones = append(fleet.Drones, d)
		}
		s.fleets = append(s.fleets, fleet)
	}
	return s
}

// faultPolicy builds the configured policy. Without one, a random policy is
// still installed so faults can be toggled on at runtime.
func faultPolicy(cfg *config.SimulationConfig) drone.FaultPolicy {
	switch cfg.Faults.Mode {
	case "random":
		return drone.NewRandomFaults(cfg.Faults.Probability, cfg.FaultKinds(), cfg.Faults.Seed)
	case "scripted":
		p := drone.ScriptedFaults{EveryNth: cfg.Faults.EveryNth}
		if kinds := cfg.FaultKinds(); len(cfg.Faults.Kinds) > 0 && len(kinds) > 0 {
			p.Kind = kinds[0]
		}
		return p
	default:
		return drone.NewRandomFaults(chaosProbability, cfg.FaultKinds(), cfg.Faults.Seed)
	}
}

// recorder forwards drone metrics and keeps turnaround samples for the summary.
type recorder struct {
	metrics.Sink
	sim *Simulator
}

func (r recorder) Turnaround(units float64) {
	r.Sink.Turnaround(units)
	r.sim.mu.Lock()
	r.sim.turnaround = append(r.sim.turnaround, units)
	r.sim.mu.Unlock()
}

// Snapshot is a point-in-time view of the whole simulation for displays.
type Snapshot struct {
	Drones     []drone.Snapshot             `json:"drones"`
	Dispatcher dispatch.State               `json:"dispatcher"`
	State      telemetry.SimulationStateRow `json:"state"`
}

// Snapshot returns drone snapshots, the dispatcher slots and counters.
func (s *Simulator) Snapshot() Snapshot {
	return Snapshot{
		Drones:     s.Drones(),
		Dispatcher: s.disp.Pending(),
		State:      s.State(),
	}
}

// Dispatcher exposes the rendezvous state.
func (s *Simulator) Dispatcher() dispatch.State {
	return s.disp.Pending()
}

// Drones returns a snapshot of every drone.
func (s *Simulator) Drones() []drone.Snapshot {
	var out []drone.Snapshot
	for _, f := range s.fleets {
		for _, d := range f.Drones {
			out = append(out, d.Snapshot())
		}
	}
	return out
}

// Drone looks up a drone by ID.
func (s *Simulator) Drone(id string) (*drone.Drone, bool) {
	for _, f := range s.fleets {
		for _, d := range f.Drones {
			if d.ID() == id {
				return d, true
			}
		}
	}
	return nil, false
}

// Fleets returns the runtime fleets.
func (s *Simulator) Fleets() []DroneFleet {
	return s.fleets
}

// ToggleChaos flips fault injection and returns the new state.
func (s *Simulator) ToggleChaos() bool {
	on := s.faults.Toggle()
	s.trace.Emit(simRole, fmt.Sprintf("fault injection enabled=%t", on))
	return on
}

// Chaos reports whether fault injection is active.
func (s *Simulator) Chaos() bool {
	return s.faults.Enabled()
}

// GetConfig returns the simulation configuration.
func (s *Simulator) GetConfig() *config.SimulationConfig {
	return s.cfg
}

// Zones returns the loaded zones.
func (s *Simulator) Zones() []incident.Zone {
	return s.zones
}

// RequestShutdown stops the dispatcher. Drones finish their current cycle
// and go offline; Run returns once they have.
func (s *Simulator) RequestShutdown() {
	if s.disp.IsShutdown() {
		return
	}
	s.trace.Emit(simRole, "shutdown requested")
	s.disp.RequestShutdown()
}

// Recent returns the latest drained responses, oldest first.
func (s *Simulator) Recent() []incident.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]incident.Response(nil), s.recent...)
}

// FaultLog returns the latest fault records, oldest first.
func (s *Simulator) FaultLog() []incident.FaultRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]incident.FaultRecord(nil), s.faultLog...)
}

// State returns the current simulation state row.
func (s *Simulator) State() telemetry.SimulationStateRow {
	idle := 0
	for _, f := range s.fleets {
		for _, d := range f.Drones {
			if d.IsFree() {
				idle++
			}
		}
	}
	pending := s.disp.Pending().PendingIncident != nil
	s.mu.Lock()
	defer s.mu.Unlock()
	return telemetry.SimulationStateRow{
		ClusterID:   s.clusterID,
		Backlog:     s.backlog.Len(),
		Outstanding: s.outstanding,
		Pending:     pending,
		Submitted:   s.submitted,
		Resolved:    s.resolved,
		Failed:      s.failed,
		Retried:     s.retried,
		IdleDrones:  idle,
		ChaosMode:   s.faults.Enabled(),
		Timestamp:   s.now().UTC(),
	}
}

func (s *Simulator) recordFault(rec incident.FaultRecord) {
	s.mu.Lock()
	s.faultLog = appendBounded(s.faultLog, rec)
	s.mu.Unlock()
	if err := s.writer.WriteFault(rec); err != nil {
		s.log.Error("fault write failed", "drone_id", rec.DroneID, "err", err)
	}
}

func (s *Simulator) countDropped() {
	s.mu.Lock()
	s.dropped++
	s.outstanding--
	s.mu.Unlock()
}

func (s *Simulator) recordDropped(inc incident.Incident, err error) {
	s.countDropped()
	s.log.Warn("incident dropped", "incident_id", inc.ID, "err", err)
}

// dropLeftovers counts incidents still in the backlog or the dispatcher
// slot as dropped; nothing will claim them once the drones are offline.
func (s *Simulator) dropLeftovers() int {
	n := 0
	for {
		if _, ok := s.backlog.TryPop(); !ok {
			break
		}
		n++
	}
	if _, ok := s.disp.TakePending(); ok {
		n++
	}
	if n == 0 {
		return 0
	}
	s.mu.Lock()
	s.dropped += n
	s.outstanding -= n
	s.mu.Unlock()
	return n
}

func appendBounded[T any](s []T, v T) []T {
	s = append(s, v)
	if len(s) > maxRecent {
		s = s[len(s)-maxRecent:]
	}
	return s
}

func generateDroneID(fleetName string, index int) string {
	// Include the drone's index along with a short UUID to guarantee uniqueness
	id := uuid.New().String()
	return fmt.Sprintf("%s-%d-%s", fleetName, index, id[:8])
}

type discardWriter struct{}

func (discardWriter) Write(telemetry.StatusRow) error       { return nil }
func (discardWriter) WriteResponse(incident.Response) error { return nil }
func (discardWriter) WriteFault(incident.FaultRecord) error { return nil }
