// Package drone runs one firefighting drone: it takes an incident, flies to
// the zone, extinguishes, returns, refills and reports the outcome.
package drone

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fireops-sim/internal/fsm"
	"fireops-sim/internal/incident"
	"fireops-sim/internal/metrics"
	"fireops-sim/internal/trace"
)

// Attributes are fixed for the lifetime of a drone.
type Attributes struct {
	TakeoffSpeed float64 `json:"takeoff_speed" yaml:"takeoff_speed"`
	TravelSpeed  float64 `json:"travel_speed" yaml:"travel_speed"`
	FlowRate     float64 `json:"flow_rate" yaml:"flow_rate"`
	MaxCapacity  float64 `json:"max_capacity" yaml:"max_capacity"`
	// DrainPerTask is the volume used by one task. Zero uses the volume the
	// incident severity requires.
	DrainPerTask float64 `json:"drain_per_task,omitempty" yaml:"drain_per_task,omitempty"`
}

// ResponseSink receives drone responses. Dispatcher implements it.
type ResponseSink interface {
	ReportCompletion(ctx context.Context, resp incident.Response) error
}

// IncidentSource hands out incidents to idle drones. Dispatcher implements it.
type IncidentSource interface {
	ClaimIncident(ctx context.Context) (incident.Incident, bool)
	SubmitIncident(ctx context.Context, inc incident.Incident) error
	IsShutdown() bool
}

// Options configures a drone. Only Responses is required.
type Options struct {
	ClusterID string
	Fleet     string
	Responses ResponseSink
	// Source is optional; without it incidents arrive through AssignIncident.
	Source  IncidentSource
	Faults  FaultPolicy
	OnFault func(incident.FaultRecord)
	// OnDropped is called when a claimed incident could not be handed back.
	OnDropped func(incident.Incident, error)
	Clock   Clock
	// RefillDelay and RecoveryDelay are in time units.
	RefillDelay   int
	RecoveryDelay int
	Trace         trace.Emitter
	Metrics       metrics.Sink
}

// Drone is one agent with its own state machine.
type Drone struct {
	id      string
	attrs   Attributes
	opts    Options
	machine *fsm.Machine
	now     func() time.Time

	mu          sync.Mutex
	cond        *sync.Cond
	volume      float64
	assigned    *incident.Incident
	cancelClaim context.CancelFunc
	location    incident.Point
	outbound    int
	cycleUnits  int
	started     int
	tasks       int
	faults      int
	legs        int
	busyUnits   int
	lastFault   incident.FaultKind
}

// New creates an idle drone at the base with a full tank.
func New(id string, attrs Attributes, opts Options) *Drone {
	if opts.Faults == nil {
		opts.Faults = NoFaults{}
	}
	if opts.Clock == nil {
		opts.Clock = ScaledClock{Unit: time.Millisecond}
	}
	if opts.Trace == nil {
		opts.Trace = trace.Nop{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	d := &Drone{
		id:      id,
		attrs:   attrs,
		opts:    opts,
		machine: fsm.New(),
		now:     time.Now,
		volume:  attrs.MaxCapacity,
	}
	d.cond = sync.NewCond(&d.mu)
	d.machine.Bind(fsm.Idle, d.idle)
	d.machine.Bind(fsm.EnRoute, d.enRoute)
	d.machine.Bind(fsm.ExecutingTask, d.executeTask)
	d.machine.Bind(fsm.Returning, d.returnToBase)
	d.machine.Bind(fsm.Replenishing, d.replenish)
	d.machine.Bind(fsm.Completed, d.complete)
	d.machine.Bind(fsm.Faulted, d.recover)
	d.machine.OnTransition(func(tr fsm.Transition) {
		d.opts.Metrics.Transition(string(tr.From), string(tr.To))
	})
	return d
}

// ID returns the drone identifier.
func (d *Drone) ID() string { return d.id }

// Attributes returns the fixed attribute set.
func (d *Drone) Attributes() Attributes { return d.attrs }

// State returns the current state machine state.
func (d *Drone) State() fsm.State { return d.machine.Current() }

// Transitions returns the recorded state history.
func (d *Drone) Transitions() []fsm.Transition { return d.machine.Transitions() }

// AssignIncident gives inc to the drone if it is idle with an empty slot.
// It returns false, changing nothing, when the drone is busy.
func (d *Drone) AssignIncident(inc incident.Incident) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.assigned != nil || d.machine.Current() != fsm.Idle {
		return false
	}
	d.assigned = &inc
	d.cycleUnits = 0
	if d.cancelClaim != nil {
		d.cancelClaim()
	}
	d.cond.Broadcast()
	return true
}

// IsFree reports whether the drone is idle without an assignment.
func (d *Drone) IsFree() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.assigned == nil && d.machine.Current() == fsm.Idle
}

// Run steps the state machine until the source shuts down while the drone
// is idle, or ctx is done.
func (d *Drone) Run(ctx context.Context) error {
	d.emit("online, state %s", d.machine.Current())
	for {
		if err := ctx.Err(); err != nil {
			d.emit("stopping: %v", err)
			return err
		}
		if d.finished() {
			d.emit("dispatcher shut down, going offline")
			return nil
		}
		d.machine.Step(ctx)
	}
}

func (d *Drone) finished() bool {
	if d.opts.Source == nil || !d.opts.Source.IsShutdown() {
		return false
	}
	return d.IsFree()
}

// Snapshot is a point-in-time view of a drone.
type Snapshot struct {
	ID         string             `json:"id"`
	Fleet      string             `json:"fleet,omitempty"`
	State      fsm.State          `json:"state"`
	Volume     float64            `json:"volume"`
	Capacity   float64            `json:"capacity"`
	Location   incident.Point     `json:"location"`
	IncidentID string             `json:"incident_id,omitempty"`
	ZoneID     int                `json:"zone_id,omitempty"`
	Tasks      int                `json:"tasks"`
	Faults     int                `json:"faults"`
	TravelLegs int                `json:"travel_legs"`
	BusyUnits  int                `json:"busy_units"`
	LastFault  incident.FaultKind `json:"last_fault,omitempty"`
}

// Snapshot returns the drone's current status.
func (d *Drone) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := Snapshot{
		ID:         d.id,
		Fleet:      d.opts.Fleet,
		State:      d.machine.Current(),
		Volume:     d.volume,
		Capacity:   d.attrs.MaxCapacity,
		Location:   d.location,
		Tasks:      d.tasks,
		Faults:     d.faults,
		TravelLegs: d.legs,
		BusyUnits:  d.busyUnits,
		LastFault:  d.lastFault,
	}
	if d.assigned != nil {
		s.IncidentID = d.assigned.ID
		s.ZoneID = d.assigned.ZoneID
	}
	return s
}

func (d *Drone) emit(format string, args ...any) {
	d.opts.Trace.Emit("Drone "+d.id, fmt.Sprintf(format, args...))
}

// assignment returns a copy of the assigned incident.
func (d *Drone) assignment() (incident.Incident, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.assigned == nil {
		return incident.Incident{}, false
	}
	return *d.assigned, true
}

// release clears the slot and returns what was in it.
func (d *Drone) release() (incident.Incident, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.assigned == nil {
		return incident.Incident{}, false
	}
	inc := *d.assigned
	d.assigned = nil
	return inc, true
}

// sleep simulates units of work and books them to the current cycle.
func (d *Drone) sleep(ctx context.Context, units int) error {
	if err := d.opts.Clock.Sleep(ctx, units); err != nil {
		return err
	}
	d.mu.Lock()
	d.cycleUnits += units
	d.busyUnits += units
	d.mu.Unlock()
	return nil
}

func (d *Drone) respond(ctx context.Context, inc incident.Incident, kind incident.ResponseKind) {
	resp := incident.Response{
		ClusterID: d.opts.ClusterID,
		Incident:  inc,
		DroneID:   d.id,
		Kind:      kind,
		Timestamp: d.now().UTC(),
	}
	d.opts.Metrics.Response(string(kind))
	if err := d.opts.Responses.ReportCompletion(ctx, resp); err != nil {
		d.emit("%s response for %s dropped: %v", kind, inc.ID, err)
		return
	}
	d.emit("reported %s for incident %s", kind, inc.ID)
}
