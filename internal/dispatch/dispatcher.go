// Package dispatch hands incidents from the incident source to drones and
// carries their completion reports back through single-slot rendezvous points.
package dispatch

import (
	"context"
	"errors"
	"sync"

	"fireops-sim/internal/incident"
)

// ErrShutdown is returned by SubmitIncident once shutdown was requested.
var ErrShutdown = errors.New("dispatcher shut down")

// Dispatcher holds at most one unclaimed incident and one undrained report.
// Producers block until the matching consumer has taken the previous item.
type Dispatcher struct {
	mu   sync.Mutex
	cond *sync.Cond

	pending    *incident.Incident
	report     *incident.Response
	shutdown   bool
	submitted  int
	claimed    int
	reported   int
	drained    int
	onActivity func(Event)
}

// Event describes a rendezvous operation, for metrics and tracing.
type Event string

const (
	EventSubmitted Event = "submitted"
	EventClaimed   Event = "claimed"
	EventReported  Event = "reported"
	EventDrained   Event = "drained"
	EventShutdown  Event = "shutdown"
)

// New returns an empty dispatcher.
func New() *Dispatcher {
	d := &Dispatcher{}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// OnEvent installs a callback run after each successful operation.
func (d *Dispatcher) OnEvent(fn func(Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onActivity = fn
}

// wake broadcasts when ctx ends so waiters can re-check their predicate.
func (d *Dispatcher) wake(ctx context.Context) func() bool {
	return context.AfterFunc(ctx, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.cond.Broadcast()
	})
}

func (d *Dispatcher) notify(ev Event, fn func(Event)) {
	if fn != nil {
		fn(ev)
	}
}

// SubmitIncident stores inc once the previous incident has been claimed.
func (d *Dispatcher) SubmitIncident(ctx context.Context, inc incident.Incident) error {
	stop := d.wake(ctx)
	defer stop()

	d.mu.Lock()
	for d.pending != nil && !d.shutdown {
		if err := ctx.Err(); err != nil {
			d.mu.Unlock()
			return err
		}
		d.cond.Wait()
	}
	if d.shutdown {
		d.mu.Unlock()
		return ErrShutdown
	}
	if err := ctx.Err(); err != nil {
		d.mu.Unlock()
		return err
	}
	d.pending = &inc
	d.submitted++
	d.cond.Broadcast()
	fn := d.onActivity
	d.mu.Unlock()
	d.notify(EventSubmitted, fn)
	return nil
}

// ClaimIncident takes the pending incident, waiting for one to arrive.
// ok is false once shutdown was requested or ctx ends.
func (d *Dispatcher) ClaimIncident(ctx context.Context) (inc incident.Incident, ok bool) {
	stop := d.wake(ctx)
	defer stop()

	d.mu.Lock()
	for d.pending == nil {
		if d.shutdown || ctx.Err() != nil {
			d.mu.Unlock()
			return incident.Incident{}, false
		}
		d.cond.Wait()
	}
	if d.shutdown {
		d.mu.Unlock()
		return incident.Incident{}, false
	}
	inc = *d.pending
	d.pending = nil
	d.claimed++
	d.cond.Broadcast()
	fn := d.onActivity
	d.mu.Unlock()
	d.notify(EventClaimed, fn)
	return inc, true
}

// TakePending clears the incident slot, returning what it held. It works
// after shutdown, when ClaimIncident no longer hands incidents out.
func (d *Dispatcher) TakePending() (incident.Incident, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending == nil {
		return incident.Incident{}, false
	}
	inc := *d.pending
	d.pending = nil
	d.cond.Broadcast()
	return inc, true
}

// ReportCompletion stores resp once the previous report has been drained.
// Reports are still accepted after shutdown so drones can finish their cycle.
func (d *Dispatcher) ReportCompletion(ctx context.Context, resp incident.Response) error {
	stop := d.wake(ctx)
	defer stop()

	d.mu.Lock()
	for d.report != nil {
		if err := ctx.Err(); err != nil {
			d.mu.Unlock()
			return err
		}
		d.cond.Wait()
	}
	d.report = &resp
	d.reported++
	d.cond.Broadcast()
	fn := d.onActivity
	d.mu.Unlock()
	d.notify(EventReported, fn)
	return nil
}

// DrainCompletion takes the pending report, waiting for one to arrive.
func (d *Dispatcher) DrainCompletion(ctx context.Context) (incident.Response, error) {
	stop := d.wake(ctx)
	defer stop()

	d.mu.Lock()
	for d.report == nil {
		if err := ctx.Err(); err != nil {
			d.mu.Unlock()
			return incident.Response{}, err
		}
		d.cond.Wait()
	}
	resp := *d.report
	d.report = nil
	d.drained++
	d.cond.Broadcast()
	fn := d.onActivity
	d.mu.Unlock()
	d.notify(EventDrained, fn)
	return resp, nil
}

// TryDrainCompletion takes the pending report if there is one.
func (d *Dispatcher) TryDrainCompletion() (incident.Response, bool) {
	d.mu.Lock()
	if d.report == nil {
		d.mu.Unlock()
		return incident.Response{}, false
	}
	resp := *d.report
	d.report = nil
	d.drained++
	d.cond.Broadcast()
	fn := d.onActivity
	d.mu.Unlock()
	d.notify(EventDrained, fn)
	return resp, true
}

// RequestShutdown makes ClaimIncident return immediately from now on.
// Calling it more than once has no further effect.
func (d *Dispatcher) RequestShutdown() {
	d.mu.Lock()
	already := d.shutdown
	d.shutdown = true
	d.cond.Broadcast()
	fn := d.onActivity
	d.mu.Unlock()
	if !already {
		d.notify(EventShutdown, fn)
	}
}

// IsShutdown reports whether shutdown was requested.
func (d *Dispatcher) IsShutdown() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown
}

// State is a point-in-time view of the dispatcher.
type State struct {
	PendingIncident *incident.Incident `json:"pending_incident,omitempty"`
	PendingReport   *incident.Response `json:"pending_report,omitempty"`
	Shutdown        bool               `json:"shutdown"`
	Submitted       int                `json:"submitted"`
	Claimed         int                `json:"claimed"`
	Reported        int                `json:"reported"`
	Drained         int                `json:"drained"`
}

// Pending returns a snapshot of both slots and the operation counters.
func (d *Dispatcher) Pending() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := State{
		Shutdown:  d.shutdown,
		Submitted: d.submitted,
		Claimed:   d.claimed,
		Reported:  d.reported,
		Drained:   d.drained,
	}
	if d.pending != nil {
		cp := *d.pending
		st.PendingIncident = &cp
	}
	if d.report != nil {
		cp := *d.report
		st.PendingReport = &cp
	}
	return st
}
