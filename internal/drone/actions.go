package drone

import (
	"context"

	"fireops-sim/internal/fsm"
	"fireops-sim/internal/incident"
)

// travelUnits is the one-way flight time to the incident's zone.
func (d *Drone) travelUnits(inc incident.Incident) int {
	if d.attrs.TravelSpeed <= 0 {
		return 0
	}
	return int(inc.Zone.Distance() / d.attrs.TravelSpeed)
}

// executionUnits is the time needed to deliver volume.
func (d *Drone) executionUnits(volume float64) int {
	if d.attrs.FlowRate <= 0 {
		return 0
	}
	return int(volume / d.attrs.FlowRate)
}

// idle waits for work. Drones with a source claim from it; a direct
// assignment interrupts the claim.
func (d *Drone) idle(ctx context.Context) {
	if inc, ok := d.assignment(); ok {
		d.emit("assigned incident %s in zone %d", inc.ID, inc.ZoneID)
		return
	}
	if d.opts.Source == nil {
		if !d.waitAssignment(ctx) {
			d.machine.Stay()
			return
		}
		inc, _ := d.assignment()
		d.emit("assigned incident %s in zone %d", inc.ID, inc.ZoneID)
		return
	}

	claimCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.mu.Lock()
	if d.assigned != nil {
		d.mu.Unlock()
		return
	}
	d.cancelClaim = cancel
	d.mu.Unlock()

	inc, ok := d.opts.Source.ClaimIncident(claimCtx)

	d.mu.Lock()
	d.cancelClaim = nil
	d.mu.Unlock()

	if ok {
		if d.AssignIncident(inc) {
			d.emit("claimed incident %s in zone %d (%s)", inc.ID, inc.ZoneID, inc.Severity)
			return
		}
		// A direct assignment won the race; give the claimed incident back.
		d.emit("already assigned, handing back incident %s", inc.ID)
		go func() {
			if err := d.opts.Source.SubmitIncident(ctx, inc); err != nil {
				d.emit("hand back of incident %s failed: %v", inc.ID, err)
				if d.opts.OnDropped != nil {
					d.opts.OnDropped(inc, err)
				}
			}
		}()
	}
	if _, assigned := d.assignment(); !assigned {
		d.machine.Stay()
	}
}

func (d *Drone) waitAssignment(ctx context.Context) bool {
	stop := context.AfterFunc(ctx, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.cond.Broadcast()
	})
	defer stop()

	d.mu.Lock()
	defer d.mu.Unlock()
	for d.assigned == nil {
		if ctx.Err() != nil {
			return false
		}
		d.cond.Wait()
	}
	return true
}

func (d *Drone) enRoute(ctx context.Context) {
	inc, ok := d.assignment()
	if !ok {
		d.machine.Set(fsm.Idle)
		return
	}
	units := d.travelUnits(inc)
	d.emit("en route to zone %d, %d units", inc.ZoneID, units)
	if err := d.sleep(ctx, units); err != nil {
		d.machine.Stay()
		return
	}
	d.mu.Lock()
	d.outbound = units
	d.location = inc.Zone.Center()
	d.legs++
	d.mu.Unlock()
	d.emit("arrived at zone %d", inc.ZoneID)
}

func (d *Drone) executeTask(ctx context.Context) {
	inc, ok := d.assignment()
	if !ok {
		d.machine.Set(fsm.Returning)
		return
	}
	d.mu.Lock()
	d.started++
	task := d.started
	d.mu.Unlock()

	if kind, faulted := d.opts.Faults.Inject(d.id, task, inc); faulted {
		rec := incident.FaultRecord{
			ClusterID: d.opts.ClusterID,
			Timestamp: d.now().UTC(),
			Kind:      kind,
			DroneID:   d.id,
			Incident:  inc,
		}
		d.mu.Lock()
		d.faults++
		d.lastFault = kind
		d.mu.Unlock()
		d.opts.Metrics.Fault(string(kind))
		if d.opts.OnFault != nil {
			d.opts.OnFault(rec)
		}
		d.emit("fault %s while handling incident %s", kind, inc.ID)
		d.machine.Set(fsm.Faulted)
		return
	}

	required := inc.Severity.RequiredVolume()
	units := d.executionUnits(required)
	d.emit("extinguishing %s fire in zone %d, %.1f volume over %d units", inc.Severity, inc.ZoneID, required, units)
	if err := d.sleep(ctx, units); err != nil {
		d.machine.Stay()
		return
	}

	drain := d.attrs.DrainPerTask
	if drain <= 0 {
		drain = required
	}
	d.mu.Lock()
	d.volume -= drain
	empty := d.volume <= 0
	if empty {
		d.volume = 0
	}
	remaining := d.volume
	d.mu.Unlock()

	d.emit("task done, %.1f volume left", remaining)
	if empty {
		d.respond(ctx, inc, incident.ResponseRefillRequired)
	}
}

func (d *Drone) returnToBase(ctx context.Context) {
	d.mu.Lock()
	units := d.outbound
	d.mu.Unlock()
	d.emit("returning to base, %d units", units)
	if err := d.sleep(ctx, units); err != nil {
		d.machine.Stay()
		return
	}
	d.mu.Lock()
	d.outbound = 0
	d.location = incident.Point{}
	d.legs++
	d.mu.Unlock()
	d.emit("landed at base")
}

func (d *Drone) replenish(ctx context.Context) {
	d.mu.Lock()
	d.volume = d.attrs.MaxCapacity
	d.mu.Unlock()
	d.emit("refilling to %.1f", d.attrs.MaxCapacity)
	if err := d.sleep(ctx, d.opts.RefillDelay); err != nil {
		d.machine.Stay()
	}
}

func (d *Drone) complete(ctx context.Context) {
	inc, ok := d.release()
	if !ok {
		// fault recovery path: the failure was already reported
		d.emit("recovered, back in service")
		return
	}
	d.mu.Lock()
	d.tasks++
	units := d.cycleUnits
	d.mu.Unlock()
	d.opts.Metrics.Turnaround(float64(units))
	d.respond(ctx, inc.Resolve(), incident.ResponseSuccess)
	d.emit("incident %s resolved after %d units", inc.ID, units)
}

func (d *Drone) recover(ctx context.Context) {
	inc, ok := d.release()
	if ok {
		d.respond(ctx, inc, incident.ResponseFailure)
	}
	d.emit("recovering for %d units", d.opts.RecoveryDelay)
	if err := d.sleep(ctx, d.opts.RecoveryDelay); err != nil {
		d.machine.Stay()
	}
}
