package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fireops-sim/internal/dispatch"
	"fireops-sim/internal/drone"
	"fireops-sim/internal/feed"
	"fireops-sim/internal/incident"
	"fireops-sim/internal/logging"
	"fireops-sim/internal/telemetry"
)

// Run feeds every incident to the drones and returns once all of them are
// resolved or given up, or when ctx is done. Status rows are written every
// tick interval.
func (s *Simulator) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	s.log = log
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.outstanding = len(s.incidents)
	s.startedAt = s.now()
	s.mu.Unlock()

	var all []*drone.Drone
	for _, f := range s.fleets {
		all = append(all, f.Drones...)
	}
	log.Info("starting simulator", "drones", len(all), "incidents", len(s.incidents), "tick_interval", s.tickInterval)
	if len(s.incidents) == 0 {
		s.RequestShutdown()
	}

	var drones sync.WaitGroup
	for _, d := range all {
		drones.Add(1)
		go func(d *drone.Drone) {
			defer drones.Done()
			_ = d.Run(runCtx)
		}(d)
	}
	dronesDone := make(chan struct{})
	go func() {
		drones.Wait()
		close(dronesDone)
	}()

	var loops sync.WaitGroup
	loops.Add(3)
	go func() {
		defer loops.Done()
		s.feed(runCtx)
	}()
	go func() {
		defer loops.Done()
		s.submit(runCtx)
	}()
	go func() {
		defer loops.Done()
		s.tickLoop(runCtx, dronesDone)
	}()

	s.drain(runCtx, dronesDone)
	// the last report may still sit in the slot after every drone went offline
	for {
		resp, ok := s.disp.TryDrainCompletion()
		if !ok {
			break
		}
		s.handleResponse(resp)
	}

	s.backlog.Close()
	cancel()
	loops.Wait()
	if n := s.dropLeftovers(); n > 0 {
		log.Warn("unclaimed incidents dropped", "count", n)
	}
	s.tick(ctx)

	s.mu.Lock()
	s.finishedAt = s.now()
	s.mu.Unlock()
	sum := s.Summary()
	log.Info("stopping simulator",
		"resolved", sum.Resolved, "failed", sum.Failed, "retried", sum.Retried,
		"dropped", sum.Dropped, "elapsed", sum.Elapsed)
	return ctx.Err()
}

// feed replays incidents onto the backlog at the configured speed.
func (s *Simulator) feed(ctx context.Context) {
	n, err := feed.Replay(ctx, s.incidents, s.backlog, s.cfg.ReplaySpeed)
	if err != nil {
		logging.FromContext(ctx).Warn("incident feed interrupted", "fed", n, "err", err)
		return
	}
	s.trace.Emit(simRole, fmt.Sprintf("incident feed exhausted after %d incidents", n))
}

// submit moves incidents from the backlog into the dispatcher slot.
func (s *Simulator) submit(ctx context.Context) {
	log := logging.FromContext(ctx)
	for {
		inc, ok := s.backlog.Pop(ctx)
		if !ok {
			return
		}
		s.metrics.Backlog(s.backlog.Len())
		err := s.disp.SubmitIncident(ctx, inc)
		switch {
		case errors.Is(err, dispatch.ErrShutdown):
			s.countDropped()
			log.Warn("incident dropped after shutdown", "incident_id", inc.ID)
			continue
		case err != nil:
			// popped but never placed in the slot
			s.countDropped()
			return
		}
		s.mu.Lock()
		s.submitted++
		s.mu.Unlock()
		s.trace.Emit(simRole, "submitted "+inc.String())
	}
}

// drain takes drone reports until every drone is offline.
func (s *Simulator) drain(ctx context.Context, dronesDone <-chan struct{}) {
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		select {
		case <-dronesDone:
			stop()
		case <-ctx.Done():
		}
	}()
	for {
		resp, err := s.disp.DrainCompletion(ctx)
		if err != nil {
			return
		}
		s.handleResponse(resp)
	}
}

// handleResponse records a report, re-queues failures that may be retried
// and requests shutdown once nothing is outstanding.
func (s *Simulator) handleResponse(resp incident.Response) {
	if err := s.writer.WriteResponse(resp); err != nil {
		s.log.Error("response write failed", "drone_id", resp.DroneID, "err", err)
	}

	retry := false
	s.mu.Lock()
	s.recent = appendBounded(s.recent, resp)
	switch resp.Kind {
	case incident.ResponseSuccess:
		s.resolved++
		s.outstanding--
	case incident.ResponseFailure:
		s.failed++
		if s.cfg.RetryFailed && s.attempts[resp.Incident.ID] < s.cfg.MaxRetries {
			s.attempts[resp.Incident.ID]++
			s.retried++
			retry = true
		} else {
			s.outstanding--
		}
	case incident.ResponseRefillRequired:
		s.refills++
	}
	done := resp.Kind != incident.ResponseRefillRequired && s.outstanding <= 0
	s.mu.Unlock()

	if retry {
		s.trace.Emit(simRole, "re-queued failed incident "+resp.Incident.ID)
		s.backlog.Push(resp.Incident)
	}
	if done {
		s.RequestShutdown()
	}
}

func (s *Simulator) tickLoop(ctx context.Context, dronesDone <-chan struct{}) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-dronesDone:
			return
		case <-ctx.Done():
			return
		}
	}
}

// tick generates status rows and writes them.
func (s *Simulator) tick(ctx context.Context) {
	log := logging.FromContext(ctx)
	snaps := s.Drones()
	batch := make([]telemetry.StatusRow, 0, len(snaps))
	for _, snap := range snaps {
		batch = append(batch, s.statusGen.GenerateStatus(snap))
	}

	// Batch support if writer implements WriteBatch
	if bw, ok := s.writer.(batchWriter); ok {
		if err := bw.WriteBatch(batch); err != nil {
			log.Error("batch write failed", "err", err)
		}
	} else {
		for _, row := range batch {
			if err := s.writer.Write(row); err != nil {
				log.Error("write failed", "drone_id", row.DroneID, "err", err)
			}
		}
	}

	if sw, ok := s.writer.(StateWriter); ok {
		if err := sw.WriteState(s.State()); err != nil {
			log.Error("state write failed", "err", err)
		}
	}
}
