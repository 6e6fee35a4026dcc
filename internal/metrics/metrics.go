// Package metrics exposes dispatch and drone activity as Prometheus metrics.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Sink records simulation activity for observability purposes.
type Sink interface {
	DispatchEvent(event string)
	Response(kind string)
	Fault(kind string)
	Transition(from, to string)
	Turnaround(units float64)
	Backlog(n int)
}

// Nop implements Sink with no-op methods.
type Nop struct{}

func (Nop) DispatchEvent(string)      {}
func (Nop) Response(string)           {}
func (Nop) Fault(string)              {}
func (Nop) Transition(string, string) {}
func (Nop) Turnaround(float64)        {}
func (Nop) Backlog(int)               {}

// Prom records activity in Prometheus collectors.
type Prom struct {
	dispatch    *prometheus.CounterVec
	responses   *prometheus.CounterVec
	faults      *prometheus.CounterVec
	inState     *prometheus.GaugeVec
	transitions *prometheus.CounterVec
	turnaround  prometheus.Histogram
	backlog     prometheus.Gauge
}

// NewProm registers the collectors on reg (the default registerer when nil).
// Collectors that are already registered are reused.
func NewProm(reg prometheus.Registerer) (*Prom, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Prom{
		dispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fireops_dispatch_events_total",
			Help: "Rendezvous operations completed by the dispatcher",
		}, []string{"event"}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fireops_responses_total",
			Help: "Responses emitted by drones",
		}, []string{"kind"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fireops_faults_total",
			Help: "Injected drone faults",
		}, []string{"kind"}),
		inState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fireops_drones_in_state",
			Help: "Number of drones currently in each state",
		}, []string{"state"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fireops_state_transitions_total",
			Help: "Drone state machine transitions",
		}, []string{"from", "to"}),
		turnaround: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fireops_incident_turnaround_units",
			Help:    "Simulated time units from claim to resolution",
			Buckets: prometheus.LinearBuckets(20, 20, 10),
		}),
		backlog: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fireops_incident_backlog",
			Help: "Incidents waiting to be submitted to the dispatcher",
		}),
	}
	var err error
	if p.dispatch, err = register(reg, p.dispatch); err != nil {
		return nil, err
	}
	if p.responses, err = register(reg, p.responses); err != nil {
		return nil, err
	}
	if p.faults, err = register(reg, p.faults); err != nil {
		return nil, err
	}
	if p.inState, err = register(reg, p.inState); err != nil {
		return nil, err
	}
	if p.transitions, err = register(reg, p.transitions); err != nil {
		return nil, err
	}
	if p.turnaround, err = register(reg, p.turnaround); err != nil {
		return nil, err
	}
	if p.backlog, err = register(reg, p.backlog); err != nil {
		return nil, err
	}
	return p, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (p *Prom) DispatchEvent(event string) { p.dispatch.WithLabelValues(event).Inc() }

func (p *Prom) Response(kind string) { p.responses.WithLabelValues(kind).Inc() }

func (p *Prom) Fault(kind string) { p.faults.WithLabelValues(kind).Inc() }

// Transition moves one drone from one state gauge to the other.
func (p *Prom) Transition(from, to string) {
	p.transitions.WithLabelValues(from, to).Inc()
	p.inState.WithLabelValues(from).Dec()
	p.inState.WithLabelValues(to).Inc()
}

// AddDrones records n drones starting in state.
func (p *Prom) AddDrones(state string, n int) {
	p.inState.WithLabelValues(state).Add(float64(n))
}

func (p *Prom) Turnaround(units float64) { p.turnaround.Observe(units) }

func (p *Prom) Backlog(n int) { p.backlog.Set(float64(n)) }
