package drone

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"fireops-sim/internal/incident"
)

// FaultPolicy decides whether a task fails. task is the 1-based number of
// tasks the drone has started, including this one.
type FaultPolicy interface {
	Inject(droneID string, task int, inc incident.Incident) (incident.FaultKind, bool)
}

// NoFaults never injects a fault.
type NoFaults struct{}

// Inject implements FaultPolicy.
func (NoFaults) Inject(string, int, incident.Incident) (incident.FaultKind, bool) {
	return "", false
}

// RandomFaults fails a task with the configured probability, picking one of
// Kinds uniformly.
type RandomFaults struct {
	Probability float64
	Kinds       []incident.FaultKind

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomFaults seeds the policy. A zero seed uses the current time.
func NewRandomFaults(probability float64, kinds []incident.FaultKind, seed int64) *RandomFaults {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if len(kinds) == 0 {
		kinds = incident.FaultKinds
	}
	return &RandomFaults{Probability: probability, Kinds: kinds, rng: rand.New(rand.NewSource(seed))}
}

// Inject implements FaultPolicy.
func (r *RandomFaults) Inject(string, int, incident.Incident) (incident.FaultKind, bool) {
	if r.Probability <= 0 {
		return "", false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rng.Float64() >= r.Probability {
		return "", false
	}
	return r.Kinds[r.rng.Intn(len(r.Kinds))], true
}

// ScriptedFaults fails every EveryNth task of each drone with Kind.
type ScriptedFaults struct {
	EveryNth int
	Kind     incident.FaultKind
}

// Inject implements FaultPolicy.
func (s ScriptedFaults) Inject(_ string, task int, _ incident.Incident) (incident.FaultKind, bool) {
	if s.EveryNth <= 0 || task%s.EveryNth != 0 {
		return "", false
	}
	kind := s.Kind
	if kind == "" {
		kind = incident.FaultMechanismJam
	}
	return kind, true
}

// Switch wraps a policy so injection can be turned on and off at runtime.
type Switch struct {
	policy  FaultPolicy
	enabled atomic.Bool
}

// NewSwitch returns a switch around p in the given state.
func NewSwitch(p FaultPolicy, enabled bool) *Switch {
	if p == nil {
		p = NoFaults{}
	}
	s := &Switch{policy: p}
	s.enabled.Store(enabled)
	return s
}

// Inject implements FaultPolicy.
func (s *Switch) Inject(droneID string, task int, inc incident.Incident) (incident.FaultKind, bool) {
	if !s.enabled.Load() {
		return "", false
	}
	return s.policy.Inject(droneID, task, inc)
}

// Toggle flips injection and returns the new state.
func (s *Switch) Toggle() bool {
	for {
		old := s.enabled.Load()
		if s.enabled.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// SetEnabled turns injection on or off.
func (s *Switch) SetEnabled(v bool) { s.enabled.Store(v) }

// Enabled reports whether injection is on.
func (s *Switch) Enabled() bool { return s.enabled.Load() }
