// Package fsm implements the table-driven state machine that drives a drone
// through one incident cycle.
package fsm

import (
	"context"
	"sync"
	"time"
)

// State tags one step of the drone cycle.
type State string

const (
	Idle          State = "IDLE"
	EnRoute       State = "EN_ROUTE"
	ExecutingTask State = "EXECUTING_TASK"
	Returning     State = "RETURNING"
	Replenishing  State = "REPLENISHING"
	Completed     State = "COMPLETED"
	Faulted       State = "FAULTED"
)

// States lists every state in cycle order, FAULTED last.
var States = []State{Idle, EnRoute, ExecutingTask, Returning, Replenishing, Completed, Faulted}

// NextState is the declared default transition for each state.
// It is shared by every machine and must not be modified.
var NextState = map[State]State{
	Idle:          EnRoute,
	EnRoute:       ExecutingTask,
	ExecutingTask: Returning,
	Returning:     Replenishing,
	Replenishing:  Completed,
	Completed:     Idle,
	Faulted:       Returning,
}

// Action is the routine run while a machine is in a state. It may call
// Machine.Set to override the declared transition.
type Action func(ctx context.Context)

// Transition records a state change.
type Transition struct {
	From      State
	To        State
	Timestamp time.Time
}

// Machine binds per-agent actions to the shared transition table.
type Machine struct {
	mu       sync.Mutex
	current  State
	actions  map[State]Action
	history  []Transition
	maxHist  int
	seq      uint64
	observer func(Transition)
	now      func() time.Time
}

// New creates a machine in the IDLE state.
func New() *Machine {
	return &Machine{
		current: Idle,
		actions: make(map[State]Action),
		maxHist: 256,
		now:     time.Now,
	}
}

// Bind registers the action run in state s.
func (m *Machine) Bind(s State, a Action) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions[s] = a
}

// OnTransition installs a callback invoked after every state change.
// The callback runs without the machine lock held.
func (m *Machine) OnTransition(fn func(Transition)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = fn
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Set moves the machine to s. Calling it from inside an action vetoes the
// declared transition for that step.
func (m *Machine) Set(s State) {
	m.mu.Lock()
	tr, obs := m.setLocked(s)
	m.mu.Unlock()
	if obs != nil {
		obs(tr)
	}
}

// Stay vetoes the declared transition without recording a state change.
// An action calls it when it has nothing to do yet, e.g. IDLE without work.
func (m *Machine) Stay() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
}

func (m *Machine) setLocked(s State) (Transition, func(Transition)) {
	tr := Transition{From: m.current, To: s, Timestamp: m.now().UTC()}
	m.current = s
	m.seq++
	m.history = append(m.history, tr)
	if len(m.history) > m.maxHist {
		m.history = m.history[len(m.history)-m.maxHist:]
	}
	return tr, m.observer
}

// Step runs the action of the current state and then, unless the action
// changed the state itself, moves to the declared next state. Unknown or
// unbound states fall back to IDLE without running anything.
// It returns the state the machine is in afterwards.
func (m *Machine) Step(ctx context.Context) State {
	m.mu.Lock()
	from := m.current
	action, bound := m.actions[from]
	next, known := NextState[from]
	if !bound || !known {
		tr, obs := m.setLocked(Idle)
		m.mu.Unlock()
		if obs != nil {
			obs(tr)
		}
		return Idle
	}
	// seq lets us detect a Set made by the action, even one that lands
	// back on the same state.
	mark := m.seq
	m.mu.Unlock()

	action(ctx)

	m.mu.Lock()
	if m.seq != mark {
		cur := m.current
		m.mu.Unlock()
		return cur
	}
	tr, obs := m.setLocked(next)
	m.mu.Unlock()
	if obs != nil {
		obs(tr)
	}
	return next
}

// Transitions returns a copy of the recorded transitions, oldest first.
func (m *Machine) Transitions() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Transition, len(m.history))
	copy(out, m.history)
	return out
}
