package keyframe

import (
	"time"

	"autocaption/internal/similarity"
)

// State is the machine's coarse state.
type State int

const (
	NoActiveRun State = iota
	InRun
)

func (s State) String() string {
	if s == InRun {
		return "in_run"
	}
	return "no_active_run"
}

// Machine segments an ordered observation stream into runs. It is a
// deterministic fold: all state lives on the instance and a single goroutine
// must drive it.
//
// With short-run merging enabled, each closed run is held back one step so
// a short successor can still be folded into it.
type Machine struct {
	scorer   similarity.Scorer
	selector Selector
	opts     Options

	current *Run
	held    *Run
	lastTS  time.Duration
}

// NewMachine builds a machine. Options should already be validated against
// scorer.
func NewMachine(scorer similarity.Scorer, selector Selector, opts Options) *Machine {
	return &Machine{scorer: scorer, selector: selector, opts: opts}
}

// State reports whether a run is open.
func (m *Machine) State() State {
	if m.current != nil {
		return InRun
	}
	return NoActiveRun
}

// Push places obs and returns any key frames finalized by this step.
// Observations must arrive in strictly increasing index order.
func (m *Machine) Push(obs Observation) []KeyFrame {
	m.lastTS = obs.Frame.Timestamp
	if m.current == nil {
		m.current = m.selector.Seed(obs)
		return nil
	}
	if m.accept(obs) {
		return nil
	}
	m.current.End = obs.Frame.Timestamp
	return m.closeCurrent(obs)
}

// accept extends the open run with obs when it matches the reference.
func (m *Machine) accept(obs Observation) bool {
	score := m.scorer.Compare(m.current.reference, obs.Signature)
	if score < m.opts.SimilarityThreshold {
		return false
	}
	m.selector.Add(m.current, obs)
	if m.opts.RollingReference {
		m.current.reference = obs.Signature
	}
	return true
}

// closeCurrent finalizes the open run, whose End is already set, and starts
// a new run at trigger.
func (m *Machine) closeCurrent(trigger Observation) []KeyFrame {
	closed := m.current
	if !m.opts.merging() {
		m.current = m.selector.Seed(trigger)
		return []KeyFrame{m.selector.Select(closed)}
	}

	if m.held != nil && closed.Duration() < m.opts.MinRunDuration {
		m.selector.Merge(m.held, closed)
		m.current, m.held = m.held, nil
		if m.accept(trigger) {
			return nil
		}
		m.current.End = trigger.Frame.Timestamp
		return m.closeCurrent(trigger)
	}

	var out []KeyFrame
	if m.held != nil {
		out = append(out, m.selector.Select(m.held))
	}
	m.held = closed
	m.current = m.selector.Seed(trigger)
	return out
}

// Finish closes the open run at videoEnd, or at the last observed timestamp
// when that is later, and returns every remaining key frame. The machine is
// reset and may be reused.
func (m *Machine) Finish(videoEnd time.Duration) []KeyFrame {
	defer m.reset()
	var out []KeyFrame
	if m.current == nil {
		if m.held != nil {
			out = append(out, m.selector.Select(m.held))
		}
		return out
	}

	m.current.End = max(videoEnd, m.lastTS)
	if m.opts.merging() && m.held != nil && m.current.Duration() < m.opts.MinRunDuration {
		m.selector.Merge(m.held, m.current)
		return append(out, m.selector.Select(m.held))
	}
	if m.held != nil {
		out = append(out, m.selector.Select(m.held))
	}
	return append(out, m.selector.Select(m.current))
}

// Abort drops the open run and returns key frames for runs that had already
// closed. The machine is reset.
func (m *Machine) Abort() []KeyFrame {
	defer m.reset()
	if m.held == nil {
		return nil
	}
	return []KeyFrame{m.selector.Select(m.held)}
}

func (m *Machine) reset() {
	m.current = nil
	m.held = nil
	m.lastTS = 0
}
