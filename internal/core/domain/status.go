package domain

import "time"

// State identifies one lifecycle state of an account.
type State string

const (
	StatePending   State = "pending"
	StateActive    State = "active"
	StateInactive  State = "inactive"
	StateLocked    State = "locked"
	StateSuspended State = "suspended"
	StateDeleted   State = "deleted"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// Valid reports whether the state is one of the known lifecycle states.
func (s State) Valid() bool {
	switch s {
	case StatePending, StateActive, StateInactive, StateLocked, StateSuspended, StateDeleted:
		return true
	}
	return false
}

// legalTransitions is the complete adjacency table of the account lifecycle.
// Encoding it as data keeps every edge independently testable; StateDeleted
// has no outgoing edges and is terminal.
var legalTransitions = map[State][]State{
	StatePending:   {StateActive, StateDeleted},
	StateActive:    {StateInactive, StateLocked, StateSuspended, StateDeleted},
	StateInactive:  {StateActive, StateDeleted},
	StateLocked:    {StateActive, StateDeleted},
	StateSuspended: {StateActive, StateDeleted},
	StateDeleted:   nil,
}

// Status is an immutable snapshot of the account lifecycle: the state tag,
// an optional human-readable reason, and the moment of the last transition.
// Every transition constructs a fresh value; the previous one is discarded,
// never mutated.
type Status struct {
	state     State
	reason    string
	changedAt time.Time
}

// NewStatus constructs a status snapshot stamped with the provided time.
func NewStatus(state State, reason string, at time.Time) Status {
	return Status{state: state, reason: reason, changedAt: at.UTC()}
}

// State returns the state tag.
func (s Status) State() State {
	return s.state
}

// Reason returns the free-text reason recorded at transition time.
func (s Status) Reason() string {
	return s.reason
}

// ChangedAt returns when the status last changed.
func (s Status) ChangedAt() time.Time {
	return s.changedAt
}

// Is reports whether the status carries the given state tag.
func (s Status) Is(state State) bool {
	return s.state == state
}

// CanTransitionTo is a pure lookup against the transition table.
func (s Status) CanTransitionTo(target State) bool {
	for _, next := range legalTransitions[s.state] {
		if next == target {
			return true
		}
	}
	return false
}

// TransitionTo returns the successor status or a TransitionError when the
// edge is absent from the table. The receiver is left untouched.
func (s Status) TransitionTo(target State, reason string, at time.Time) (Status, error) {
	if !s.CanTransitionTo(target) {
		return Status{}, &TransitionError{From: s.state, To: target}
	}
	return NewStatus(target, reason, at), nil
}
