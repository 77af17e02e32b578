// Package runstate provides the state machine for task runs.
//
// A task run is one execution of an agent's objective loop. Each run moves
// through the state machine until it reaches a terminal state.
//
//	pending -> running     (worker goroutine picked the run up)
//	pending -> stopped     (stop requested before the worker started)
//	running -> completed   (objective loop ran out of tasks or iterations)
//	running -> stopped     (stop signal observed)
//	* -> failed            (runner returned an error or panicked)
//
// Terminal states (completed, stopped, failed) cannot transition further.
package runstate

import (
	"database/sql/driver"
	"fmt"
)

// State represents the current state of a task run.
type State string

const (
	// StatePending indicates the run is registered but its worker has not started.
	StatePending State = "pending"

	// StateRunning indicates the worker is executing the objective loop.
	StateRunning State = "running"

	// StateCompleted indicates the loop finished on its own.
	StateCompleted State = "completed"

	// StateStopped indicates the run ended because its stop signal was set.
	StateStopped State = "stopped"

	// StateFailed indicates the runner returned an error or panicked.
	StateFailed State = "failed"
)

// AllStates returns all possible run states.
func AllStates() []State {
	return []State{
		StatePending,
		StateRunning,
		StateCompleted,
		StateStopped,
		StateFailed,
	}
}

// TerminalStates returns all terminal (final) states.
func TerminalStates() []State {
	return []State{
		StateCompleted,
		StateStopped,
		StateFailed,
	}
}

// IsValid returns true if the state is a valid State value.
func (s State) IsValid() bool {
	switch s {
	case StatePending, StateRunning, StateCompleted, StateStopped, StateFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the state is a terminal (final) state.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateStopped, StateFailed:
		return true
	default:
		return false
	}
}

// IsActive returns true while the run still has a live worker.
func (s State) IsActive() bool {
	return s == StatePending || s == StateRunning
}

// CanTransitionTo returns true if a transition from this state to the
// target state is valid.
//
// Valid transitions:
//   - pending -> running
//   - pending -> stopped
//   - pending -> failed
//   - running -> completed
//   - running -> stopped
//   - running -> failed
func (s State) CanTransitionTo(target State) bool {
	if s.IsTerminal() || s == target {
		return false
	}

	switch s {
	case StatePending:
		return target == StateRunning || target == StateStopped || target == StateFailed
	case StateRunning:
		return target.IsTerminal()
	}

	return false
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// Value implements driver.Valuer for database serialization.
func (s State) Value() (driver.Value, error) {
	return string(s), nil
}

// Scan implements sql.Scanner for database deserialization.
func (s *State) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("runstate: cannot scan type %T into State", src)
	}

	state := State(raw)
	if !state.IsValid() {
		return fmt.Errorf("runstate: invalid state %q", raw)
	}
	*s = state
	return nil
}

// Transition represents a state transition with validation.
type Transition struct {
	From State
	To   State
}

// Validate returns an error if the transition is invalid.
func (t Transition) Validate() error {
	if !t.From.IsValid() {
		return fmt.Errorf("runstate: invalid source state %q", t.From)
	}
	if !t.To.IsValid() {
		return fmt.Errorf("runstate: invalid target state %q", t.To)
	}
	if !t.From.CanTransitionTo(t.To) {
		return fmt.Errorf("runstate: invalid transition from %q to %q", t.From, t.To)
	}
	return nil
}

// ValidTransitions returns all valid state transitions.
func ValidTransitions() []Transition {
	return []Transition{
		// From pending
		{From: StatePending, To: StateRunning},
		{From: StatePending, To: StateStopped},
		{From: StatePending, To: StateFailed},
		// From running
		{From: StateRunning, To: StateCompleted},
		{From: StateRunning, To: StateStopped},
		{From: StateRunning, To: StateFailed},
	}
}
