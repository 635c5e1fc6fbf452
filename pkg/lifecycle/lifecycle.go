package lifecycle

import (
	"fmt"
	"time"
)

// State represents the lifecycle state of a framework instance.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// transitions lists the states reachable from each state.
var transitions = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateStopping, StateCrashed},
	StateRunning:  {StateStopping, StateCrashed},
	StateStopping: {StateStopped, StateCrashed},
	StateCrashed:  {StateStarting},
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s State) CanTransitionTo(next State) bool {
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// CanStart reports whether a framework in this state may be started.
func (s State) CanStart() bool { return s.CanTransitionTo(StateStarting) }

// CanStop reports whether a framework in this state may be stopped.
func (s State) CanStop() bool { return s.CanTransitionTo(StateStopping) }

// IsRunning reports whether the framework accepts lifecycle calls normally.
func (s State) IsRunning() bool { return s == StateRunning }

// TransitionError reports a rejected state change. It unwraps to
// ErrNotRunning when leaving a stopped or crashed framework and to
// ErrAlreadyRunning otherwise.
type TransitionError struct {
	From, To State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("lifecycle: cannot go from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	if e.From == StateStopped || e.From == StateCrashed {
		return ErrNotRunning
	}
	return ErrAlreadyRunning
}

// EventEmitter is called when lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Manager drives the framework state machine and counts the background
// goroutines a stop has to wait for.
type Manager interface {
	// State returns the current lifecycle state.
	State() State

	// CanStart returns true if Start() can be called.
	CanStart() bool

	// CanStop returns true if Stop() can be called.
	CanStop() bool

	// TransitionTo attempts to transition to a new state.
	// Returns an error if the transition is not valid.
	TransitionTo(newState State, reason string) error

	// WaitWithTimeout waits for all workers to finish with a timeout.
	// Returns ErrShutdownTimeout if the timeout expires.
	WaitWithTimeout(timeout time.Duration) error

	// AddWorker increments the worker count.
	AddWorker()

	// WorkerDone decrements the worker count.
	WorkerDone()
}
