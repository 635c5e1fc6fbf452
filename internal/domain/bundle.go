package domain

// State is the lifecycle state of a bundle.
type State int

const (
	StateInstalled State = iota
	StateResolved
	StateStarting
	StateActive
	StateStopping
	StateUninstalled
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateInstalled:
		return "Installed"
	case StateResolved:
		return "Resolved"
	case StateStarting:
		return "Starting"
	case StateActive:
		return "Active"
	case StateStopping:
		return "Stopping"
	case StateUninstalled:
		return "Uninstalled"
	default:
		return "Unknown"
	}
}

// Transitional reports whether the state is held only while a hook runs.
func (s State) Transitional() bool {
	return s == StateStarting || s == StateStopping
}

// CanTransitionTo reports whether next is a legal successor of s.
//
//	Installed -> Resolved, Uninstalled
//	Resolved  -> Starting, Installed, Uninstalled
//	Starting  -> Active, Resolved
//	Active    -> Stopping
//	Stopping  -> Resolved
func (s State) CanTransitionTo(next State) bool {
	switch s {
	case StateInstalled:
		return next == StateResolved || next == StateUninstalled
	case StateResolved:
		return next == StateStarting || next == StateInstalled || next == StateUninstalled
	case StateStarting:
		return next == StateActive || next == StateResolved
	case StateActive:
		return next == StateStopping
	case StateStopping:
		return next == StateResolved
	}
	return false
}
