package domain

import (
	"fmt"
	"time"
)

// BundleRef identifies a bundle without exposing its internals.
type BundleRef interface {
	ID() uint64
	SymbolicName() string
}

// BundleEventType discriminates bundle events.
type BundleEventType int

const (
	BundleInstalled BundleEventType = iota
	BundleResolved
	BundleStarting
	BundleStarted
	BundleStopping
	BundleStopped
	BundleUnresolved
	BundleUninstalled
)

func (t BundleEventType) String() string {
	switch t {
	case BundleInstalled:
		return "INSTALLED"
	case BundleResolved:
		return "RESOLVED"
	case BundleStarting:
		return "STARTING"
	case BundleStarted:
		return "STARTED"
	case BundleStopping:
		return "STOPPING"
	case BundleStopped:
		return "STOPPED"
	case BundleUnresolved:
		return "UNRESOLVED"
	case BundleUninstalled:
		return "UNINSTALLED"
	default:
		return fmt.Sprintf("BundleEventType(%d)", int(t))
	}
}

// BundleEvent reports a bundle state change. A zero Bundle marks an empty slot.
type BundleEvent struct {
	Type   BundleEventType
	Bundle BundleRef
}

// Empty reports whether the event carries no bundle.
func (e BundleEvent) Empty() bool { return e.Bundle == nil }

func (e BundleEvent) String() string {
	if e.Bundle == nil {
		return e.Type.String()
	}
	return fmt.Sprintf("%s %s", e.Type, e.Bundle.SymbolicName())
}

// FrameworkEventType discriminates framework events.
type FrameworkEventType int

const (
	FrameworkStarted FrameworkEventType = iota
	FrameworkError
	FrameworkWarning
	FrameworkInfo
	FrameworkStopped
)

func (t FrameworkEventType) String() string {
	switch t {
	case FrameworkStarted:
		return "STARTED"
	case FrameworkError:
		return "ERROR"
	case FrameworkWarning:
		return "WARNING"
	case FrameworkInfo:
		return "INFO"
	case FrameworkStopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("FrameworkEventType(%d)", int(t))
	}
}

// FrameworkEvent is a framework-level notification. Faults raised by bundle
// hooks arrive as FrameworkError events carrying the bundle and the error.
type FrameworkEvent struct {
	Type         FrameworkEventType
	BundleID     uint64
	SymbolicName string
	Message      string
	Err          error
	Time         time.Time
}
