package bundlekit

import (
	"github.com/bft-labs/bundlekit/internal/app"
	"github.com/bft-labs/bundlekit/internal/domain"
	"github.com/bft-labs/bundlekit/pkg/lifecycle"
	"github.com/bft-labs/bundlekit/pkg/log"
)

// Re-exported framework types.
type (
	// Activator is run when a bundle starts and stops.
	Activator = app.Activator

	// ActivatorFuncs adapts plain functions to Activator.
	ActivatorFuncs = app.ActivatorFuncs

	// Bundle is an installed bundle.
	Bundle = app.Bundle

	// BundleContext is a bundle's handle back into its framework.
	BundleContext = app.BundleContext

	// BundleSpec describes a bundle to install.
	BundleSpec = app.BundleSpec

	// BundleListener receives bundle events.
	BundleListener = app.BundleListener

	// FrameworkListener receives framework events.
	FrameworkListener = app.FrameworkListener

	// ListenerToken identifies a registered listener.
	ListenerToken = app.ListenerToken

	// BundleState is the lifecycle state of a bundle.
	BundleState = domain.State

	// BundleEvent reports a bundle state change.
	BundleEvent = domain.BundleEvent

	// BundleEventType discriminates bundle events.
	BundleEventType = domain.BundleEventType

	// FrameworkEvent is a framework-level notification.
	FrameworkEvent = domain.FrameworkEvent

	// FrameworkEventType discriminates framework events.
	FrameworkEventType = domain.FrameworkEventType

	// HookError wraps a failure raised by an activator.
	HookError = domain.HookError

	// PanicError carries a panic recovered from an activator or listener.
	PanicError = domain.PanicError

	// State is the lifecycle state of the framework.
	State = lifecycle.State

	// Logger is the interface for structured logging.
	Logger = log.Logger

	// LogField represents a structured log field.
	LogField = log.Field
)

// Framework states.
const (
	StateStopped  = lifecycle.StateStopped
	StateStarting = lifecycle.StateStarting
	StateRunning  = lifecycle.StateRunning
	StateStopping = lifecycle.StateStopping
	StateCrashed  = lifecycle.StateCrashed
)

// Bundle states.
const (
	BundleStateInstalled   = domain.StateInstalled
	BundleStateResolved    = domain.StateResolved
	BundleStateStarting    = domain.StateStarting
	BundleStateActive      = domain.StateActive
	BundleStateStopping    = domain.StateStopping
	BundleStateUninstalled = domain.StateUninstalled
)

// Bundle event types.
const (
	BundleInstalled   = domain.BundleInstalled
	BundleResolved    = domain.BundleResolved
	BundleStarting    = domain.BundleStarting
	BundleStarted     = domain.BundleStarted
	BundleStopping    = domain.BundleStopping
	BundleStopped     = domain.BundleStopped
	BundleUnresolved  = domain.BundleUnresolved
	BundleUninstalled = domain.BundleUninstalled
)

// Framework event types.
const (
	FrameworkStarted = domain.FrameworkStarted
	FrameworkError   = domain.FrameworkError
	FrameworkWarning = domain.FrameworkWarning
	FrameworkInfo    = domain.FrameworkInfo
	FrameworkStopped = domain.FrameworkStopped
)

// Errors returned by the framework. Compare with errors.Is.
var (
	ErrEngineClosed         = domain.ErrEngineClosed
	ErrBundleUninstalled    = domain.ErrBundleUninstalled
	ErrBundleNotFound       = domain.ErrBundleNotFound
	ErrDuplicateBundle      = domain.ErrDuplicateBundle
	ErrUnresolved           = domain.ErrUnresolved
	ErrTransitionInProgress = domain.ErrTransitionInProgress
	ErrAlreadyRunning       = domain.ErrAlreadyRunning
	ErrNotRunning           = domain.ErrNotRunning
	ErrShutdownTimeout      = domain.ErrShutdownTimeout
	ErrInvalidConfig        = domain.ErrInvalidConfig
)
