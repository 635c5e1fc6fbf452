package domain

import (
	"errors"
	"fmt"
)

// Domain errors returned by the framework and the lifecycle engine.
var (
	// ErrEngineClosed is returned when an operation is requested after the
	// engine shut down, or was posted but never claimed before shutdown.
	ErrEngineClosed = errors.New("bundlekit: lifecycle engine closed")

	// ErrBundleUninstalled is returned for lifecycle calls on an uninstalled bundle.
	ErrBundleUninstalled = errors.New("bundlekit: bundle uninstalled")

	// ErrBundleNotFound is returned when no bundle has the requested id or name.
	ErrBundleNotFound = errors.New("bundlekit: bundle not found")

	// ErrDuplicateBundle is returned when installing a symbolic name twice.
	ErrDuplicateBundle = errors.New("bundlekit: bundle already installed")

	// ErrUnresolved is returned when a bundle's requirements cannot be met.
	ErrUnresolved = errors.New("bundlekit: bundle cannot be resolved")

	// ErrTransitionInProgress is returned when a bundle's own lifecycle hook
	// asks for a transition of that same bundle.
	ErrTransitionInProgress = errors.New("bundlekit: bundle transition in progress")

	// ErrInvalidTransition is returned when a state change is not allowed.
	ErrInvalidTransition = errors.New("bundlekit: invalid state transition")

	// ErrAlreadyRunning is returned when Start() is called on a running framework.
	ErrAlreadyRunning = errors.New("bundlekit: already running")

	// ErrNotRunning is returned when the framework is not running.
	ErrNotRunning = errors.New("bundlekit: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("bundlekit: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("bundlekit: invalid configuration")
)

// HookError reports a failure raised by bundle-supplied code.
type HookError struct {
	BundleID     uint64
	SymbolicName string
	Op           string
	Err          error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("bundle %s (%d): %s: %v", e.SymbolicName, e.BundleID, e.Op, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// PanicError carries a value recovered from a panicking hook.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
