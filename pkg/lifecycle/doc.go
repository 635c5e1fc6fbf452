// Package lifecycle provides orchestration and state machine functionality.
//
// This package tracks the state of a bundle framework instance and the
// background goroutines that must finish before a stop completes.
//
// # Usage
//
// The framework owns one manager per instance:
//
//	manager := lifecycle.NewManager(logger, emitter)
//
//	if err := manager.TransitionTo(lifecycle.StateStarting, "Start() called"); err != nil {
//	    return err // *TransitionError, errors.Is(err, ErrAlreadyRunning)
//	}
//
//	// fault publishers and watchers register themselves
//	manager.AddWorker()
//	go func() { defer manager.WorkerDone(); publish() }()
//
//	// on stop, wait for them
//	if err := manager.WaitWithTimeout(10 * time.Second); err != nil {
//	    return err // ErrShutdownTimeout
//	}
//
// # State Machine
//
// Valid state transitions:
//   - Stopped -> Starting
//   - Starting -> Running, Stopping, Crashed
//   - Running -> Stopping, Crashed
//   - Stopping -> Stopped, Crashed
//   - Crashed -> Starting
//
// Any other move is rejected with a *TransitionError. Crashed is entered when
// a plugin fails to initialize or shutdown does not drain in time; a crashed
// framework may be started again.
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package lifecycle
