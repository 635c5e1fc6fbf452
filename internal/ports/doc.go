// Package ports defines the interfaces that connect the lifecycle engine to
// the framework that owns it.
//
// The engine executes lifecycle operations but knows nothing about
// activators, listeners or resolution. It reaches those through:
//
//   - [HookRunner]: runs a bundle's start/stop hook
//   - [EventNotifier]: delivers a bundle event to bundle listeners
//   - [FaultPublisher]: broadcasts framework-level fault events
//   - [WorkTracker]: counts background work that shutdown must drain
package ports
