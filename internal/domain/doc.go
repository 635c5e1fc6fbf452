// Package domain contains the core value types of bundlekit.
//
// It has no dependencies on infrastructure (logging, goroutines, files) and
// holds only the vocabulary shared by the engine and the framework:
//
//   - [State]: the lifecycle state of a bundle and its legal transitions
//   - [BundleEvent]: a notification that a bundle changed state
//   - [FrameworkEvent]: a framework-level notification, including faults
//   - sentinel errors checked with errors.Is
package domain
