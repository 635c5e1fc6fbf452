// Package app implements the bundle framework on top of the lifecycle engine.
//
// A Framework owns a registry of bundles, a listener registry and an
// engine.Pool. Every activator callback and every bundle event delivery runs
// on an engine worker; callers block on the framework's rendezvous lock until
// the worker reports completion. Because the resolver and the bundle state
// machine share that lock, lifecycle calls issued from inside activators and
// listeners never deadlock against the call that triggered them.
package app
