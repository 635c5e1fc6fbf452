package app

import (
	"context"
	"sync"

	"github.com/bft-labs/bundlekit/internal/domain"
	"github.com/bft-labs/bundlekit/internal/engine"
)

// BundleSpec describes a bundle to install.
type BundleSpec struct {
	SymbolicName string
	Version      string
	Location     string
	// Requires lists symbolic names that must be installed for this bundle
	// to resolve.
	Requires  []string
	Activator Activator
}

// Bundle is an installed bundle.
type Bundle struct {
	id        uint64
	name      string
	version   string
	location  string
	requires  []string
	activator Activator
	fw        *Framework
	bc        *BundleContext

	// state is guarded by the framework rendezvous.
	state domain.State

	wmu    sync.Mutex
	worker *engine.Worker
}

func newBundle(id uint64, spec BundleSpec, fw *Framework) *Bundle {
	b := &Bundle{
		id:        id,
		name:      spec.SymbolicName,
		version:   spec.Version,
		location:  spec.Location,
		requires:  append([]string(nil), spec.Requires...),
		activator: spec.Activator,
		fw:        fw,
		state:     domain.StateInstalled,
	}
	b.bc = &BundleContext{bundle: b, fw: fw}
	return b
}

func (b *Bundle) ID() uint64           { return b.id }
func (b *Bundle) SymbolicName() string { return b.name }
func (b *Bundle) Version() string      { return b.version }
func (b *Bundle) Location() string     { return b.location }

// Requires returns the symbolic names the bundle depends on.
func (b *Bundle) Requires() []string {
	return append([]string(nil), b.requires...)
}

// Context returns the bundle's handle into the framework.
func (b *Bundle) Context() *BundleContext { return b.bc }

// State returns the current bundle state.
func (b *Bundle) State() domain.State {
	b.fw.rv.Lock()
	defer b.fw.rv.Unlock()
	return b.state
}

// Start resolves the bundle if needed and runs its activator's Start.
func (b *Bundle) Start(ctx context.Context) error { return b.fw.startBundle(ctx, b) }

// Stop runs the activator's Stop on an active bundle.
func (b *Bundle) Stop(ctx context.Context) error { return b.fw.stopBundle(ctx, b) }

// Uninstall stops the bundle if it is active and removes it.
func (b *Bundle) Uninstall(ctx context.Context) error { return b.fw.uninstallBundle(ctx, b) }

// SetWorker records the worker running the bundle's current start or stop.
func (b *Bundle) SetWorker(w *engine.Worker) {
	b.wmu.Lock()
	b.worker = w
	b.wmu.Unlock()
}

// ResetWorker clears the worker recorded by SetWorker.
func (b *Bundle) ResetWorker() {
	b.wmu.Lock()
	b.worker = nil
	b.wmu.Unlock()
}

// Worker returns the worker running the bundle's transition, if any.
func (b *Bundle) Worker() *engine.Worker {
	b.wmu.Lock()
	defer b.wmu.Unlock()
	return b.worker
}

func (b *Bundle) String() string { return b.name }

var (
	_ domain.BundleRef    = (*Bundle)(nil)
	_ engine.WorkerHolder = (*Bundle)(nil)
)
