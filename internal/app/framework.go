package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/bundlekit/internal/domain"
	"github.com/bft-labs/bundlekit/internal/engine"
	"github.com/bft-labs/bundlekit/pkg/lifecycle"
	"github.com/bft-labs/bundlekit/pkg/log"
)

// Default framework configuration values.
const (
	DefaultStopTimeout       = 10 * time.Second
	DefaultTransitionTimeout = 30 * time.Second
)

// Extension is started with the framework and stopped before its bundles.
// Extensions are initialized in order and shut down in reverse order.
type Extension interface {
	Name() string
	Initialize(ctx context.Context, f *Framework) error
	Shutdown(ctx context.Context) error
}

// Config holds the framework settings.
type Config struct {
	// KeepAlive is how long an idle engine worker lingers before retiring.
	KeepAlive time.Duration
	// Inline runs activators and listeners on the calling goroutine.
	Inline bool
	// StopTimeout bounds the wait for fault publishers during Stop.
	StopTimeout time.Duration
	// TransitionTimeout bounds how long a lifecycle call waits for another
	// caller's transition of the same bundle.
	TransitionTimeout time.Duration
	// Metrics receives engine measurements. A private set is used when nil.
	Metrics *engine.Metrics
	// Extensions run alongside the framework.
	Extensions []Extension
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	if c.KeepAlive <= 0 {
		c.KeepAlive = engine.DefaultKeepAlive
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = DefaultStopTimeout
	}
	if c.TransitionTimeout <= 0 {
		c.TransitionTimeout = DefaultTransitionTimeout
	}
	if c.Metrics == nil {
		c.Metrics = engine.NewMetrics("bundlekit")
	}
}

// Framework is an in-process bundle runtime.
type Framework struct {
	id        uuid.UUID
	cfg       Config
	logger    log.Logger
	lifecycle *lifecycle.DefaultManager
	rv        *engine.Rendezvous
	listeners *listenerRegistry
	resolver  resolver

	mu         sync.Mutex
	pool       *engine.Pool
	extensions []Extension // initialized ones
	stopped    chan struct{}
	stopOnce   *sync.Once

	// Guarded by rv.
	bundles map[uint64]*Bundle
	byName  map[string]*Bundle
	nextID  uint64
}

// New creates a stopped framework.
func New(cfg Config, logger log.Logger, emitter lifecycle.EventEmitter) *Framework {
	cfg.SetDefaults()
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	id := uuid.New()
	logger = logger.With(log.String("framework", id.String()))

	f := &Framework{
		id:        id,
		cfg:       cfg,
		logger:    logger,
		lifecycle: lifecycle.NewManager(logger, emitter),
		rv:        engine.NewRendezvous(),
		listeners: newListenerRegistry(logger),
		bundles:   make(map[uint64]*Bundle),
		byName:    make(map[string]*Bundle),
	}
	f.resolver = resolver{lookup: func(name string) (*Bundle, bool) {
		b, ok := f.byName[name]
		return b, ok
	}}
	return f
}

// ID returns the framework instance identifier.
func (f *Framework) ID() uuid.UUID { return f.id }

// State returns the framework lifecycle state.
func (f *Framework) State() lifecycle.State { return f.lifecycle.State() }

// Metrics returns the engine collectors.
func (f *Framework) Metrics() *engine.Metrics { return f.cfg.Metrics }

// Logger returns the framework logger.
func (f *Framework) Logger() log.Logger { return f.logger }

// Start starts the lifecycle engine and initializes the extensions.
func (f *Framework) Start(ctx context.Context) error {
	f.mu.Lock()
	if !f.lifecycle.CanStart() {
		f.mu.Unlock()
		return domain.ErrAlreadyRunning
	}
	if err := f.lifecycle.TransitionTo(lifecycle.StateStarting, "Start() called"); err != nil {
		f.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	f.lifecycle.SetCancel(cancel)
	f.pool = engine.NewPool(hookRunner{f: f}, f.listeners, f.listeners,
		engine.WithKeepAlive(f.cfg.KeepAlive),
		engine.WithInline(f.cfg.Inline),
		engine.WithLogger(f.logger),
		engine.WithMetrics(f.cfg.Metrics),
		engine.WithRendezvous(f.rv),
		engine.WithWorkTracker(f.lifecycle),
	)
	f.extensions = nil
	f.stopped = make(chan struct{})
	f.stopOnce = new(sync.Once)
	f.mu.Unlock()

	for _, ext := range f.cfg.Extensions {
		if err := ext.Initialize(runCtx, f); err != nil {
			f.logger.Error("extension initialization failed",
				log.String("extension", ext.Name()),
				log.Err(err),
			)
			f.abortStart(ctx, "extension init failed: "+ext.Name())
			return fmt.Errorf("initialize %s: %w", ext.Name(), err)
		}

		// A Stop issued during Initialize has already taken its snapshot
		// of the extensions, so a late one is shut down here.
		f.mu.Lock()
		starting := f.lifecycle.State() == lifecycle.StateStarting
		if starting {
			f.extensions = append(f.extensions, ext)
		}
		f.mu.Unlock()
		if !starting {
			if err := ext.Shutdown(ctx); err != nil {
				f.logger.Error("extension shutdown failed",
					log.String("extension", ext.Name()),
					log.Err(err),
				)
			}
			return fmt.Errorf("framework stopped while initializing %s: %w", ext.Name(), domain.ErrNotRunning)
		}
		f.logger.Info("extension initialized", log.String("extension", ext.Name()))
	}

	if err := f.lifecycle.TransitionTo(lifecycle.StateRunning, "framework started"); err != nil {
		return fmt.Errorf("framework stopped during startup: %w", domain.ErrNotRunning)
	}
	f.publish(domain.FrameworkEvent{Type: domain.FrameworkStarted, Message: "framework started"})
	return nil
}

// abortStart tears down a failed start. It owns the shutdown only if it
// moves the framework out of Starting; otherwise a Stop already did.
func (f *Framework) abortStart(ctx context.Context, reason string) {
	if err := f.lifecycle.TransitionTo(lifecycle.StateStopping, reason); err != nil {
		f.logger.Debug("start aborted after stop", log.Err(err))
		return
	}
	f.shutdownExtensions(ctx)
	f.stopBundles(ctx)
	f.lifecycle.Cancel()

	f.mu.Lock()
	pool, stopped, once := f.pool, f.stopped, f.stopOnce
	f.mu.Unlock()

	pool.Shutdown(ctx)
	_ = f.lifecycle.WaitWithTimeout(f.cfg.StopTimeout)
	_ = f.lifecycle.TransitionTo(lifecycle.StateCrashed, reason)
	once.Do(func() { close(stopped) })
}

// Stop stops every bundle, shuts the extensions and the engine down and
// waits for outstanding fault publishers. Called from an activator or a
// listener, Stop returns at once and the shutdown continues in the
// background; use WaitForStop to wait for it.
func (f *Framework) Stop(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !f.lifecycle.CanStop() {
		return domain.ErrNotRunning
	}
	if err := f.lifecycle.TransitionTo(lifecycle.StateStopping, "Stop() called"); err != nil {
		return err
	}
	if engine.OnWorker(ctx) {
		f.logger.Debug("stop requested from a lifecycle hook, continuing asynchronously")
		go func() { _ = f.shutdown(context.Background()) }()
		return nil
	}
	return f.shutdown(ctx)
}

func (f *Framework) shutdown(ctx context.Context) error {
	f.shutdownExtensions(ctx)
	f.stopBundles(ctx)
	f.lifecycle.Cancel()

	f.mu.Lock()
	pool, stopped, once := f.pool, f.stopped, f.stopOnce
	f.mu.Unlock()

	pool.Shutdown(ctx)
	err := f.lifecycle.WaitWithTimeout(f.cfg.StopTimeout)

	f.publish(domain.FrameworkEvent{Type: domain.FrameworkStopped, Message: "framework stopped"})
	if err != nil {
		_ = f.lifecycle.TransitionTo(lifecycle.StateCrashed, "shutdown timeout")
	} else {
		_ = f.lifecycle.TransitionTo(lifecycle.StateStopped, "graceful shutdown")
	}
	once.Do(func() { close(stopped) })
	return err
}

func (f *Framework) shutdownExtensions(ctx context.Context) {
	f.mu.Lock()
	exts := f.extensions
	f.extensions = nil
	f.mu.Unlock()

	for i := len(exts) - 1; i >= 0; i-- {
		ext := exts[i]
		if err := ext.Shutdown(ctx); err != nil {
			f.logger.Error("extension shutdown failed",
				log.String("extension", ext.Name()),
				log.Err(err),
			)
			continue
		}
		f.logger.Info("extension shutdown complete", log.String("extension", ext.Name()))
	}
}

// stopBundles stops started bundles in reverse install order.
func (f *Framework) stopBundles(ctx context.Context) {
	f.rv.Lock()
	var started []*Bundle
	for _, b := range f.bundles {
		switch b.state {
		case domain.StateStarting, domain.StateActive, domain.StateStopping:
			started = append(started, b)
		}
	}
	f.rv.Unlock()

	sort.Slice(started, func(i, j int) bool { return started[i].id > started[j].id })
	for _, b := range started {
		if err := f.stopBundle(ctx, b); err != nil {
			f.logger.Warn("bundle stop failed during shutdown",
				append(log.Bundle(b.id, b.name), log.Err(err))...,
			)
		}
	}
}

// WaitForStop waits until a Stop in progress has finished.
func (f *Framework) WaitForStop(timeout time.Duration) error {
	f.mu.Lock()
	stopped := f.stopped
	f.mu.Unlock()
	if stopped == nil {
		return nil
	}

	select {
	case <-stopped:
		return nil
	case <-time.After(timeout):
		return domain.ErrShutdownTimeout
	}
}

// engine returns the pool while the framework accepts lifecycle calls.
func (f *Framework) engine() (*engine.Pool, error) {
	switch f.lifecycle.State() {
	case lifecycle.StateStarting, lifecycle.StateRunning, lifecycle.StateStopping:
	default:
		return nil, domain.ErrNotRunning
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pool == nil {
		return nil, domain.ErrNotRunning
	}
	return f.pool, nil
}

// Install adds a bundle in the Installed state.
func (f *Framework) Install(ctx context.Context, spec BundleSpec) (*Bundle, error) {
	if spec.SymbolicName == "" {
		return nil, fmt.Errorf("%w: bundle symbolic name is empty", domain.ErrInvalidConfig)
	}
	if _, err := f.engine(); err != nil {
		return nil, err
	}

	f.rv.Lock()
	if _, ok := f.byName[spec.SymbolicName]; ok {
		f.rv.Unlock()
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateBundle, spec.SymbolicName)
	}
	f.nextID++
	b := newBundle(f.nextID, spec, f)
	f.bundles[b.id] = b
	f.byName[b.name] = b
	f.rv.Unlock()

	f.logger.Info("bundle installed", log.Bundle(b.id, b.name)...)
	f.fire(ctx, domain.BundleInstalled, b)
	return b, nil
}

// Bundle returns the installed bundle with the given id.
func (f *Framework) Bundle(id uint64) (*Bundle, bool) {
	f.rv.Lock()
	defer f.rv.Unlock()
	b, ok := f.bundles[id]
	return b, ok
}

// Lookup returns the installed bundle with the given symbolic name.
func (f *Framework) Lookup(name string) (*Bundle, bool) {
	f.rv.Lock()
	defer f.rv.Unlock()
	b, ok := f.byName[name]
	return b, ok
}

// Bundles returns every installed bundle ordered by id.
func (f *Framework) Bundles() []*Bundle {
	f.rv.Lock()
	out := make([]*Bundle, 0, len(f.bundles))
	for _, b := range f.bundles {
		out = append(out, b)
	}
	f.rv.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// StartAll starts bundles concurrently and returns the first failure.
func (f *Framework) StartAll(ctx context.Context, bundles ...*Bundle) error {
	var g errgroup.Group
	for _, b := range bundles {
		b := b
		g.Go(func() error { return f.startBundle(ctx, b) })
	}
	return g.Wait()
}

// AddBundleListener registers a bundle listener.
func (f *Framework) AddBundleListener(l BundleListener) ListenerToken {
	return f.listeners.addBundle(l)
}

// AddFrameworkListener registers a framework listener.
func (f *Framework) AddFrameworkListener(l FrameworkListener) ListenerToken {
	return f.listeners.addFramework(l)
}

// RemoveListener unregisters a listener. It reports whether tok was known.
func (f *Framework) RemoveListener(tok ListenerToken) bool {
	return f.listeners.remove(tok)
}

func (f *Framework) startBundle(ctx context.Context, b *Bundle) error {
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := f.engine()
	if err != nil {
		return err
	}

	var resolved []*Bundle
	f.rv.Lock()
	for ready := false; !ready; {
		if err := f.awaitTransitionLocked(ctx, b); err != nil {
			f.rv.Unlock()
			return err
		}
		switch b.state {
		case domain.StateUninstalled:
			f.rv.Unlock()
			return fmt.Errorf("start %s: %w", b.name, domain.ErrBundleUninstalled)
		case domain.StateActive:
			f.rv.Unlock()
			return nil
		case domain.StateInstalled:
			r, err := f.resolver.resolve(b)
			if err != nil {
				f.rv.Unlock()
				return err
			}
			resolved = append(resolved, r...)
			f.rv.BroadcastLocked()
		case domain.StateResolved:
			b.state = domain.StateStarting
			f.rv.BroadcastLocked()
			ready = true
		}
	}
	f.rv.Unlock()

	for _, r := range resolved {
		f.fire(ctx, domain.BundleResolved, r)
	}

	f.logger.Debug("starting bundle", log.Bundle(b.id, b.name)...)
	err = pool.Acquire(ctx, b, engine.OpStart)
	if errors.Is(err, domain.ErrEngineClosed) {
		f.revert(b, domain.StateStarting, domain.StateResolved)
	}
	return err
}

func (f *Framework) stopBundle(ctx context.Context, b *Bundle) error {
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := f.engine()
	if err != nil {
		return err
	}

	f.rv.Lock()
	if err := f.awaitTransitionLocked(ctx, b); err != nil {
		f.rv.Unlock()
		return err
	}
	switch b.state {
	case domain.StateUninstalled:
		f.rv.Unlock()
		return fmt.Errorf("stop %s: %w", b.name, domain.ErrBundleUninstalled)
	case domain.StateInstalled, domain.StateResolved:
		f.rv.Unlock()
		return nil
	}
	b.state = domain.StateStopping
	f.rv.BroadcastLocked()
	f.rv.Unlock()

	f.logger.Debug("stopping bundle", log.Bundle(b.id, b.name)...)
	err = pool.Acquire(ctx, b, engine.OpStop)
	if errors.Is(err, domain.ErrEngineClosed) {
		f.revert(b, domain.StateStopping, domain.StateActive)
	}
	return err
}

func (f *Framework) uninstallBundle(ctx context.Context, b *Bundle) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := f.engine(); err != nil {
		return err
	}

	var prev domain.State
	f.rv.Lock()
	for {
		if err := f.awaitTransitionLocked(ctx, b); err != nil {
			f.rv.Unlock()
			return err
		}
		if b.state != domain.StateActive {
			break
		}
		f.rv.Unlock()
		if err := f.stopBundle(ctx, b); err != nil {
			// Stop always leaves the bundle Resolved; keep going.
			f.logger.Warn("bundle stop failed during uninstall",
				append(log.Bundle(b.id, b.name), log.Err(err))...,
			)
		}
		f.rv.Lock()
	}
	if b.state == domain.StateUninstalled {
		f.rv.Unlock()
		return fmt.Errorf("uninstall %s: %w", b.name, domain.ErrBundleUninstalled)
	}
	prev = b.state
	b.state = domain.StateUninstalled
	delete(f.bundles, b.id)
	delete(f.byName, b.name)
	f.rv.BroadcastLocked()
	f.rv.Unlock()

	f.logger.Info("bundle uninstalled", log.Bundle(b.id, b.name)...)
	if prev == domain.StateResolved {
		f.fire(ctx, domain.BundleUnresolved, b)
	}
	f.fire(ctx, domain.BundleUninstalled, b)
	return nil
}

// awaitTransitionLocked waits, with the rendezvous held, until b is not in a
// transitional state. A call made from b's own transition fails instead of
// waiting on itself.
func (f *Framework) awaitTransitionLocked(ctx context.Context, b *Bundle) error {
	if !b.state.Transitional() {
		return nil
	}
	if w := b.Worker(); w != nil && w.Owns(ctx) {
		return fmt.Errorf("%w: %s is %s", domain.ErrTransitionInProgress, b.name, b.state)
	}

	wctx, cancel := context.WithTimeout(ctx, f.cfg.TransitionTimeout)
	defer cancel()
	stop := context.AfterFunc(wctx, f.rv.Broadcast)
	defer stop()

	f.rv.Wait(func() bool { return !b.state.Transitional() || wctx.Err() != nil })
	if b.state.Transitional() {
		return fmt.Errorf("%w: waiting for %s: %v", domain.ErrTransitionInProgress, b.name, wctx.Err())
	}
	return nil
}

// revert undoes a transition whose hook never ran.
func (f *Framework) revert(b *Bundle, from, to domain.State) {
	f.rv.Lock()
	if b.state == from {
		b.state = to
		f.rv.BroadcastLocked()
	}
	f.rv.Unlock()
}

// settle ends a transition started by startBundle or stopBundle. A move
// the state table refuses leaves the state untouched.
func (f *Framework) settle(b *Bundle, to domain.State) error {
	f.rv.Lock()
	defer f.rv.Unlock()
	defer f.rv.BroadcastLocked()

	if !b.state.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s %s -> %s", domain.ErrInvalidTransition, b.name, b.state, to)
	}
	b.state = to
	return nil
}

// fire delivers a bundle event to the bundle listeners on a worker.
func (f *Framework) fire(ctx context.Context, typ domain.BundleEventType, b *Bundle) {
	pool, err := f.engine()
	if err != nil {
		return
	}
	if err := pool.DeliverEvent(ctx, domain.BundleEvent{Type: typ, Bundle: b}); err != nil {
		f.logger.Debug("bundle event dropped",
			append(log.Bundle(b.id, b.name),
				log.String("event", typ.String()),
				log.Err(err),
			)...,
		)
	}
}

func (f *Framework) publish(ev domain.FrameworkEvent) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	f.listeners.publish(ev)
}
