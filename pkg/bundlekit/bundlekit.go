package bundlekit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/bundlekit/internal/app"
	"github.com/bft-labs/bundlekit/internal/engine"
	"github.com/bft-labs/bundlekit/pkg/log"
)

// Framework is a bundle runtime that can be embedded in other applications.
// Use New() to create an instance, then Start() before installing bundles.
type Framework struct {
	config  Config
	opts    options
	fw      *app.Framework
	metrics *engine.Metrics
	logger  Logger
}

// New creates a new framework with the given configuration.
// The instance is created in StateStopped; call Start() to accept bundles.
// Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*Framework, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	metrics := engine.NewMetrics(cfg.MetricsNamespace)
	if o.registerer != nil {
		if err := metrics.Register(o.registerer); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	f := &Framework{
		config:  cfg,
		opts:    o,
		metrics: metrics,
		logger:  logger,
	}

	extensions := make([]app.Extension, 0, len(o.plugins))
	for _, p := range o.plugins {
		extensions = append(extensions, pluginExtension{plugin: p, owner: f})
	}

	var emitter eventEmitterWrapper
	if o.eventHandler != nil {
		emitter = eventEmitterWrapper{handler: o.eventHandler}
	}

	f.fw = app.New(app.Config{
		KeepAlive:         cfg.KeepAlive,
		Inline:            cfg.Inline,
		StopTimeout:       cfg.StopTimeout,
		TransitionTimeout: cfg.TransitionTimeout,
		Metrics:           metrics,
		Extensions:        extensions,
	}, logger, &emitter)

	if h := o.eventHandler; h != nil {
		f.fw.AddBundleListener(func(ctx context.Context, ev BundleEvent) error {
			h.OnBundleEvent(ev)
			return nil
		})
		f.fw.AddFrameworkListener(h.OnFrameworkEvent)
	}

	return f, nil
}

// ID returns the framework instance identifier.
func (f *Framework) ID() string { return f.fw.ID().String() }

// Start starts the lifecycle engine and initializes plugins.
// Returns ErrAlreadyRunning if the framework is not stopped.
func (f *Framework) Start(ctx context.Context) error {
	return f.fw.Start(ctx)
}

// Stop stops plugins and bundles and shuts the lifecycle engine down.
// Called from an activator or listener, Stop returns immediately and the
// shutdown continues in the background; WaitForStop waits for it.
func (f *Framework) Stop(ctx context.Context) error {
	return f.fw.Stop(ctx)
}

// WaitForStop waits for a Stop in progress to finish.
// Returns ErrShutdownTimeout if it does not finish within timeout.
func (f *Framework) WaitForStop(timeout time.Duration) error {
	return f.fw.WaitForStop(timeout)
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (f *Framework) Status() State {
	return f.fw.State()
}

// Install installs a bundle.
func (f *Framework) Install(ctx context.Context, spec BundleSpec) (*Bundle, error) {
	return f.fw.Install(ctx, spec)
}

// Bundle returns the bundle with the given id.
func (f *Framework) Bundle(id uint64) (*Bundle, bool) {
	return f.fw.Bundle(id)
}

// Lookup returns the bundle with the given symbolic name.
func (f *Framework) Lookup(name string) (*Bundle, bool) {
	return f.fw.Lookup(name)
}

// Bundles returns every installed bundle ordered by id.
func (f *Framework) Bundles() []*Bundle {
	return f.fw.Bundles()
}

// StartAll starts the given bundles concurrently.
func (f *Framework) StartAll(ctx context.Context, bundles ...*Bundle) error {
	return f.fw.StartAll(ctx, bundles...)
}

// AddBundleListener registers a bundle listener.
func (f *Framework) AddBundleListener(l BundleListener) ListenerToken {
	return f.fw.AddBundleListener(l)
}

// AddFrameworkListener registers a framework listener.
func (f *Framework) AddFrameworkListener(l FrameworkListener) ListenerToken {
	return f.fw.AddFrameworkListener(l)
}

// RemoveListener unregisters a listener.
func (f *Framework) RemoveListener(tok ListenerToken) bool {
	return f.fw.RemoveListener(tok)
}

// Collectors returns the Prometheus collectors of the lifecycle engine.
func (f *Framework) Collectors() []prometheus.Collector {
	return f.metrics.Collectors()
}

// Logger returns the framework logger.
func (f *Framework) Logger() Logger {
	return f.logger
}
