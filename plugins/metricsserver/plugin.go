// Package metricsserver exposes the lifecycle engine metrics over HTTP.
// When enabled, it serves a Prometheus scrape endpoint and a health probe
// for as long as the framework runs.
package metricsserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/bundlekit/pkg/bundlekit"
	"github.com/bft-labs/bundlekit/pkg/log"
)

// Plugin serves /metrics and /healthz.
type Plugin struct {
	mu sync.RWMutex

	// Configuration
	addr     string
	path     string
	registry *prometheus.Registry

	// Runtime state
	fw       *bundlekit.Framework
	logger   bundlekit.Logger
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// Config holds configuration options for the metrics server plugin.
type Config struct {
	// Addr is the listen address.
	// Default: ":9090"
	Addr string

	// Path is the scrape path.
	// Default: "/metrics"
	Path string

	// Registry collects the served metrics. The framework collectors are
	// added to it on initialization.
	// Default: a new registry with Go and process collectors
	Registry *prometheus.Registry
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr: ":9090",
		Path: "/metrics",
	}
}

// New creates a new metrics server plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.Addr == "" {
		cfg.Addr = ":9090"
	}
	if cfg.Path == "" {
		cfg.Path = "/metrics"
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
		cfg.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return &Plugin{
		addr:     cfg.Addr,
		path:     cfg.Path,
		registry: cfg.Registry,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "metricsserver"
}

// Initialize registers the framework collectors and starts serving.
func (p *Plugin) Initialize(ctx context.Context, cfg bundlekit.PluginConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	for _, c := range cfg.Framework.Collectors() {
		if err := p.registry.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return fmt.Errorf("register collector: %w", err)
			}
		}
	}

	ln, err := net.Listen("tcp", p.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", p.addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(p.path, promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", p.health)

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	done := make(chan struct{})

	p.mu.Lock()
	p.fw = cfg.Framework
	p.logger = logger
	p.server = srv
	p.listener = ln
	p.done = done
	p.mu.Unlock()

	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", log.Err(err))
		}
	}()

	logger.Info("metrics server listening",
		log.String("addr", ln.Addr().String()),
		log.String("path", p.path),
	)
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	srv, done := p.server, p.done
	p.server, p.listener = nil, nil
	p.mu.Unlock()

	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	<-done
	return err
}

// Addr returns the address the server listens on, or "" when not serving.
func (p *Plugin) Addr() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.listener == nil {
		return ""
	}
	return p.listener.Addr().String()
}

// health reports 200 while the framework runs and 503 otherwise.
func (p *Plugin) health(w http.ResponseWriter, r *http.Request) {
	p.mu.RLock()
	fw := p.fw
	p.mu.RUnlock()

	state := fw.Status()
	if state != bundlekit.StateRunning {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	fmt.Fprintln(w, state.String())
}

// Ensure Plugin implements bundlekit.Plugin.
var _ bundlekit.Plugin = (*Plugin)(nil)
