// Package manifestwatcher keeps a framework's bundles in line with a TOML
// manifest. The manifest is applied when the framework starts and, when
// watching is enabled, again whenever the file changes.
package manifestwatcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/bundlekit/pkg/bundlekit"
	"github.com/bft-labs/bundlekit/pkg/log"
)

// Plugin reconciles installed bundles against a manifest file.
// Only bundles it installed itself are stopped or uninstalled by it.
type Plugin struct {
	// Configuration
	path          string
	catalog       Catalog
	watch         bool
	debounceDelay time.Duration
	readAttempts  int

	// Runtime state
	fw      *bundlekit.Framework
	logger  bundlekit.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	applied chan struct{}

	// mu serializes reconciliation and guards managed.
	mu      sync.Mutex
	managed map[string]string // symbolic name -> activator name
}

// Config holds configuration options for the manifest watcher plugin.
type Config struct {
	// Path is the manifest file.
	Path string

	// Watch re-applies the manifest when the file changes.
	Watch bool

	// DebounceDelay is the quiet period after a file change before the
	// manifest is re-read.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// ReadAttempts bounds how often an unreadable manifest is re-read
	// before giving up.
	// Default: 3
	ReadAttempts int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
		ReadAttempts:  3,
	}
}

// New creates a manifest watcher building activators from catalog.
func New(cfg Config, catalog Catalog) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	if cfg.ReadAttempts <= 0 {
		cfg.ReadAttempts = 3
	}
	if catalog == nil {
		catalog = Catalog{}
	}

	return &Plugin{
		path:          cfg.Path,
		catalog:       catalog,
		watch:         cfg.Watch,
		debounceDelay: cfg.DebounceDelay,
		readAttempts:  cfg.ReadAttempts,
		managed:       make(map[string]string),
		applied:       make(chan struct{}, 1),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "manifestwatcher"
}

// Initialize applies the manifest and starts the watcher.
// A manifest that cannot be read or parsed fails the framework start;
// bundles failing to start are logged.
func (p *Plugin) Initialize(ctx context.Context, cfg bundlekit.PluginConfig) error {
	p.fw = cfg.Framework
	p.logger = cfg.Logger
	if p.logger == nil {
		p.logger = log.NewNoopLogger()
	}

	if p.path == "" {
		p.logger.Warn("manifest watcher disabled: no manifest path configured")
		return nil
	}

	m, err := p.load(ctx)
	if err != nil {
		return fmt.Errorf("load manifest %s: %w", p.path, err)
	}
	if err := p.apply(ctx, m); err != nil {
		p.logger.Warn("manifest applied with errors", log.Err(err))
	}

	if !p.watch {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(p.path), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("manifest watcher started", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the watcher. Bundles are left to the framework.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

// Reload re-reads the manifest and applies it.
func (p *Plugin) Reload(ctx context.Context) error {
	if p.fw == nil {
		return bundlekit.ErrNotRunning
	}
	m, err := p.load(ctx)
	if err != nil {
		return fmt.Errorf("load manifest %s: %w", p.path, err)
	}
	return p.apply(ctx, m)
}

// Applied signals after each reconciliation triggered by a file change.
func (p *Plugin) Applied() <-chan struct{} {
	return p.applied
}

// Managed returns the names of the bundles installed from the manifest.
func (p *Plugin) Managed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.managed))
	for name := range p.managed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	base := filepath.Base(p.path)
	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(p.debounceDelay)
			} else {
				debounce.Stop()
				debounce.Reset(p.debounceDelay)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			if err := p.Reload(ctx); err != nil {
				p.logger.Error("manifest reload failed", log.Err(err))
			} else {
				p.logger.Info("manifest reloaded", log.String("path", p.path))
			}
			select {
			case p.applied <- struct{}{}:
			default:
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("manifest watcher error", log.Err(err))
		}
	}
}

// load reads the manifest, retrying with backoff since editors may leave
// the file briefly missing or half written.
func (p *Plugin) load(ctx context.Context) (*Manifest, error) {
	b := newBackoff(DefaultBackoffInitial, DefaultBackoffMax)
	for attempt := 1; ; attempt++ {
		m, err := LoadManifest(p.path, p.catalog)
		if err == nil {
			return m, nil
		}
		if attempt >= p.readAttempts {
			return nil, err
		}
		p.logger.Debug("manifest read failed, retrying",
			log.Int("attempt", attempt),
			log.Duration("backoff", b.Current()),
			log.Err(err),
		)
		if !b.Sleep(ctx) {
			return nil, errors.Join(err, ctx.Err())
		}
	}
}

// apply brings the framework in line with m. Errors of individual bundles
// do not stop the rest from being reconciled.
func (p *Plugin) apply(ctx context.Context, m *Manifest) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	desired := make(map[string]Entry, len(m.Bundles))
	for _, e := range m.Bundles {
		desired[e.Name] = e
	}

	// Removed or redefined bundles go first so a redefinition can reinstall.
	for name, activator := range p.managed {
		b, ok := p.fw.Lookup(name)
		if !ok {
			delete(p.managed, name)
			continue
		}
		if e, ok := desired[name]; ok && e.sameDefinition(b, activator) {
			continue
		}
		if err := b.Uninstall(ctx); err != nil {
			errs = append(errs, fmt.Errorf("uninstall %s: %w", name, err))
			continue
		}
		delete(p.managed, name)
		p.logger.Info("bundle uninstalled", log.Bundle(b.ID(), name)...)
	}

	var toStart []*bundlekit.Bundle
	for _, e := range m.Bundles {
		b, ok := p.fw.Lookup(e.Name)
		switch {
		case !ok:
			var err error
			b, err = p.fw.Install(ctx, e.spec(p.catalog, p.path))
			if err != nil {
				errs = append(errs, fmt.Errorf("install %s: %w", e.Name, err))
				continue
			}
			p.managed[e.Name] = e.Activator
			p.logger.Info("bundle installed", log.Bundle(b.ID(), e.Name)...)
		case !p.isManaged(e.Name):
			p.logger.Warn("bundle installed outside the manifest, leaving it alone",
				log.Bundle(b.ID(), e.Name)...)
			continue
		}

		if e.Start {
			toStart = append(toStart, b)
		} else if err := b.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", e.Name, err))
		}
	}

	if len(toStart) > 0 {
		if err := p.fw.StartAll(ctx, toStart...); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (p *Plugin) isManaged(name string) bool {
	_, ok := p.managed[name]
	return ok
}

// Ensure Plugin implements bundlekit.Plugin.
var _ bundlekit.Plugin = (*Plugin)(nil)
