package bundlekit

import (
	"context"

	"github.com/bft-labs/bundlekit/internal/app"
	"github.com/bft-labs/bundlekit/pkg/log"
)

// Plugin extends a framework with functionality that lives as long as the
// framework runs.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	// Initialize is called by Start. Returning an error aborts the start and
	// leaves the framework Crashed.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called by Stop before bundles are stopped.
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to plugins on initialization.
type PluginConfig struct {
	Framework *Framework
	Logger    Logger
}

// BasePlugin implements Plugin with no-ops.
type BasePlugin struct {
	name string
}

// NewBasePlugin returns a BasePlugin with the given name.
func NewBasePlugin(name string) *BasePlugin {
	return &BasePlugin{name: name}
}

func (p *BasePlugin) Name() string                                   { return p.name }
func (p *BasePlugin) Initialize(context.Context, PluginConfig) error { return nil }
func (p *BasePlugin) Shutdown(context.Context) error                 { return nil }

// pluginExtension runs a Plugin as a framework extension.
type pluginExtension struct {
	plugin Plugin
	owner  *Framework
}

func (e pluginExtension) Name() string { return e.plugin.Name() }

func (e pluginExtension) Initialize(ctx context.Context, _ *app.Framework) error {
	return e.plugin.Initialize(ctx, PluginConfig{
		Framework: e.owner,
		Logger:    e.owner.logger.With(log.String("plugin", e.plugin.Name())),
	})
}

func (e pluginExtension) Shutdown(ctx context.Context) error {
	return e.plugin.Shutdown(ctx)
}

var _ app.Extension = pluginExtension{}
