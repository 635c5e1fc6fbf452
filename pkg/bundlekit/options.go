package bundlekit

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Option configures optional behavior of a Framework.
type Option func(*options)

// options holds the optional configuration for a Framework instance.
type options struct {
	logger       Logger
	eventHandler EventHandler
	plugins      []Plugin
	registerer   prometheus.Registerer
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for framework events.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when the framework starts.
// Plugins are initialized in registration order and shut down in reverse order.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithMetricsRegisterer registers the lifecycle engine metrics with reg.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}
