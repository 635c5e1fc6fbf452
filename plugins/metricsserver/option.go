package metricsserver

import "github.com/bft-labs/bundlekit/pkg/bundlekit"

// WithMetricsServer returns a bundlekit Option that serves the engine
// metrics over HTTP while the framework runs.
//
// Usage:
//
//	fw, err := bundlekit.New(cfg,
//	    metricsserver.WithMetricsServer(metricsserver.Config{
//	        Addr: ":9090",
//	    }),
//	)
func WithMetricsServer(cfg Config) bundlekit.Option {
	plugin := New(cfg)
	return bundlekit.WithPlugin(plugin)
}

// WithDefaultMetricsServer returns a bundlekit Option serving metrics on
// :9090/metrics.
//
// Usage:
//
//	fw, err := bundlekit.New(cfg, metricsserver.WithDefaultMetricsServer())
func WithDefaultMetricsServer() bundlekit.Option {
	return WithMetricsServer(DefaultConfig())
}
