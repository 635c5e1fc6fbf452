package manifestwatcher

import "github.com/bft-labs/bundlekit/pkg/bundlekit"

// WithManifestWatcher returns a bundlekit Option that installs and starts
// the bundles listed in a manifest file when the framework starts.
//
// Usage:
//
//	fw, err := bundlekit.New(cfg,
//	    manifestwatcher.WithManifestWatcher(manifestwatcher.Config{
//	        Path:  "bundles.toml",
//	        Watch: true,
//	    }, catalog),
//	)
func WithManifestWatcher(cfg Config, catalog Catalog) bundlekit.Option {
	plugin := New(cfg, catalog)
	return bundlekit.WithPlugin(plugin)
}
