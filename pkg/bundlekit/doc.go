// Package bundlekit provides an embeddable in-process bundle framework.
//
// A framework installs, resolves, starts, stops and uninstalls bundles. Each
// bundle carries an [Activator] whose Start and Stop run on a pool of
// lifecycle workers, so activators and listeners may freely start and stop
// other bundles, or even stop the framework, without deadlocking the call
// that triggered them.
//
// # Basic Usage
//
//	fw, err := bundlekit.New(bundlekit.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := fw.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer fw.Stop(ctx)
//
//	b, err := fw.Install(ctx, bundlekit.BundleSpec{
//	    SymbolicName: "greeter",
//	    Activator:    myActivator{},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := b.Start(ctx); err != nil {
//	    log.Printf("start failed: %v", err)
//	}
//
// # Failures
//
// An error or panic raised by an activator is returned to the caller wrapped
// in a [HookError], and published once to framework listeners as a
// [FrameworkError] event. Failures of bundle listeners are only published.
//
// # Event Handling
//
// Implement [EventHandler] (embedding [BaseEventHandler] for no-op defaults)
// and pass it via [WithEventHandler] to observe state changes and events.
//
// # Plugins
//
// Plugins are initialized in registration order when the framework starts
// and shut down in reverse order, before bundles are stopped:
//
//	import "github.com/bft-labs/bundlekit/plugins/manifestwatcher"
//
//	fw, err := bundlekit.New(cfg,
//	    manifestwatcher.WithManifestWatcher(manifestwatcher.Config{Path: "bundles.toml"}, catalog),
//	)
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// Use [ModuleVersions] to get versions of all sub-modules and [CompatibilityMatrix]
// to check minimum compatible versions.
package bundlekit
