package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/bundlekit/internal/cliconfig"
	"github.com/bft-labs/bundlekit/internal/samples"
	"github.com/bft-labs/bundlekit/pkg/bundlekit"
	"github.com/bft-labs/bundlekit/pkg/log"
	"github.com/bft-labs/bundlekit/plugins/manifestwatcher"
	"github.com/bft-labs/bundlekit/plugins/metricsserver"
)

const helpDescription = `
Run a set of bundles described by a TOML manifest.

Each bundle names an activator, the bundles it requires and whether it
should be started. Lifecycle hooks run on dedicated workers, so activators
may start, stop or install other bundles from their own hooks.

Built-in activators: greeter, heartbeat, starter, watcher, failing.
Send SIGHUP to re-read the manifest, SIGINT or SIGTERM to stop.
`

var exampleUsage = strings.TrimSpace(`
  bundlekit --manifest bundles.toml
  bundlekit --manifest bundles.toml --watch --metrics-addr :9090
  bundlekit --config $HOME/.bundlekit/config.toml --log-level debug
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return bundlekit.Version
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:          "bundlekit",
		Short:        "Run bundles from a manifest",
		Long:         strings.TrimSpace(helpDescription),
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Environment variables (BUNDLEKIT_*) override the file and are
			// overridden by flags.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := log.NewZerologAdapter(os.Stderr, cfg.LogLevel)
			if err != nil {
				return err
			}
			zl := logger.Logger()
			zl.Info().Interface("config", cfg).Msg("configuration")

			return run(cmd.Context(), cfg, logger)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.bundlekit/config.toml)")
	root.Flags().StringVar(&cfg.ManifestPath, "manifest", cfg.ManifestPath, "bundle manifest (TOML)")
	root.Flags().BoolVar(&cfg.Watch, "watch", cfg.Watch, "re-apply the manifest when it changes")
	root.Flags().DurationVar(&cfg.KeepAlive, "keep-alive", cfg.KeepAlive, "how long an idle lifecycle worker lingers")
	root.Flags().BoolVar(&cfg.Inline, "inline", cfg.Inline, "run lifecycle hooks on the calling goroutine (debug)")
	root.Flags().DurationVar(&cfg.StopTimeout, "stop-timeout", cfg.StopTimeout, "maximum time to wait for shutdown")
	root.Flags().DurationVar(&cfg.TransitionTimeout, "transition-timeout", cfg.TransitionTimeout, "maximum time to wait for another start or stop of the same bundle")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (trace, debug, info, warn, error)")
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address (disabled when empty)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "bundlekit:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg cliconfig.Config, logger *log.ZerologAdapter) error {
	if ctx == nil {
		ctx = context.Background()
	}
	zl := logger.Logger()

	manifest := manifestwatcher.New(manifestwatcher.Config{
		Path:  cfg.ManifestPath,
		Watch: cfg.Watch,
	}, samples.Catalog(logger))

	opts := []bundlekit.Option{
		bundlekit.WithLogger(logger),
		bundlekit.WithPlugin(manifest),
	}
	if cfg.MetricsAddr != "" {
		opts = append(opts, metricsserver.WithMetricsServer(metricsserver.Config{Addr: cfg.MetricsAddr}))
	}

	fw, err := bundlekit.New(bundlekit.Config{
		KeepAlive:         cfg.KeepAlive,
		Inline:            cfg.Inline,
		StopTimeout:       cfg.StopTimeout,
		TransitionTimeout: cfg.TransitionTimeout,
	}, opts...)
	if err != nil {
		return fmt.Errorf("create framework: %w", err)
	}

	// A bundle may stop the framework from its own hooks.
	stopped := make(chan struct{})
	var once sync.Once
	fw.AddFrameworkListener(func(ev bundlekit.FrameworkEvent) {
		if ev.Type == bundlekit.FrameworkStopped {
			once.Do(func() { close(stopped) })
		}
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	if err := fw.Start(ctx); err != nil {
		return fmt.Errorf("start framework: %w", err)
	}
	zl.Info().Str("id", fw.ID()).Int("bundles", len(fw.Bundles())).Msg("framework running")

	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				if err := manifest.Reload(ctx); err != nil {
					zl.Error().Err(err).Msg("manifest reload failed")
				} else {
					zl.Info().Msg("manifest reloaded")
				}
				continue
			}
			zl.Info().Str("signal", sig.String()).Msg("received signal, stopping...")
			if err := fw.Stop(ctx); err != nil && !errors.Is(err, bundlekit.ErrNotRunning) {
				return fmt.Errorf("stop framework: %w", err)
			}
			return nil

		case <-stopped:
			if err := fw.WaitForStop(cfg.StopTimeout); err != nil {
				return err
			}
			if fw.Status() == bundlekit.StateCrashed {
				return errors.New("framework crashed")
			}
			zl.Info().Msg("framework stopped")
			return nil
		}
	}
}
