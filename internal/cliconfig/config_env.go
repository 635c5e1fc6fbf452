package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (BUNDLEKIT_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("manifest", os.Getenv("BUNDLEKIT_MANIFEST"), &cfg.ManifestPath)
	s.setString("log-level", os.Getenv("BUNDLEKIT_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("metrics-addr", os.Getenv("BUNDLEKIT_METRICS_ADDR"), &cfg.MetricsAddr)

	if err := s.setDuration("keep-alive", os.Getenv("BUNDLEKIT_KEEP_ALIVE"), &cfg.KeepAlive); err != nil {
		return err
	}
	if err := s.setDuration("stop-timeout", os.Getenv("BUNDLEKIT_STOP_TIMEOUT"), &cfg.StopTimeout); err != nil {
		return err
	}
	if err := s.setDuration("transition-timeout", os.Getenv("BUNDLEKIT_TRANSITION_TIMEOUT"), &cfg.TransitionTimeout); err != nil {
		return err
	}

	s.setBoolFromString("inline", os.Getenv("BUNDLEKIT_INLINE"), &cfg.Inline)
	s.setBoolFromString("watch", os.Getenv("BUNDLEKIT_WATCH"), &cfg.Watch)

	return nil
}
