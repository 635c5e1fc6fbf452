package bundlekit

import (
	"fmt"
	"time"

	"github.com/bft-labs/bundlekit/internal/app"
	"github.com/bft-labs/bundlekit/internal/domain"
	"github.com/bft-labs/bundlekit/internal/engine"
)

// DefaultMetricsNamespace prefixes every exported metric.
const DefaultMetricsNamespace = "bundlekit"

// Config holds the framework configuration.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config struct {
	// KeepAlive is how long an idle lifecycle worker waits for work before
	// retiring. Default: 1 second
	KeepAlive time.Duration

	// Inline runs activators and listeners on the calling goroutine instead
	// of on lifecycle workers.
	Inline bool

	// StopTimeout bounds how long Stop waits for fault delivery to drain.
	// Default: 10 seconds
	StopTimeout time.Duration

	// TransitionTimeout bounds how long a lifecycle call waits for another
	// caller's start or stop of the same bundle. Default: 30 seconds
	TransitionTimeout time.Duration

	// MetricsNamespace prefixes the Prometheus metric names.
	// Default: "bundlekit"
	MetricsNamespace string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		KeepAlive:         engine.DefaultKeepAlive,
		StopTimeout:       app.DefaultStopTimeout,
		TransitionTimeout: app.DefaultTransitionTimeout,
		MetricsNamespace:  DefaultMetricsNamespace,
	}
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.KeepAlive == 0 {
		c.KeepAlive = d.KeepAlive
	}
	if c.StopTimeout == 0 {
		c.StopTimeout = d.StopTimeout
	}
	if c.TransitionTimeout == 0 {
		c.TransitionTimeout = d.TransitionTimeout
	}
	if c.MetricsNamespace == "" {
		c.MetricsNamespace = d.MetricsNamespace
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.KeepAlive < 0 {
		return fmt.Errorf("%w: keep-alive must not be negative", domain.ErrInvalidConfig)
	}
	if c.StopTimeout < 0 {
		return fmt.Errorf("%w: stop timeout must not be negative", domain.ErrInvalidConfig)
	}
	if c.TransitionTimeout < 0 {
		return fmt.Errorf("%w: transition timeout must not be negative", domain.ErrInvalidConfig)
	}
	if !validMetricName(c.MetricsNamespace) {
		return fmt.Errorf("%w: invalid metrics namespace %q", domain.ErrInvalidConfig, c.MetricsNamespace)
	}
	return nil
}

func validMetricName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
