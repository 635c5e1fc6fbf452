// Package samples holds the activators shipped with the bundlekit command.
package samples

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bft-labs/bundlekit/pkg/bundlekit"
	"github.com/bft-labs/bundlekit/pkg/log"
	"github.com/bft-labs/bundlekit/plugins/manifestwatcher"
)

// HeartbeatInterval is how often a heartbeat bundle logs.
const HeartbeatInterval = 10 * time.Second

// ErrRefused is returned by the failing activator.
var ErrRefused = errors.New("samples: bundle refused to start")

// Catalog returns the sample activators keyed by manifest name.
func Catalog(logger log.Logger) manifestwatcher.Catalog {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return manifestwatcher.Catalog{
		"greeter":   func() bundlekit.Activator { return greeter(logger) },
		"heartbeat": func() bundlekit.Activator { return &heartbeat{logger: logger, interval: HeartbeatInterval} },
		"starter":   func() bundlekit.Activator { return starter() },
		"watcher":   func() bundlekit.Activator { return watcher(logger) },
		"failing":   func() bundlekit.Activator { return failing() },
	}
}

func bundleFields(bc *bundlekit.BundleContext) []log.Field {
	b := bc.Bundle()
	return log.Bundle(b.ID(), b.SymbolicName())
}

func greeter(logger log.Logger) bundlekit.Activator {
	return bundlekit.ActivatorFuncs{
		OnStart: func(ctx context.Context, bc *bundlekit.BundleContext) error {
			logger.Info("hello", bundleFields(bc)...)
			return nil
		},
		OnStop: func(ctx context.Context, bc *bundlekit.BundleContext) error {
			logger.Info("goodbye", bundleFields(bc)...)
			return nil
		},
	}
}

// starter starts the bundles it requires from its own start hook.
func starter() bundlekit.Activator {
	return bundlekit.ActivatorFuncs{
		OnStart: func(ctx context.Context, bc *bundlekit.BundleContext) error {
			var errs []error
			for _, name := range bc.Bundle().Requires() {
				dep, ok := bc.Lookup(name)
				if !ok {
					errs = append(errs, bundlekit.ErrBundleNotFound)
					continue
				}
				if err := dep.Start(ctx); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}
}

// watcher logs every bundle event while it is active.
func watcher(logger log.Logger) bundlekit.Activator {
	return bundlekit.ActivatorFuncs{
		OnStart: func(ctx context.Context, bc *bundlekit.BundleContext) error {
			bc.AddBundleListener(func(ctx context.Context, ev bundlekit.BundleEvent) error {
				if ev.Empty() {
					return nil
				}
				logger.Info("bundle event",
					append(log.Bundle(ev.Bundle.ID(), ev.Bundle.SymbolicName()),
						log.String("event", ev.Type.String()))...,
				)
				return nil
			})
			return nil
		},
	}
}

func failing() bundlekit.Activator {
	return bundlekit.ActivatorFuncs{
		OnStart: func(ctx context.Context, bc *bundlekit.BundleContext) error {
			return ErrRefused
		},
	}
}

// heartbeat logs periodically from its own goroutine while active.
type heartbeat struct {
	logger   log.Logger
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (h *heartbeat) Start(ctx context.Context, bc *bundlekit.BundleContext) error {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	h.mu.Lock()
	h.cancel, h.done = cancel, done
	h.mu.Unlock()

	fields := bundleFields(bc)
	go func() {
		defer close(done)
		t := time.NewTicker(h.interval)
		defer t.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-t.C:
				h.logger.Debug("heartbeat", fields...)
			}
		}
	}()
	return nil
}

func (h *heartbeat) Stop(ctx context.Context, bc *bundlekit.BundleContext) error {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.cancel, h.done = nil, nil
	h.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
