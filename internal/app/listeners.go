package app

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"

	"github.com/bft-labs/bundlekit/internal/domain"
	"github.com/bft-labs/bundlekit/internal/ports"
	"github.com/bft-labs/bundlekit/pkg/log"
)

// BundleListener receives bundle events on an engine worker. A returned
// error or panic is published as a FrameworkError event.
type BundleListener func(ctx context.Context, ev domain.BundleEvent) error

// FrameworkListener receives framework events. Panics are logged and dropped.
type FrameworkListener func(ev domain.FrameworkEvent)

// ListenerToken identifies a registered listener.
type ListenerToken uint64

type bundleEntry struct {
	tok ListenerToken
	fn  BundleListener
}

type frameworkEntry struct {
	tok ListenerToken
	fn  FrameworkListener
}

// listenerRegistry dispatches bundle and framework events in registration
// order.
type listenerRegistry struct {
	mu        sync.RWMutex
	next      ListenerToken
	bundle    []bundleEntry
	framework []frameworkEntry
	logger    log.Logger
}

func newListenerRegistry(logger log.Logger) *listenerRegistry {
	return &listenerRegistry{logger: logger}
}

func (r *listenerRegistry) addBundle(fn BundleListener) ListenerToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.bundle = append(r.bundle, bundleEntry{tok: r.next, fn: fn})
	return r.next
}

func (r *listenerRegistry) addFramework(fn FrameworkListener) ListenerToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.framework = append(r.framework, frameworkEntry{tok: r.next, fn: fn})
	return r.next
}

func (r *listenerRegistry) remove(tok ListenerToken) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.bundle {
		if e.tok == tok {
			r.bundle = append(r.bundle[:i:i], r.bundle[i+1:]...)
			return true
		}
	}
	for i, e := range r.framework {
		if e.tok == tok {
			r.framework = append(r.framework[:i:i], r.framework[i+1:]...)
			return true
		}
	}
	return false
}

// Notify delivers ev to every bundle listener. All listeners run even when
// some fail; the failures are joined.
func (r *listenerRegistry) Notify(ctx context.Context, ev domain.BundleEvent) error {
	r.mu.RLock()
	listeners := r.bundle
	r.mu.RUnlock()

	var errs []error
	for _, e := range listeners {
		if err := callListener(ctx, e.fn, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishFault hands a fault raised by a hook to the framework listeners.
func (r *listenerRegistry) PublishFault(ev domain.FrameworkEvent) {
	r.publish(ev)
}

func (r *listenerRegistry) publish(ev domain.FrameworkEvent) {
	r.mu.RLock()
	listeners := r.framework
	r.mu.RUnlock()

	for _, e := range listeners {
		func() {
			defer func() {
				if p := recover(); p != nil {
					r.logger.Error("framework listener panicked",
						log.String("event", ev.Type.String()),
						log.Any("panic", p),
					)
				}
			}()
			e.fn(ev)
		}()
	}
}

func callListener(ctx context.Context, fn BundleListener, ev domain.BundleEvent) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &domain.PanicError{Value: p, Stack: debug.Stack()}
		}
	}()
	return fn(ctx, ev)
}

var (
	_ ports.EventNotifier  = (*listenerRegistry)(nil)
	_ ports.FaultPublisher = (*listenerRegistry)(nil)
)
