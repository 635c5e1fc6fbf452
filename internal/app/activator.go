package app

import (
	"context"
	"runtime/debug"

	"github.com/bft-labs/bundlekit/internal/domain"
)

// Activator is the bundle-supplied code run when a bundle starts and stops.
// Both methods run on an engine worker. An error or a panic from Start leaves
// the bundle Resolved; Stop always leaves it Resolved.
type Activator interface {
	Start(ctx context.Context, bc *BundleContext) error
	Stop(ctx context.Context, bc *BundleContext) error
}

// ActivatorFuncs adapts plain functions to Activator. Nil functions succeed.
type ActivatorFuncs struct {
	OnStart func(ctx context.Context, bc *BundleContext) error
	OnStop  func(ctx context.Context, bc *BundleContext) error
}

func (a ActivatorFuncs) Start(ctx context.Context, bc *BundleContext) error {
	if a.OnStart == nil {
		return nil
	}
	return a.OnStart(ctx, bc)
}

func (a ActivatorFuncs) Stop(ctx context.Context, bc *BundleContext) error {
	if a.OnStop == nil {
		return nil
	}
	return a.OnStop(ctx, bc)
}

// callActivator runs fn and converts a panic into a *domain.PanicError so the
// bundle state can be settled before the failure is reported.
func callActivator(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &domain.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}
