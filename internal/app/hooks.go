package app

import (
	"context"
	"fmt"

	"github.com/bft-labs/bundlekit/internal/domain"
	"github.com/bft-labs/bundlekit/internal/ports"
	"github.com/bft-labs/bundlekit/pkg/log"
)

// hookRunner runs activators for the engine. It executes on a worker.
type hookRunner struct {
	f *Framework
}

func (h hookRunner) RunStart(ctx context.Context, ref domain.BundleRef) error {
	b, err := asBundle(ref)
	if err != nil {
		return err
	}
	f := h.f

	f.fire(ctx, domain.BundleStarting, b)
	err = callActivator(func() error {
		if b.activator == nil {
			return nil
		}
		return b.activator.Start(ctx, b.bc)
	})
	if err != nil {
		f.settleOrWarn(b, domain.StateResolved)
		b.bc.release()
		return err
	}

	f.settleOrWarn(b, domain.StateActive)
	f.logger.Info("bundle started", log.Bundle(b.id, b.name)...)
	f.fire(ctx, domain.BundleStarted, b)
	return nil
}

func (h hookRunner) RunStop(ctx context.Context, ref domain.BundleRef) error {
	b, err := asBundle(ref)
	if err != nil {
		return err
	}
	f := h.f

	f.fire(ctx, domain.BundleStopping, b)
	err = callActivator(func() error {
		if b.activator == nil {
			return nil
		}
		return b.activator.Stop(ctx, b.bc)
	})
	b.bc.release()
	f.settleOrWarn(b, domain.StateResolved)
	f.logger.Info("bundle stopped", log.Bundle(b.id, b.name)...)
	f.fire(ctx, domain.BundleStopped, b)
	return err
}

func (f *Framework) settleOrWarn(b *Bundle, to domain.State) {
	if err := f.settle(b, to); err != nil {
		f.logger.Warn("bundle transition refused", append(log.Bundle(b.id, b.name), log.Err(err))...)
	}
}

func asBundle(ref domain.BundleRef) (*Bundle, error) {
	b, ok := ref.(*Bundle)
	if !ok {
		return nil, fmt.Errorf("app: unexpected bundle type %T", ref)
	}
	return b, nil
}

var _ ports.HookRunner = hookRunner{}
