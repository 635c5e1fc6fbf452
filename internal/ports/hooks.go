package ports

import (
	"context"

	"github.com/bft-labs/bundlekit/internal/domain"
)

// HookRunner invokes bundle-supplied lifecycle code.
// Implementations may return an error or panic; the engine captures both.
type HookRunner interface {
	RunStart(ctx context.Context, b domain.BundleRef) error
	RunStop(ctx context.Context, b domain.BundleRef) error
}

// EventNotifier hands a bundle event to every registered bundle listener.
type EventNotifier interface {
	Notify(ctx context.Context, ev domain.BundleEvent) error
}

// FaultPublisher broadcasts a framework event to framework listeners.
type FaultPublisher interface {
	PublishFault(ev domain.FrameworkEvent)
}

// WorkTracker counts goroutines that must finish before shutdown completes.
type WorkTracker interface {
	AddWorker()
	WorkerDone()
}
