package engine

import (
	"context"
	"sync"

	"github.com/bft-labs/bundlekit/internal/domain"
)

type testBundle struct {
	id   uint64
	name string

	mu       sync.Mutex
	worker   *Worker
	assigned []*Worker
}

func newTestBundle(id uint64, name string) *testBundle {
	return &testBundle{id: id, name: name}
}

func (b *testBundle) ID() uint64           { return b.id }
func (b *testBundle) SymbolicName() string { return b.name }

func (b *testBundle) SetWorker(w *Worker) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.worker = w
	b.assigned = append(b.assigned, w)
}

func (b *testBundle) ResetWorker() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.worker = nil
}

func (b *testBundle) current() *Worker {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.worker
}

type hookFuncs struct {
	start func(ctx context.Context, b domain.BundleRef) error
	stop  func(ctx context.Context, b domain.BundleRef) error
}

func (h hookFuncs) RunStart(ctx context.Context, b domain.BundleRef) error {
	if h.start == nil {
		return nil
	}
	return h.start(ctx, b)
}

func (h hookFuncs) RunStop(ctx context.Context, b domain.BundleRef) error {
	if h.stop == nil {
		return nil
	}
	return h.stop(ctx, b)
}

type notifierFunc func(ctx context.Context, ev domain.BundleEvent) error

func (f notifierFunc) Notify(ctx context.Context, ev domain.BundleEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, ev)
}

type faultRecorder struct {
	mu     sync.Mutex
	events []domain.FrameworkEvent
}

func (r *faultRecorder) PublishFault(ev domain.FrameworkEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *faultRecorder) Events() []domain.FrameworkEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.FrameworkEvent{}, r.events...)
}

func (r *faultRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
