package engine

import "context"

type affinityKey struct{}

// affinity records the chain of workers a context has passed through.
type affinity struct {
	worker *Worker
	parent *affinity
}

func withWorker(ctx context.Context, w *Worker) context.Context {
	parent, _ := ctx.Value(affinityKey{}).(*affinity)
	return context.WithValue(ctx, affinityKey{}, &affinity{worker: w, parent: parent})
}

// CurrentWorker returns the worker executing the operation ctx belongs to.
func CurrentWorker(ctx context.Context) (*Worker, bool) {
	if ctx == nil {
		return nil, false
	}
	a, ok := ctx.Value(affinityKey{}).(*affinity)
	if !ok {
		return nil, false
	}
	return a.worker, true
}

// OnWorker reports whether ctx was handed to lifecycle code by a worker.
func OnWorker(ctx context.Context) bool {
	_, ok := CurrentWorker(ctx)
	return ok
}

// onStack reports whether w is executing an operation that ctx descends from.
func onStack(ctx context.Context, w *Worker) bool {
	if ctx == nil {
		return false
	}
	a, _ := ctx.Value(affinityKey{}).(*affinity)
	for ; a != nil; a = a.parent {
		if a.worker == w {
			return true
		}
	}
	return false
}
