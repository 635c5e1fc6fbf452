package engine

import (
	"context"
	"sync/atomic"

	"github.com/bft-labs/bundlekit/internal/domain"
	"github.com/bft-labs/bundlekit/pkg/log"
)

// WorkerState is the state of a worker goroutine.
type WorkerState int32

const (
	WorkerIdle WorkerState = iota
	WorkerExecuting
	WorkerRetiring
	WorkerTerminated
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "Idle"
	case WorkerExecuting:
		return "Executing"
	case WorkerRetiring:
		return "Retiring"
	case WorkerTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// WorkerHolder is implemented by targets that remember which worker is
// running their current start or stop operation.
type WorkerHolder interface {
	SetWorker(w *Worker)
	ResetWorker()
}

// Worker runs lifecycle operations one at a time on its own goroutine.
type Worker struct {
	id     uint64
	pool   *Pool
	box    *mailbox
	events EventCell
	state  atomic.Int32
	done   chan struct{}
	logger log.Logger
}

func newWorker(id uint64, p *Pool) *Worker {
	w := &Worker{
		id:     id,
		pool:   p,
		box:    newMailbox(),
		done:   make(chan struct{}),
		logger: p.logger.With(log.Uint64("worker", id)),
	}
	w.events.Store(emptyEvent)
	return w
}

// ID returns the worker's pool-unique identifier.
func (w *Worker) ID() uint64 { return w.id }

// State returns the current worker state.
func (w *Worker) State() WorkerState { return WorkerState(w.state.Load()) }

func (w *Worker) setState(s WorkerState) { w.state.Store(int32(s)) }

// Owns reports whether ctx belongs to the operation this worker is executing,
// directly or through operations nested inside it. Lifecycle code uses it to
// detect that it is about to wait on itself.
func (w *Worker) Owns(ctx context.Context) bool {
	return onStack(ctx, w)
}

// Done is closed when the worker goroutine has exited.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) exited() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// Quit stops the worker and waits for its goroutine to exit. An operation
// that is already executing runs to completion first. When ctx belongs to an
// operation running on w, Quit only raises the flag. Safe to call repeatedly.
func (w *Worker) Quit(ctx context.Context) {
	w.box.stop()
	if onStack(ctx, w) {
		return
	}
	<-w.done
}

// stop raises the quit flag without waiting, for callers running on w itself.
func (w *Worker) stop() {
	w.box.stop()
}

func (w *Worker) run() {
	defer func() {
		w.setState(WorkerTerminated)
		close(w.done)
		// Callers waiting on an unclaimed operation must observe the exit.
		w.pool.rv.Broadcast()
		w.logger.Debug("worker terminated")
	}()

	for {
		w.setState(WorkerIdle)
		op, status := w.box.claim(w.pool.keepAlive, &w.events)
		switch status {
		case claimQuit:
			return
		case claimTimedOut:
			if w.pool.retire(w) {
				return
			}
			continue
		}

		w.setState(WorkerExecuting)
		w.logger.Debug("executing operation",
			log.String("op", op.kind.String()),
			log.String("bundle", targetName(op.target)),
		)
		err := w.pool.execute(w.operationContext(op), op)
		op.done.resolve(err)
		w.pool.rv.Broadcast()
	}
}

// operationContext keeps the caller's values but not its cancellation:
// a started hook always runs to completion.
func (w *Worker) operationContext(op operation) context.Context {
	parent := op.ctx
	if parent == nil {
		parent = context.Background()
	}
	return withWorker(context.WithoutCancel(parent), w)
}

func targetName(b domain.BundleRef) string {
	if b == nil {
		return ""
	}
	return b.SymbolicName()
}
