package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/bundlekit/internal/domain"
	"github.com/bft-labs/bundlekit/internal/ports"
	"github.com/bft-labs/bundlekit/pkg/log"
)

// DefaultKeepAlive is how long an idle worker waits for work before retiring.
const DefaultKeepAlive = time.Second

// Option configures a Pool.
type Option func(*Pool)

// WithKeepAlive sets the idle keep-alive of workers.
func WithKeepAlive(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.keepAlive = d
		}
	}
}

// WithInline makes the pool execute operations on the caller's goroutine.
func WithInline(inline bool) Option {
	return func(p *Pool) { p.inline = inline }
}

// WithLogger sets the pool logger.
func WithLogger(l log.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics sets the collectors the pool reports to.
func WithMetrics(m *Metrics) Option {
	return func(p *Pool) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithRendezvous shares rv with the pool instead of creating a private one.
func WithRendezvous(rv *Rendezvous) Option {
	return func(p *Pool) {
		if rv != nil {
			p.rv = rv
		}
	}
}

// WithWorkTracker makes fault publishing visible to tracker.
func WithWorkTracker(t ports.WorkTracker) Option {
	return func(p *Pool) { p.tracker = t }
}

// Pool hands out workers and tracks the active and zombie sets.
type Pool struct {
	mu      sync.Mutex
	active  []*Worker // most recently used first
	zombies []*Worker
	busy    map[*Worker]struct{}
	closed  bool
	nextID  atomic.Uint64

	rv        *Rendezvous
	hooks     ports.HookRunner
	notifier  ports.EventNotifier
	faults    *FaultTranslator
	tracker   ports.WorkTracker
	keepAlive time.Duration
	inline    bool
	logger    log.Logger
	metrics   *Metrics
}

// NewPool creates a pool executing hooks and notifications, publishing faults
// through publisher.
func NewPool(hooks ports.HookRunner, notifier ports.EventNotifier, publisher ports.FaultPublisher, opts ...Option) *Pool {
	p := &Pool{
		busy:      make(map[*Worker]struct{}),
		hooks:     hooks,
		notifier:  notifier,
		keepAlive: DefaultKeepAlive,
		logger:    log.NewNoopLogger(),
		metrics:   NewMetrics("bundlekit"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rv == nil {
		p.rv = NewRendezvous()
	}
	p.faults = NewFaultTranslator(publisher, p.tracker, p.logger)
	p.faults.metrics = p.metrics
	return p
}

// Rendezvous returns the lock callers wait on.
func (p *Pool) Rendezvous() *Rendezvous { return p.rv }

// Inline reports whether operations run on the caller's goroutine.
func (p *Pool) Inline() bool { return p.inline }

// Acquire runs a start or stop operation for target and waits for it.
// The hook's error, or a *domain.HookError wrapping a captured panic, is
// returned. The caller must not hold the rendezvous lock.
func (p *Pool) Acquire(ctx context.Context, target domain.BundleRef, kind Op) error {
	if kind != OpStart && kind != OpStop {
		return fmt.Errorf("engine: acquire %s: unsupported operation", kind)
	}
	return p.submit(ctx, operation{kind: kind, target: target})
}

// DeliverEvent hands ev to the listeners on a worker and waits for delivery.
// Listener failures are published as faults and never returned.
func (p *Pool) DeliverEvent(ctx context.Context, ev domain.BundleEvent) error {
	return p.submit(ctx, operation{kind: OpDeliverEvent, target: ev.Bundle, event: ev})
}

func (p *Pool) submit(ctx context.Context, op operation) error {
	holder, _ := op.target.(WorkerHolder)
	if op.kind == OpDeliverEvent {
		holder = nil
	}

	if p.inline {
		return p.executeInline(ctx, op, holder)
	}

	w, err := p.obtain()
	if err != nil {
		return err
	}

	if op.kind == OpDeliverEvent {
		w.events.Store(op.event)
		op.event = domain.BundleEvent{}
	}
	if holder != nil {
		holder.SetWorker(w)
	}

	op.ctx = ctx
	op.done = newCompletion()
	if err := w.box.post(op); err != nil {
		p.release(w)
		if holder != nil {
			holder.ResetWorker()
		}
		return err
	}

	// A claimed operation always resolves before its worker exits.
	done := op.done
	p.rv.Await(func() bool { return done.ready() || (w.exited() && !done.claimed.Load()) })

	p.release(w)
	if holder != nil {
		holder.ResetWorker()
	}
	if !done.claimed.Load() {
		return domain.ErrEngineClosed
	}
	return done.Err()
}

// executeInline runs op on the caller's goroutine. The operation still gets
// a worker identity of its own, so Owns and OnWorker behave as in pooled mode.
func (p *Pool) executeInline(ctx context.Context, op operation, holder WorkerHolder) error {
	if p.isClosed() {
		return domain.ErrEngineClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	w := newWorker(p.nextID.Add(1), p)
	close(w.done)
	w.setState(WorkerExecuting)
	if holder != nil {
		holder.SetWorker(w)
		defer holder.ResetWorker()
	}
	return p.execute(withWorker(ctx, w), op)
}

// execute runs op on the current goroutine.
func (p *Pool) execute(ctx context.Context, op operation) error {
	start := time.Now()
	var err error

	switch op.kind {
	case OpDeliverEvent:
		if op.event.Empty() {
			break
		}
		if nerr := capture(func() error { return p.notifier.Notify(ctx, op.event) }); nerr != nil {
			p.faults.Translate(op.event.Bundle, op.kind, nerr)
		}
	case OpStart:
		err = capture(func() error { return p.hooks.RunStart(ctx, op.target) })
	case OpStop:
		err = capture(func() error { return p.hooks.RunStop(ctx, op.target) })
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
		p.faults.Translate(op.target, op.kind, err)
		err = &domain.HookError{
			BundleID:     idOf(op.target),
			SymbolicName: targetName(op.target),
			Op:           op.kind.String(),
			Err:          err,
		}
	}
	p.metrics.Operations.WithLabelValues(op.kind.String(), outcome).Inc()
	p.metrics.OpDuration.WithLabelValues(op.kind.String()).Observe(time.Since(start).Seconds())
	return err
}

// obtain takes the most recently used idle worker or starts a new one.
func (p *Pool) obtain() (*Worker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, domain.ErrEngineClosed
	}
	p.reapLocked()

	var w *Worker
	for w == nil && len(p.active) > 0 {
		n := len(p.active)
		head := p.active[0]
		copy(p.active, p.active[1:])
		p.active[n-1] = nil
		p.active = p.active[:n-1]
		if !head.exited() {
			w = head
		}
	}
	if w == nil {
		w = newWorker(p.nextID.Add(1), p)
		go w.run()
		p.metrics.WorkersCreated.Inc()
		w.logger.Debug("worker started")
	}
	p.busy[w] = struct{}{}
	p.updateGaugesLocked()
	return w, nil
}

// release returns w to the front of the active set once its caller has
// observed completion.
func (p *Pool) release(w *Worker) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.busy, w)
	if p.closed || w.exited() {
		return
	}
	p.active = append(p.active, nil)
	copy(p.active[1:], p.active)
	p.active[0] = w
	p.updateGaugesLocked()
}

// retire moves w from the active set to the zombies. It returns false when
// w is not in the active set, meaning a caller has just taken it.
func (p *Pool) retire(w *Worker) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, a := range p.active {
		if a != w {
			continue
		}
		p.active = append(p.active[:i], p.active[i+1:]...)
		p.zombies = append(p.zombies, w)
		w.setState(WorkerRetiring)
		p.metrics.WorkersRetired.Inc()
		p.updateGaugesLocked()
		w.logger.Debug("worker retiring", log.Duration("keep_alive", p.keepAlive))
		return true
	}
	return false
}

// reapLocked drops zombies whose goroutine has exited.
func (p *Pool) reapLocked() {
	kept := p.zombies[:0]
	for _, z := range p.zombies {
		if !z.exited() {
			kept = append(kept, z)
		}
	}
	for i := len(kept); i < len(p.zombies); i++ {
		p.zombies[i] = nil
	}
	p.zombies = kept
}

func (p *Pool) updateGaugesLocked() {
	p.metrics.ActiveWorkers.Set(float64(len(p.active)))
	p.metrics.ZombieWorkers.Set(float64(len(p.zombies)))
}

// ActiveCount returns the number of idle workers available for reuse.
func (p *Pool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// ZombieCount returns the number of retired workers not yet reaped.
func (p *Pool) ZombieCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.zombies)
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Shutdown stops every worker and waits for them to exit. Operations already
// executing finish first; later Acquire calls fail with ErrEngineClosed.
// Workers that ctx is running on are stopped without being waited for.
func (p *Pool) Shutdown(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	workers := make([]*Worker, 0, len(p.active)+len(p.zombies)+len(p.busy))
	workers = append(workers, p.active...)
	workers = append(workers, p.zombies...)
	for w := range p.busy {
		workers = append(workers, w)
	}
	p.active, p.zombies = nil, nil
	p.updateGaugesLocked()
	p.mu.Unlock()

	// Raise every flag before joining so a worker blocked on a nested
	// operation sees that operation fail instead of waiting forever.
	for _, w := range workers {
		w.stop()
	}
	for _, w := range workers {
		w.Quit(ctx)
	}
	p.rv.Broadcast()
	p.logger.Debug("lifecycle engine shut down", log.Int("workers", len(workers)))
}

// capture runs fn and converts a panic into a *domain.PanicError.
func capture(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &domain.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

func idOf(b domain.BundleRef) uint64 {
	if b == nil {
		return 0
	}
	return b.ID()
}
