package engine

import (
	"sync"
	"time"

	"github.com/bft-labs/bundlekit/internal/domain"
)

type claimStatus int

const (
	claimed claimStatus = iota
	claimTimedOut
	claimQuit
)

// mailbox is a capacity-one slot for the next operation of a worker.
type mailbox struct {
	mu   sync.Mutex
	cond *sync.Cond
	op   operation
	quit bool
}

func newMailbox() *mailbox {
	m := &mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// post waits until the slot is empty, stores op and wakes the worker.
func (m *mailbox) post(op operation) error {
	m.mu.Lock()
	for !m.quit && m.op.kind != OpNone {
		m.cond.Wait()
	}
	if m.quit {
		m.mu.Unlock()
		return domain.ErrEngineClosed
	}
	m.op = op
	m.cond.Broadcast()
	m.mu.Unlock()
	return nil
}

// claim waits up to keepAlive for an operation. A claimed operation leaves
// the slot empty and carries the event exchanged out of cell.
func (m *mailbox) claim(keepAlive time.Duration, cell *EventCell) (operation, claimStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.quit && m.op.kind == OpNone {
		deadline := time.Now().Add(keepAlive)
		// sync.Cond has no timed wait; the timer wakes us at the deadline.
		timer := time.AfterFunc(keepAlive, func() {
			m.mu.Lock()
			m.cond.Broadcast()
			m.mu.Unlock()
		})
		for !m.quit && m.op.kind == OpNone && time.Now().Before(deadline) {
			m.cond.Wait()
		}
		timer.Stop()
	}

	if m.quit {
		return operation{}, claimQuit
	}
	if m.op.kind == OpNone {
		return operation{}, claimTimedOut
	}

	op := m.op
	m.op = operation{}
	op.done.claimed.Store(true)
	if ev := cell.Exchange(emptyEvent); op.kind == OpDeliverEvent {
		op.event = ev
	}
	m.cond.Broadcast()
	return op, claimed
}

// stop raises the quit flag and wakes every waiter. Idempotent.
func (m *mailbox) stop() {
	m.mu.Lock()
	m.quit = true
	m.cond.Broadcast()
	m.mu.Unlock()
}
