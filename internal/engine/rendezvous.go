package engine

import "sync"

// Rendezvous is the shared monitor callers wait on for operation completion.
// The framework's resolver serializes on the same lock, which is why a
// waiting caller must never hold it: Wait releases it while blocked.
type Rendezvous struct {
	mu   sync.Mutex
	cond *sync.Cond
}

// NewRendezvous returns an unlocked rendezvous.
func NewRendezvous() *Rendezvous {
	r := &Rendezvous{}
	r.cond = sync.NewCond(&r.mu)
	return r
}

func (r *Rendezvous) Lock()   { r.mu.Lock() }
func (r *Rendezvous) Unlock() { r.mu.Unlock() }

// Wait blocks until pred holds. The caller must hold the lock; it is
// released while blocked and held again when Wait returns.
func (r *Rendezvous) Wait(pred func() bool) {
	for !pred() {
		r.cond.Wait()
	}
}

// Await takes the lock, waits for pred and releases the lock.
func (r *Rendezvous) Await(pred func() bool) {
	r.mu.Lock()
	r.Wait(pred)
	r.mu.Unlock()
}

// Broadcast wakes all waiters. Must not be called with the lock held.
func (r *Rendezvous) Broadcast() {
	r.mu.Lock()
	r.cond.Broadcast()
	r.mu.Unlock()
}

// BroadcastLocked wakes all waiters; the caller holds the lock.
func (r *Rendezvous) BroadcastLocked() {
	r.cond.Broadcast()
}
