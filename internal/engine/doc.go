// Package engine executes bundle lifecycle operations on a pool of reusable
// worker goroutines.
//
// A caller asks the [Pool] for a worker, posts one operation (start, stop or
// event delivery) into that worker's single-slot mailbox and waits on the
// shared [Rendezvous] until the operation resolves. The rendezvous lock is
// released for the whole wait, so a hook running on a worker can take the
// same lock (to resolve a bundle) or issue nested lifecycle calls, which are
// served by a different worker.
//
// # Worker states
//
//	Idle -> Executing -> Idle
//	Idle -> Terminated          (shutdown)
//	Idle -> Retiring -> Terminated  (keep-alive expired while unclaimed)
//
// A worker whose keep-alive expires moves itself from the active list to the
// zombie list under the pool mutex, but only if it is still in the active
// list; if a caller took it in the meantime it keeps serving.
//
// # Faults
//
// Errors and panics raised by hooks are returned to the caller of
// [Pool.Acquire] and, independently, published asynchronously as
// FrameworkError events by the [FaultTranslator]. Listener failures during
// event delivery are only published, never returned.
//
// # Inline mode
//
// With WithInline(true) the pool runs every operation on the caller's
// goroutine with the same fault handling and no parallelism.
package engine
