package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bft-labs/bundlekit/internal/domain"
)

// Op is the kind of lifecycle operation a worker executes.
type Op int

const (
	OpNone Op = iota
	OpDeliverEvent
	OpStart
	OpStop
)

func (o Op) String() string {
	switch o {
	case OpNone:
		return "none"
	case OpDeliverEvent:
		return "deliver-event"
	case OpStart:
		return "start"
	case OpStop:
		return "stop"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// operation is the content of a mailbox slot.
type operation struct {
	kind   Op
	target domain.BundleRef
	event  domain.BundleEvent
	ctx    context.Context
	done   *completion
}

// completion is a single-resolution result handle. claimed is set by the
// worker that takes the operation out of the mailbox.
type completion struct {
	once    sync.Once
	ch      chan struct{}
	err     error
	claimed atomic.Bool
}

func newCompletion() *completion {
	return &completion{ch: make(chan struct{})}
}

// resolve records err (nil for success) and marks the completion ready.
// Only the first call has an effect.
func (c *completion) resolve(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.ch)
	})
}

func (c *completion) ready() bool {
	select {
	case <-c.ch:
		return true
	default:
		return false
	}
}

// Err returns the recorded error. Valid only once ready() is true.
func (c *completion) Err() error {
	<-c.ch
	return c.err
}
