package engine

import (
	"sync"

	"github.com/bft-labs/bundlekit/internal/domain"
)

// emptyEvent is the value an EventCell holds after it has been consumed.
var emptyEvent = domain.BundleEvent{Type: domain.BundleInstalled}

// EventCell holds the most recently stored bundle event. Stores overwrite,
// so events stored before a worker consumes the cell collapse to the last one.
type EventCell struct {
	mu sync.Mutex
	ev domain.BundleEvent
}

// Store overwrites the cell unconditionally.
func (c *EventCell) Store(ev domain.BundleEvent) {
	c.mu.Lock()
	c.ev = ev
	c.mu.Unlock()
}

// Exchange returns the current value and replaces it with def in one step.
func (c *EventCell) Exchange(def domain.BundleEvent) domain.BundleEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev := c.ev
	c.ev = def
	return ev
}
