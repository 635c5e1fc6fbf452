package engine

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/bft-labs/bundlekit/internal/domain"
	"github.com/bft-labs/bundlekit/internal/ports"
	"github.com/bft-labs/bundlekit/pkg/log"
)

// FaultTranslator turns hook failures into FrameworkError events.
type FaultTranslator struct {
	publisher ports.FaultPublisher
	tracker   ports.WorkTracker
	logger    log.Logger
	metrics   *Metrics
}

// NewFaultTranslator creates a translator publishing through publisher.
// tracker may be nil.
func NewFaultTranslator(publisher ports.FaultPublisher, tracker ports.WorkTracker, logger log.Logger) *FaultTranslator {
	if tracker == nil {
		tracker = nopTracker{}
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &FaultTranslator{publisher: publisher, tracker: tracker, logger: logger}
}

// Translate publishes a FrameworkError event for err raised by target's op
// hook. Publishing runs on its own goroutine; a panicking publisher is
// logged and otherwise ignored.
func (t *FaultTranslator) Translate(target domain.BundleRef, op Op, err error) {
	ev := domain.FrameworkEvent{
		Type:    domain.FrameworkError,
		Message: fmt.Sprintf("%s hook failed", op),
		Err:     err,
		Time:    time.Now(),
	}
	if target != nil {
		ev.BundleID = target.ID()
		ev.SymbolicName = target.SymbolicName()
	}

	t.logger.Error("bundle hook failed",
		append(log.Bundle(ev.BundleID, ev.SymbolicName),
			log.String("op", op.String()),
			log.Err(err),
		)...,
	)
	if t.metrics != nil {
		t.metrics.Faults.WithLabelValues(op.String()).Inc()
	}
	if t.publisher == nil {
		return
	}

	t.tracker.AddWorker()
	go func() {
		defer t.tracker.WorkerDone()
		defer func() {
			if r := recover(); r != nil {
				t.logger.Error("fault publisher panicked",
					log.Any("panic", r),
					log.String("stack", string(debug.Stack())),
				)
			}
		}()
		t.publisher.PublishFault(ev)
	}()
}

type nopTracker struct{}

func (nopTracker) AddWorker()  {}
func (nopTracker) WorkerDone() {}
