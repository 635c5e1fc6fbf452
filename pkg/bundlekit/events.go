package bundlekit

// StateChangeEvent reports a framework lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// EventHandler receives framework notifications.
// Handlers are called synchronously; bundle events arrive on lifecycle
// workers, so implementations should return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnBundleEvent(event BundleEvent)
	OnFrameworkEvent(event FrameworkEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only the events you need.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)  {}
func (BaseEventHandler) OnBundleEvent(BundleEvent)       {}
func (BaseEventHandler) OnFrameworkEvent(FrameworkEvent) {}

// eventEmitterWrapper adapts EventHandler to the lifecycle emitter.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: previous,
		Current:  current,
		Reason:   reason,
	})
}
