package bundlekit_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/bundlekit/pkg/bundlekit"
)

// =============================================================================
// Test Utilities
// =============================================================================

// testLogger implements bundlekit.Logger for capturing log output in tests.
type testLogger struct {
	mu       *sync.Mutex
	messages *[]string
}

func newTestLogger() *testLogger {
	return &testLogger{mu: &sync.Mutex{}, messages: &[]string{}}
}

func (l *testLogger) Debug(msg string, fields ...bundlekit.LogField) { l.log("DEBUG", msg) }
func (l *testLogger) Info(msg string, fields ...bundlekit.LogField)  { l.log("INFO", msg) }
func (l *testLogger) Warn(msg string, fields ...bundlekit.LogField)  { l.log("WARN", msg) }
func (l *testLogger) Error(msg string, fields ...bundlekit.LogField) { l.log("ERROR", msg) }

func (l *testLogger) With(fields ...bundlekit.LogField) bundlekit.Logger { return l }

func (l *testLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.messages = append(*l.messages, fmt.Sprintf("[%s] %s", level, msg))
}

func (l *testLogger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := make([]string, len(*l.messages))
	copy(cp, *l.messages)
	return cp
}

// trackingPlugin tracks initialization and shutdown calls for testing.
type trackingPlugin struct {
	name          string
	initOrder     *[]string
	shutdownOrder *[]string
	initError     error
	shutdownError error
	onInit        func(ctx context.Context, cfg bundlekit.PluginConfig) error
	mu            sync.Mutex
	initialized   bool
	shutdown      bool
}

func newTrackingPlugin(name string, initOrder, shutdownOrder *[]string) *trackingPlugin {
	return &trackingPlugin{
		name:          name,
		initOrder:     initOrder,
		shutdownOrder: shutdownOrder,
	}
}

func (p *trackingPlugin) Name() string { return p.name }

func (p *trackingPlugin) Initialize(ctx context.Context, cfg bundlekit.PluginConfig) error {
	if p.onInit != nil {
		if err := p.onInit(ctx, cfg); err != nil {
			return err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initError != nil {
		return p.initError
	}

	*p.initOrder = append(*p.initOrder, p.name)
	p.initialized = true
	return nil
}

func (p *trackingPlugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	*p.shutdownOrder = append(*p.shutdownOrder, p.name)
	p.shutdown = true
	return p.shutdownError
}

func (p *trackingPlugin) IsInitialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}

func (p *trackingPlugin) IsShutdown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdown
}

// eventTracker records everything an EventHandler receives.
type eventTracker struct {
	mu           sync.Mutex
	stateChanges []bundlekit.StateChangeEvent
	bundleEvents []bundlekit.BundleEvent
	faults       []bundlekit.FrameworkEvent
}

func (e *eventTracker) OnStateChange(event bundlekit.StateChangeEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stateChanges = append(e.stateChanges, event)
}

func (e *eventTracker) OnBundleEvent(event bundlekit.BundleEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bundleEvents = append(e.bundleEvents, event)
}

func (e *eventTracker) OnFrameworkEvent(event bundlekit.FrameworkEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if event.Type == bundlekit.FrameworkError {
		e.faults = append(e.faults, event)
	}
}

func (e *eventTracker) StateChanges() []bundlekit.StateChangeEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]bundlekit.StateChangeEvent{}, e.stateChanges...)
}

func (e *eventTracker) Faults() []bundlekit.FrameworkEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]bundlekit.FrameworkEvent{}, e.faults...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// =============================================================================
// Plugin Lifecycle Tests
// =============================================================================

func TestPlugin_InitializationOrder(t *testing.T) {
	logger := newTestLogger()

	var initOrder []string
	var shutdownOrder []string

	plugin1 := newTrackingPlugin("plugin1", &initOrder, &shutdownOrder)
	plugin2 := newTrackingPlugin("plugin2", &initOrder, &shutdownOrder)
	plugin3 := newTrackingPlugin("plugin3", &initOrder, &shutdownOrder)

	fw, err := bundlekit.New(bundlekit.DefaultConfig(),
		bundlekit.WithLogger(logger),
		bundlekit.WithPlugin(plugin1),
		bundlekit.WithPlugin(plugin2),
		bundlekit.WithPlugin(plugin3),
	)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	if err := fw.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	if len(initOrder) != 3 {
		t.Fatalf("Expected 3 plugins initialized, got %d", len(initOrder))
	}
	if initOrder[0] != "plugin1" || initOrder[1] != "plugin2" || initOrder[2] != "plugin3" {
		t.Errorf("Unexpected init order: %v", initOrder)
	}

	if err := fw.Stop(ctx); err != nil {
		t.Errorf("Stop() failed: %v", err)
	}

	if len(shutdownOrder) != 3 {
		t.Fatalf("Expected 3 plugins shutdown, got %d", len(shutdownOrder))
	}
	if shutdownOrder[0] != "plugin3" || shutdownOrder[1] != "plugin2" || shutdownOrder[2] != "plugin1" {
		t.Errorf("Unexpected shutdown order: %v (expected reverse of init)", shutdownOrder)
	}
}

func TestPlugin_InitializationFailure_PreventsStart(t *testing.T) {
	var initOrder []string
	var shutdownOrder []string

	plugin1 := newTrackingPlugin("plugin1", &initOrder, &shutdownOrder)
	plugin2 := newTrackingPlugin("plugin2", &initOrder, &shutdownOrder)
	plugin2.initError = errors.New("intentional init failure")
	plugin3 := newTrackingPlugin("plugin3", &initOrder, &shutdownOrder)

	fw, err := bundlekit.New(bundlekit.DefaultConfig(),
		bundlekit.WithPlugin(plugin1),
		bundlekit.WithPlugin(plugin2),
		bundlekit.WithPlugin(plugin3),
	)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	err = fw.Start(context.Background())
	if !errors.Is(err, plugin2.initError) {
		t.Fatalf("Start() = %v, want plugin2 init error", err)
	}

	if len(initOrder) != 1 || initOrder[0] != "plugin1" {
		t.Errorf("Expected only plugin1 to init before failure, got: %v", initOrder)
	}
	if plugin3.IsInitialized() {
		t.Error("plugin3 should not have been initialized after plugin2 failed")
	}
	if !plugin1.IsShutdown() {
		t.Error("plugin1 should have been shut down after the failed start")
	}
	if fw.Status() != bundlekit.StateCrashed {
		t.Errorf("Status = %v, want Crashed", fw.Status())
	}
}

func TestPlugin_ShutdownFailure_ContinuesOtherPlugins(t *testing.T) {
	var initOrder []string
	var shutdownOrder []string

	plugin1 := newTrackingPlugin("plugin1", &initOrder, &shutdownOrder)
	plugin2 := newTrackingPlugin("plugin2", &initOrder, &shutdownOrder)
	plugin2.shutdownError = errors.New("intentional shutdown failure")
	plugin3 := newTrackingPlugin("plugin3", &initOrder, &shutdownOrder)

	fw, err := bundlekit.New(bundlekit.DefaultConfig(),
		bundlekit.WithPlugin(plugin1),
		bundlekit.WithPlugin(plugin2),
		bundlekit.WithPlugin(plugin3),
	)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	if err := fw.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	if err := fw.Stop(ctx); err != nil {
		t.Errorf("Stop() failed: %v", err)
	}

	if len(shutdownOrder) != 3 {
		t.Errorf("Expected all 3 plugins to attempt shutdown, got: %v", shutdownOrder)
	}
	if !plugin1.IsShutdown() || !plugin3.IsShutdown() {
		t.Error("plugin1 and plugin3 should have been shut down despite plugin2's failure")
	}
}

func TestPlugin_InstallsBundlesDuringInitialize(t *testing.T) {
	var initOrder []string
	var shutdownOrder []string

	var stopped atomic.Bool
	plugin := newTrackingPlugin("installer", &initOrder, &shutdownOrder)
	plugin.onInit = func(ctx context.Context, cfg bundlekit.PluginConfig) error {
		b, err := cfg.Framework.Install(ctx, bundlekit.BundleSpec{
			SymbolicName: "from-plugin",
			Activator: bundlekit.ActivatorFuncs{
				OnStop: func(ctx context.Context, bc *bundlekit.BundleContext) error {
					stopped.Store(true)
					return nil
				},
			},
		})
		if err != nil {
			return err
		}
		return b.Start(ctx)
	}

	fw, err := bundlekit.New(bundlekit.DefaultConfig(), bundlekit.WithPlugin(plugin))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	if err := fw.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	b, ok := fw.Lookup("from-plugin")
	if !ok {
		t.Fatal("bundle installed by plugin not found")
	}
	if b.State() != bundlekit.BundleStateActive {
		t.Errorf("bundle state = %v, want Active", b.State())
	}

	if err := fw.Stop(ctx); err != nil {
		t.Errorf("Stop() failed: %v", err)
	}
	if !stopped.Load() {
		t.Error("bundle should have been stopped with the framework")
	}
}

// =============================================================================
// Edge Case Tests
// =============================================================================

func TestPlugin_StartAlreadyRunning(t *testing.T) {
	fw, err := bundlekit.New(bundlekit.DefaultConfig())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	if err := fw.Start(ctx); err != nil {
		t.Fatalf("First Start() failed: %v", err)
	}

	if err := fw.Start(ctx); !errors.Is(err, bundlekit.ErrAlreadyRunning) {
		t.Errorf("Second Start() = %v, want ErrAlreadyRunning", err)
	}

	if err := fw.Stop(ctx); err != nil {
		t.Errorf("Stop() failed: %v", err)
	}
}

func TestPlugin_StopAlreadyStopped(t *testing.T) {
	fw, err := bundlekit.New(bundlekit.DefaultConfig())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if err := fw.Stop(context.Background()); !errors.Is(err, bundlekit.ErrNotRunning) {
		t.Errorf("Stop() without Start() = %v, want ErrNotRunning", err)
	}
}

func TestPlugin_RapidStartStop(t *testing.T) {
	var initOrder []string
	var shutdownOrder []string
	plugin := newTrackingPlugin("rapid-test", &initOrder, &shutdownOrder)

	fw, err := bundlekit.New(bundlekit.DefaultConfig(), bundlekit.WithPlugin(plugin))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := fw.Start(ctx); err != nil {
			t.Fatalf("Start() iteration %d failed: %v", i, err)
		}

		name := fmt.Sprintf("bundle-%d", i)
		b, err := fw.Install(ctx, bundlekit.BundleSpec{SymbolicName: name})
		if err != nil {
			t.Fatalf("Install() iteration %d failed: %v", i, err)
		}
		if err := b.Start(ctx); err != nil {
			t.Fatalf("bundle Start() iteration %d failed: %v", i, err)
		}

		if err := fw.Stop(ctx); err != nil {
			t.Errorf("Stop() iteration %d failed: %v", i, err)
		}
	}

	if fw.Status() != bundlekit.StateStopped {
		t.Errorf("Final status = %v, want Stopped", fw.Status())
	}
	if len(initOrder) != 5 || len(shutdownOrder) != 5 {
		t.Errorf("init/shutdown counts = %d/%d, want 5/5", len(initOrder), len(shutdownOrder))
	}
	if got := len(fw.Bundles()); got != 5 {
		t.Errorf("installed bundles = %d, want 5 (bundles survive restarts)", got)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  bundlekit.Config
	}{
		{"negative keep-alive", bundlekit.Config{KeepAlive: -time.Second}},
		{"negative stop timeout", bundlekit.Config{StopTimeout: -time.Second}},
		{"bad namespace", bundlekit.Config{MetricsNamespace: "bundle-kit"}},
		{"leading digit", bundlekit.Config{MetricsNamespace: "1kit"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := bundlekit.New(tt.cfg); !errors.Is(err, bundlekit.ErrInvalidConfig) {
				t.Errorf("New() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestNew_MetricsRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	fw, err := bundlekit.New(bundlekit.DefaultConfig(), bundlekit.WithMetricsRegisterer(reg))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	if err := fw.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	b, _ := fw.Install(ctx, bundlekit.BundleSpec{SymbolicName: "measured"})
	if err := b.Start(ctx); err != nil {
		t.Fatalf("bundle Start() failed: %v", err)
	}
	_ = fw.Stop(ctx)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "bundlekit_engine_operations_total" {
			found = true
		}
	}
	if !found {
		t.Error("operations counter not registered")
	}
	if len(fw.Collectors()) == 0 {
		t.Error("Collectors() returned nothing")
	}
}

// =============================================================================
// Event Handler Tests
// =============================================================================

func TestEventHandler_ReceivesStateChangesAndFaults(t *testing.T) {
	tracker := &eventTracker{}
	fw, err := bundlekit.New(bundlekit.DefaultConfig(), bundlekit.WithEventHandler(tracker))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	if err := fw.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	errBoom := errors.New("boom")
	b, _ := fw.Install(ctx, bundlekit.BundleSpec{
		SymbolicName: "faulty",
		Activator: bundlekit.ActivatorFuncs{
			OnStart: func(ctx context.Context, bc *bundlekit.BundleContext) error { return errBoom },
		},
	})
	err = b.Start(ctx)
	var hookErr *bundlekit.HookError
	if !errors.As(err, &hookErr) || !errors.Is(err, errBoom) {
		t.Fatalf("bundle Start() = %v, want HookError wrapping boom", err)
	}
	waitFor(t, func() bool { return len(tracker.Faults()) == 1 })

	if err := fw.Stop(ctx); err != nil {
		t.Errorf("Stop() failed: %v", err)
	}

	changes := tracker.StateChanges()
	if len(changes) != 4 {
		t.Fatalf("Expected 4 state changes, got %d: %v", len(changes), changes)
	}
	if changes[0].Previous != bundlekit.StateStopped || changes[0].Current != bundlekit.StateStarting {
		t.Errorf("First transition = %v -> %v, want Stopped -> Starting",
			changes[0].Previous, changes[0].Current)
	}
	if changes[3].Current != bundlekit.StateStopped {
		t.Errorf("Last transition ends in %v, want Stopped", changes[3].Current)
	}
	if f := tracker.Faults()[0]; f.SymbolicName != "faulty" {
		t.Errorf("fault bundle = %q, want faulty", f.SymbolicName)
	}
}

func TestBasePlugin_DefaultBehavior(t *testing.T) {
	bp := bundlekit.NewBasePlugin("test-base")

	if bp.Name() != "test-base" {
		t.Errorf("Name() = %v, want test-base", bp.Name())
	}

	ctx := context.Background()
	if err := bp.Initialize(ctx, bundlekit.PluginConfig{}); err != nil {
		t.Errorf("Initialize() = %v, want nil", err)
	}
	if err := bp.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() = %v, want nil", err)
	}
}

func TestBaseEventHandler_DefaultBehavior(t *testing.T) {
	beh := bundlekit.BaseEventHandler{}

	// All methods should be no-ops (not panic)
	beh.OnStateChange(bundlekit.StateChangeEvent{})
	beh.OnBundleEvent(bundlekit.BundleEvent{})
	beh.OnFrameworkEvent(bundlekit.FrameworkEvent{})
}

// =============================================================================
// State Tests
// =============================================================================

func TestState_StringRepresentation(t *testing.T) {
	tests := []struct {
		state    bundlekit.State
		expected string
	}{
		{bundlekit.StateStopped, "Stopped"},
		{bundlekit.StateStarting, "Starting"},
		{bundlekit.StateRunning, "Running"},
		{bundlekit.StateStopping, "Stopping"},
		{bundlekit.StateCrashed, "Crashed"},
		{bundlekit.State(99), "Unknown"},
	}

	for _, tc := range tests {
		if got := tc.state.String(); got != tc.expected {
			t.Errorf("State(%d).String() = %q, want %q", tc.state, got, tc.expected)
		}
	}
}

func TestState_Predicates(t *testing.T) {
	if !bundlekit.StateStopped.CanStart() || !bundlekit.StateCrashed.CanStart() {
		t.Error("Stopped and Crashed should allow Start")
	}
	if bundlekit.StateRunning.CanStart() || bundlekit.StateStopping.CanStart() {
		t.Error("Running and Stopping should not allow Start")
	}
	if !bundlekit.StateRunning.CanStop() || !bundlekit.StateStarting.CanStop() {
		t.Error("Running and Starting should allow Stop")
	}
	if bundlekit.StateStopped.CanStop() || bundlekit.StateCrashed.CanStop() {
		t.Error("Stopped and Crashed should not allow Stop")
	}
	if !bundlekit.StateRunning.IsRunning() || bundlekit.StateStarting.IsRunning() {
		t.Error("only Running should report IsRunning")
	}
}
