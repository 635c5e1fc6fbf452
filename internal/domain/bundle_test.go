package domain

import (
	"errors"
	"testing"
)

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateInstalled, "Installed"},
		{StateResolved, "Resolved"},
		{StateStarting, "Starting"},
		{StateActive, "Active"},
		{StateStopping, "Stopping"},
		{StateUninstalled, "Uninstalled"},
		{State(42), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
		want bool
	}{
		{"installed to resolved", StateInstalled, StateResolved, true},
		{"installed to starting", StateInstalled, StateStarting, false},
		{"resolved to starting", StateResolved, StateStarting, true},
		{"starting to active", StateStarting, StateActive, true},
		{"starting to resolved on failure", StateStarting, StateResolved, true},
		{"starting to stopping", StateStarting, StateStopping, false},
		{"active to stopping", StateActive, StateStopping, true},
		{"active to uninstalled", StateActive, StateUninstalled, false},
		{"stopping to resolved", StateStopping, StateResolved, true},
		{"uninstalled is terminal", StateUninstalled, StateInstalled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("%v -> %v = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestPanicError_Unwrap(t *testing.T) {
	sentinel := errors.New("inner")
	if !errors.Is(&PanicError{Value: sentinel}, sentinel) {
		t.Error("PanicError should unwrap an error value")
	}
	if errors.Unwrap(&PanicError{Value: "text"}) != nil {
		t.Error("non-error panic values should not unwrap")
	}
}

func TestHookError_Unwrap(t *testing.T) {
	sentinel := errors.New("activator failed")
	err := &HookError{BundleID: 2, SymbolicName: "greeter", Op: "stop", Err: sentinel}
	if !errors.Is(err, sentinel) {
		t.Error("HookError should unwrap")
	}
	if got := err.Error(); got != "bundle greeter (2): stop: activator failed" {
		t.Errorf("Error() = %q", got)
	}
}
