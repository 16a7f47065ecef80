package workflow

import (
	"errors"
	"testing"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StatePending, false},
		{StateApproved, false},
		{StateProcessing, false},
		{StateCompleted, true},
		{StateRejected, true},
		{StateCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"valid state", StatePending, true},
		{"valid state", StateCancelled, true},
		{"invalid state", State("shipped"), false},
		{"empty state", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStepStatus_IsValid(t *testing.T) {
	if !StepInProgress.IsValid() {
		t.Error("StepInProgress should be valid")
	}
	if StepStatus("done").IsValid() {
		t.Error("unknown step status should be invalid")
	}
}

func TestBuilder_ConfigurePanicsOnInvalidState(t *testing.T) {
	builder := NewBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on invalid state")
		}
	}()

	builder.Configure(State("shipped"))
}

func TestBuilder_BuildPanicsOnInvalidInitialState(t *testing.T) {
	builder := NewBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on invalid initial state")
		}
	}()

	builder.Build(State(""))
}

func TestBuildReturnRequestStateMachine(t *testing.T) {
	tests := []struct {
		name         string
		initialState State
		action       Action
		wantState    State
		wantError    bool
	}{
		{
			name:         "pending -> approved on approve",
			initialState: StatePending,
			action:       ActionApprove,
			wantState:    StateApproved,
		},
		{
			name:         "pending -> rejected on reject",
			initialState: StatePending,
			action:       ActionReject,
			wantState:    StateRejected,
		},
		{
			name:         "pending -> cancelled on cancel",
			initialState: StatePending,
			action:       ActionCancel,
			wantState:    StateCancelled,
		},
		{
			name:         "approved -> processing on start_processing",
			initialState: StateApproved,
			action:       ActionStartProcessing,
			wantState:    StateProcessing,
		},
		{
			name:         "approved -> cancelled on cancel",
			initialState: StateApproved,
			action:       ActionCancel,
			wantState:    StateCancelled,
		},
		{
			name:         "processing -> completed on complete",
			initialState: StateProcessing,
			action:       ActionComplete,
			wantState:    StateCompleted,
		},
		{
			name:         "processing -> cancelled on cancel",
			initialState: StateProcessing,
			action:       ActionCancel,
			wantState:    StateCancelled,
		},
		{
			name:         "pending cannot complete",
			initialState: StatePending,
			action:       ActionComplete,
			wantState:    StatePending,
			wantError:    true,
		},
		{
			name:         "approved cannot approve again",
			initialState: StateApproved,
			action:       ActionApprove,
			wantState:    StateApproved,
			wantError:    true,
		},
		{
			name:         "completed is terminal",
			initialState: StateCompleted,
			action:       ActionCancel,
			wantState:    StateCompleted,
			wantError:    true,
		},
		{
			name:         "rejected is terminal",
			initialState: StateRejected,
			action:       ActionApprove,
			wantState:    StateRejected,
			wantError:    true,
		},
		{
			name:         "cancelled is terminal",
			initialState: StateCancelled,
			action:       ActionComplete,
			wantState:    StateCancelled,
			wantError:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			machine := BuildReturnRequestStateMachine(tt.initialState)

			if got := machine.CanFire(tt.action); got == tt.wantError {
				t.Errorf("CanFire(%s) = %v, wantError %v", tt.action, got, tt.wantError)
			}

			err := machine.Fire(tt.action)
			if tt.wantError {
				if err == nil {
					t.Fatalf("Fire(%s) expected error, got nil", tt.action)
				}
				if !errors.Is(err, ErrInvalidTransition) {
					t.Errorf("Fire(%s) error = %v, want ErrInvalidTransition", tt.action, err)
				}
			} else if err != nil {
				t.Fatalf("Fire(%s) unexpected error: %v", tt.action, err)
			}

			if got := machine.State(); got != tt.wantState {
				t.Errorf("State() = %s, want %s", got, tt.wantState)
			}
		})
	}
}

func TestStateMachine_PermittedActions(t *testing.T) {
	tests := []struct {
		state State
		want  []Action
	}{
		{StatePending, []Action{ActionApprove, ActionCancel, ActionReject}},
		{StateApproved, []Action{ActionCancel, ActionStartProcessing}},
		{StateProcessing, []Action{ActionCancel, ActionComplete}},
		{StateCompleted, nil},
		{StateRejected, nil},
		{StateCancelled, nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			machine := BuildReturnRequestStateMachine(tt.state)
			got := machine.PermittedActions()
			if len(got) != len(tt.want) {
				t.Fatalf("PermittedActions() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("PermittedActions()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}
