package workflow

import "fmt"

// Action represents a caller-supplied workflow action. The type is
// closed: tokens must pass through ParseAction, so unrecognized input
// is rejected at the boundary rather than inside the engine.
type Action string

const (
	ActionApprove         Action = "approve"
	ActionReject          Action = "reject"
	ActionStartProcessing Action = "start_processing"
	ActionComplete        Action = "complete"
	ActionCancel          Action = "cancel"
)

// Transition describes the effect of an action: the request status to
// persist plus the step to upsert.
type Transition struct {
	RequestStatus State
	StepName      string
	StepStatus    StepStatus
}

// transitions is the single source of truth mapping actions to their
// request/step effects. Both the engine and the dispatcher read it.
var transitions = map[Action]Transition{
	ActionApprove:         {RequestStatus: StateApproved, StepName: "Approval Decision", StepStatus: StepCompleted},
	ActionReject:          {RequestStatus: StateRejected, StepName: "Approval Decision", StepStatus: StepCompleted},
	ActionStartProcessing: {RequestStatus: StateProcessing, StepName: "Processing", StepStatus: StepInProgress},
	ActionComplete:        {RequestStatus: StateCompleted, StepName: "Completion", StepStatus: StepCompleted},
	ActionCancel:          {RequestStatus: StateCancelled, StepName: "Cancellation", StepStatus: StepCompleted},
}

// ParseAction converts an external action token into an Action.
// Unknown tokens fail with ErrInvalidAction.
func ParseAction(token string) (Action, error) {
	a := Action(token)
	if _, ok := transitions[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, token)
	}
	return a, nil
}

// Resolve returns the transition for the action, or ErrInvalidAction
// if the action is not part of the closed vocabulary.
func (a Action) Resolve() (Transition, error) {
	t, ok := transitions[a]
	if !ok {
		return Transition{}, fmt.Errorf("%w: %q", ErrInvalidAction, string(a))
	}
	return t, nil
}

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}
