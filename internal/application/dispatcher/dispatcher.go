// Package dispatcher translates external action tokens into workflow
// transitions. It is the transport layer's view of the engine's
// transition table: HTTP handlers consult it to pre-validate an action
// before invoking the engine, so the table is never duplicated in the
// transport code.
package dispatcher

import (
	"github.com/returndesk/return-workflow/internal/domain/workflow"
)

// Dispatcher resolves action tokens and answers which actions a
// request in a given state may execute.
type Dispatcher interface {
	// Resolve parses an action token and returns its transition.
	// Fails with workflow.ErrInvalidAction for unknown tokens.
	Resolve(token string) (workflow.Action, workflow.Transition, error)

	// CanExecute reports whether the request-level state graph permits
	// the action from the given state.
	CanExecute(state workflow.State, action workflow.Action) bool

	// Permitted returns the actions the state graph allows from the
	// given state. Empty for terminal states.
	Permitted(state workflow.State) []workflow.Action
}

type dispatcherImpl struct{}

// New creates a new action dispatcher
func New() Dispatcher {
	return &dispatcherImpl{}
}

func (d *dispatcherImpl) Resolve(token string) (workflow.Action, workflow.Transition, error) {
	action, err := workflow.ParseAction(token)
	if err != nil {
		return "", workflow.Transition{}, err
	}

	transition, err := action.Resolve()
	if err != nil {
		return "", workflow.Transition{}, err
	}

	return action, transition, nil
}

func (d *dispatcherImpl) CanExecute(state workflow.State, action workflow.Action) bool {
	if !state.IsValid() {
		return false
	}
	return workflow.BuildReturnRequestStateMachine(state).CanFire(action)
}

func (d *dispatcherImpl) Permitted(state workflow.State) []workflow.Action {
	if !state.IsValid() {
		return nil
	}
	return workflow.BuildReturnRequestStateMachine(state).PermittedActions()
}
