package workflow

// StateMachine tracks a request's current state and validates action-driven transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the action is permitted in the current state
	CanFire(action Action) bool

	// Fire attempts to execute the action, transitioning to the new state if allowed
	Fire(action Action) error

	// PermittedActions returns all actions that can be fired in the current state
	PermittedActions() []Action
}
