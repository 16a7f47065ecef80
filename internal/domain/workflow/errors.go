package workflow

import "errors"

var (
	// ErrNotFound is returned when a request or step id does not resolve
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when an action is attempted on a terminal request
	ErrInvalidState = errors.New("request is in a terminal state")

	// ErrInvalidAction is returned when an action token is not recognized
	ErrInvalidAction = errors.New("invalid action")

	// ErrInvalidTemplate is returned when a template id is not recognized
	ErrInvalidTemplate = errors.New("invalid template")

	// ErrValidation is returned when input fails a business-rule check
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrStatusConflict is returned when a guarded update observes a
	// status changed by a concurrent writer. Callers may retry.
	ErrStatusConflict = errors.New("request status changed concurrently")
)
