package workflow

// State represents a return request's workflow status
type State string

const (
	StatePending    State = "pending"
	StateApproved   State = "approved"
	StateRejected   State = "rejected"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateCancelled  State = "cancelled"
)

var validStates = map[State]bool{
	StatePending:    true,
	StateApproved:   true,
	StateRejected:   true,
	StateProcessing: true,
	StateCompleted:  true,
	StateCancelled:  true,
}

var terminalStates = map[State]bool{
	StateRejected:  true,
	StateCompleted: true,
	StateCancelled: true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid request status
func (s State) IsValid() bool {
	return validStates[s]
}

// StepStatus represents the status of a single workflow step
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepRejected   StepStatus = "rejected"
)

var validStepStatuses = map[StepStatus]bool{
	StepPending:    true,
	StepInProgress: true,
	StepCompleted:  true,
	StepRejected:   true,
}

// String returns the string representation of the step status
func (s StepStatus) String() string {
	return string(s)
}

// IsValid returns true if the step status is valid
func (s StepStatus) IsValid() bool {
	return validStepStatuses[s]
}
