package workflow

// BuildReturnRequestStateMachine creates a state machine configured
// for the return-request lifecycle.
func BuildReturnRequestStateMachine(initialState State) StateMachine {
	builder := NewBuilder()

	builder.Configure(StatePending).
		Permit(ActionApprove, StateApproved).
		Permit(ActionReject, StateRejected).
		Permit(ActionCancel, StateCancelled)

	builder.Configure(StateApproved).
		Permit(ActionStartProcessing, StateProcessing).
		Permit(ActionCancel, StateCancelled)

	builder.Configure(StateProcessing).
		Permit(ActionComplete, StateCompleted).
		Permit(ActionCancel, StateCancelled)

	// completed, rejected and cancelled are terminal - no outgoing transitions

	return builder.Build(initialState)
}
