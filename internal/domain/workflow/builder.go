package workflow

import (
	"fmt"
	"sort"
)

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns a state configuration for the given state
	Configure(state State) StateConfiguration

	// Build creates a new state machine instance with the given initial state
	Build(initialState State) StateMachine
}

// StateConfiguration configures transitions out of a specific state
type StateConfiguration interface {
	// Permit allows an action to transition to the target state
	Permit(action Action, toState State) StateConfiguration
}

// stateConfig implements StateConfiguration
type stateConfig struct {
	fromState   State
	transitions map[Action]State
}

// stateMachineBuilder implements StateMachineBuilder
type stateMachineBuilder struct {
	configurations map[State]*stateConfig
}

// stateMachine implements StateMachine
type stateMachine struct {
	currentState   State
	configurations map[State]*stateConfig
}

// NewBuilder creates a new state machine builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{
		configurations: make(map[State]*stateConfig),
	}
}

// Configure returns a state configuration for the given state
func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig{
			fromState:   state,
			transitions: make(map[Action]State),
		}
		b.configurations[state] = config
	}

	return config
}

// Build creates a new state machine instance with the given initial state
func (b *stateMachineBuilder) Build(initialState State) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	// Deep copy configurations so built machines are independent
	configsCopy := make(map[State]*stateConfig)
	for state, config := range b.configurations {
		transitionsCopy := make(map[Action]State, len(config.transitions))
		for action, toState := range config.transitions {
			transitionsCopy[action] = toState
		}
		configsCopy[state] = &stateConfig{
			fromState:   state,
			transitions: transitionsCopy,
		}
	}

	return &stateMachine{
		currentState:   initialState,
		configurations: configsCopy,
	}
}

// Permit allows an action to transition to the target state
func (c *stateConfig) Permit(action Action, toState State) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}

	c.transitions[action] = toState
	return c
}

// State returns the current state
func (m *stateMachine) State() State {
	return m.currentState
}

// CanFire returns true if the action is permitted in the current state
func (m *stateMachine) CanFire(action Action) bool {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return false
	}

	_, exists = config.transitions[action]
	return exists
}

// Fire attempts to execute the action, transitioning to the new state if allowed
func (m *stateMachine) Fire(action Action) error {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return fmt.Errorf("%w: cannot fire action %s from state %s", ErrInvalidTransition, action, m.currentState)
	}

	toState, exists := config.transitions[action]
	if !exists {
		return fmt.Errorf("%w: cannot fire action %s from state %s", ErrInvalidTransition, action, m.currentState)
	}

	m.currentState = toState
	return nil
}

// PermittedActions returns all actions that can be fired in the current state
func (m *stateMachine) PermittedActions() []Action {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return []Action{}
	}

	actions := make([]Action, 0, len(config.transitions))
	for action := range config.transitions {
		actions = append(actions, action)
	}

	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}
