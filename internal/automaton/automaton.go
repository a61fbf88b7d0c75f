package automaton

// State is a state of a deterministic finite automaton over pattern
// element indices.
type State int

// Automaton is the interface of the compiled token-level automaton.
//
// Properties:
//   - Deterministic: single transition per (state, input)
//   - Total: missing transitions lead to an explicit error state
//   - No ε-transitions
type Automaton interface {
	// Start returns the initial state.
	Start() State

	// Step returns the next state for the given pattern index.
	// Returns the error state if no transition exists.
	Step(state State, input int) State

	// IsAccept returns true if the state is an accepting state.
	IsAccept(state State) bool

	// CanMatch returns true if any accepting state is reachable from this state.
	CanMatch(state State) bool
}
