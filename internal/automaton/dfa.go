package automaton

import (
	"fmt"
	"strings"
)

// DFA is a total transition table over pattern indices. State 0 is the
// initial state. EState (== MaxStates) is the error state that completes
// the mapping; it is never stored as a row.
type DFA struct {
	MaxStates  int
	MaxInput   int
	TransTable [][]State
	Final      []bool
	EState     State
}

var _ Automaton = (*DFA)(nil)

func (d *DFA) Start() State { return 0 }

func (d *DFA) Step(state State, input int) State {
	if state < 0 || int(state) >= d.MaxStates || input < 0 || input >= d.MaxInput {
		return d.EState
	}
	return d.TransTable[state][input]
}

func (d *DFA) IsAccept(state State) bool {
	return state >= 0 && int(state) < d.MaxStates && d.Final[state]
}

// CanMatch is true for every state but the error state: subset
// construction over a Thompson NFA leaves no dead states.
func (d *DFA) CanMatch(state State) bool {
	return state >= 0 && int(state) < d.MaxStates
}

// InitialInputs returns the pattern indices with a transition out of the
// initial state, in increasing order.
func (d *DFA) InitialInputs() []int {
	return d.Inputs(0)
}

// Inputs returns the pattern indices with a transition out of state.
func (d *DFA) Inputs(state State) []int {
	var out []int
	for p := 0; p < d.MaxInput; p++ {
		if d.Step(state, p) != d.EState {
			out = append(out, p)
		}
	}
	return out
}

// String renders the transition table, one state per line.
func (d *DFA) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "DFA: %d states, %d inputs\n", d.MaxStates, d.MaxInput)
	for s := 0; s < d.MaxStates; s++ {
		marker := " "
		if d.Final[s] {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s s%d:", marker, s)
		for p := 0; p < d.MaxInput; p++ {
			if next := d.TransTable[s][p]; next != d.EState {
				fmt.Fprintf(&b, " %d->s%d", p, next)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
