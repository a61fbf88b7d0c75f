package symtab

// waitingState is a simulation state parked in a StateQueue.
type waitingState struct {
	cpos int
	rt   *RefTab
}

// StateQueue is the wait list of simulation states behind a region element.
// States are kept sorted by end position; states with equal end positions
// leave in the order they arrived.
type StateQueue struct {
	st     *SymbolTable
	states []waitingState
}

// NewStateQueue returns an empty queue whose states carry reference tables
// sized for st. The symbol table may still grow until the first Push.
func NewStateQueue(st *SymbolTable) *StateQueue {
	return &StateQueue{st: st}
}

// Push inserts a copy of rt with end position cpos and returns the stored
// copy so the caller can bind labels on it.
func (q *StateQueue) Push(cpos int, rt *RefTab) *RefTab {
	stored := NewRefTab(q.st)
	if rt != nil {
		copy(stored.data, rt.data)
	}
	i := len(q.states)
	for i > 0 && q.states[i-1].cpos > cpos {
		i--
	}
	q.states = append(q.states, waitingState{})
	copy(q.states[i+1:], q.states[i:])
	q.states[i] = waitingState{cpos: cpos, rt: stored}
	return stored
}

// Pop removes the head of the queue, copies its reference table into out
// and returns its end position, or -1 if the queue is empty.
func (q *StateQueue) Pop(out *RefTab) int {
	if len(q.states) == 0 {
		return -1
	}
	head := q.states[0]
	q.states[0] = waitingState{}
	q.states = q.states[1:]
	if out != nil {
		copy(out.data, head.rt.data)
	}
	return head.cpos
}

// NextCpos returns the end position of the head, or -1 if empty.
func (q *StateQueue) NextCpos() int {
	return q.CposAt(0)
}

// CposAt returns the end position of the i-th waiting state, or -1.
func (q *StateQueue) CposAt(i int) int {
	if i < 0 || i >= len(q.states) {
		return -1
	}
	return q.states[i].cpos
}

// Len returns the number of waiting states.
func (q *StateQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.states)
}

// Clear drops every waiting state.
func (q *StateQueue) Clear() {
	if q == nil {
		return
	}
	clear(q.states)
	q.states = q.states[:0]
}
