package symtab

import (
	"errors"
	"fmt"
)

var (
	ErrRefTabSize  = errors.New("reference tables differ in size")
	ErrRefTabIndex = errors.New("reference table index out of range")
)

// RefTab holds the last bound corpus position (-1 = unbound) for every
// label slot of a symbol table. Simulation states never share a RefTab;
// transitions copy it with Dup.
type RefTab struct {
	data []int
}

// NewRefTab returns a reference table sized for st with all slots unbound.
func NewRefTab(st *SymbolTable) *RefTab {
	rt := &RefTab{data: make([]int, st.Size())}
	rt.Reset()
	return rt
}

// Len returns the number of slots.
func (rt *RefTab) Len() int {
	if rt == nil {
		return 0
	}
	return len(rt.data)
}

// Dup copies rt into dst. Both tables must have the same size.
func (rt *RefTab) Dup(dst *RefTab) error {
	if rt.Len() != dst.Len() {
		return fmt.Errorf("dup %d entries into %d: %w", rt.Len(), dst.Len(), ErrRefTabSize)
	}
	if rt != nil {
		copy(dst.data, rt.data)
	}
	return nil
}

// Clone returns an independent copy of rt.
func (rt *RefTab) Clone() *RefTab {
	c := &RefTab{data: make([]int, rt.Len())}
	if rt != nil {
		copy(c.data, rt.data)
	}
	return c
}

// Reset unbinds every slot.
func (rt *RefTab) Reset() {
	if rt == nil {
		return
	}
	for i := range rt.data {
		rt.data[i] = -1
	}
}

// Set binds slot index to value. A nil table ignores the call.
func (rt *RefTab) Set(index, value int) error {
	if rt == nil {
		return nil
	}
	if index < 0 || index >= len(rt.data) {
		return fmt.Errorf("set index %d, valid 0..%d: %w", index, len(rt.data)-1, ErrRefTabIndex)
	}
	rt.data[index] = value
	return nil
}

// Get returns the position bound to slot index. The "this" slot (-1)
// always yields cpos; a nil table yields -1 for every other slot.
func (rt *RefTab) Get(index, cpos int) int {
	if index == ThisRef {
		return cpos
	}
	if rt == nil || index < 0 || index >= len(rt.data) {
		return -1
	}
	return rt.data[index]
}
