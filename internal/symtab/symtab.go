package symtab

import (
	"log/slog"
)

// Flags are bit flags attached to a label.
type Flags uint8

const (
	// Defined marks a label that is set somewhere in the query.
	Defined Flags = 1 << iota
	// Used marks a label that is read somewhere in the query.
	Used
	// Special labels are reserved; the consistency check skips them.
	Special
	// RegionData selects the namespace of structural-boundary labels
	// used by StrictRegions mode.
	RegionData
)

// ThisName is the name of the label that always refers to the current position.
const ThisName = "_"

// ThisRef is the reference slot of the "this" label. It is never stored.
const ThisRef = -1

// Reserved anchor names. Labels with these names are created as Special.
var reservedNames = map[string]bool{
	"match":    true,
	"matchend": true,
	"target":   true,
	"keyword":  true,
}

// Label is one entry of a symbol table namespace.
type Label struct {
	Name  string
	Ref   int
	Flags Flags
}

// IsThis reports whether the label is the implicit "this" label.
func (l *Label) IsThis() bool {
	return l != nil && l.Ref == ThisRef
}

// SymbolTable maps label names to reference-table slots. It holds two
// independent namespaces: user labels and region-boundary labels.
// Slot indices are dense and assigned in creation order across both.
type SymbolTable struct {
	user      []*Label
	rdat      []*Label
	this      *Label
	nextIndex int
}

// New returns an empty symbol table.
func New() *SymbolTable {
	return &SymbolTable{
		this: &Label{Name: ThisName, Ref: ThisRef, Flags: Defined | Used | Special},
	}
}

// Size returns the number of reference slots a RefTab needs for this table.
func (st *SymbolTable) Size() int {
	if st == nil {
		return 0
	}
	return st.nextIndex
}

func (st *SymbolTable) namespace(flags Flags) *[]*Label {
	if flags&RegionData != 0 {
		return &st.rdat
	}
	return &st.user
}

// Find returns the label with the given name or nil. Flags only select the
// namespace. The "this" label is found in the user namespace.
func (st *SymbolTable) Find(name string, flags Flags) *Label {
	if st == nil {
		return nil
	}
	if flags&RegionData == 0 && name == ThisName {
		return st.this
	}
	for _, l := range *st.namespace(flags) {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// Lookup finds a label and ORs flags into it. If the label does not exist
// and create is set, it is added with the next free reference slot.
// The "this" label always exists.
func (st *SymbolTable) Lookup(name string, flags Flags, create bool) *Label {
	if l := st.Find(name, flags); l != nil {
		if !l.IsThis() {
			l.Flags |= flags
		}
		return l
	}
	if !create {
		return nil
	}
	if flags&RegionData == 0 && reservedNames[name] {
		flags |= Special
	}
	l := &Label{Name: name, Ref: st.nextIndex, Flags: flags}
	st.nextIndex++
	ns := st.namespace(flags)
	*ns = append(*ns, l)
	return l
}

// Labels returns the labels of the namespace selected by flags whose flag
// bits include all of flags (the namespace bit itself included).
func (st *SymbolTable) Labels(flags Flags) []*Label {
	if st == nil {
		return nil
	}
	var out []*Label
	for _, l := range *st.namespace(flags) {
		if l.Flags&flags == flags {
			out = append(out, l)
		}
	}
	return out
}

// CheckLabels verifies that every non-special user label is both defined
// and used. Each violation is logged as a warning; the result is false if
// any label is inconsistent.
func (st *SymbolTable) CheckLabels(logger *slog.Logger) bool {
	if st == nil {
		return true
	}
	if logger == nil {
		logger = slog.Default()
	}
	ok := true
	for _, l := range st.user {
		if l.Flags&Special != 0 {
			continue
		}
		if l.Flags&Used == 0 {
			logger.Warn("label defined but not used", "label", l.Name)
			ok = false
		}
		if l.Flags&Defined == 0 {
			logger.Warn("label used but not defined", "label", l.Name)
			ok = false
		}
	}
	return ok
}
