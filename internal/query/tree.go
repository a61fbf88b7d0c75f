package query

import "fmt"

// TreeType identifies the variant of an evaluation tree node.
type TreeType int

const (
	TreeBranch TreeType = iota
	TreeLeaf
	TreeMeetUnion
	TreeTabular
)

// EvalTree is the regex structure over pattern indices, or a meet/union
// or tabular query.
type EvalTree interface {
	Type() TreeType
}

// RegexOp is the operator of a Branch.
type RegexOp int

const (
	OpConcat RegexOp = iota
	OpDisjunction
	OpRepeat
)

func (op RegexOp) String() string {
	switch op {
	case OpConcat:
		return "concat"
	case OpDisjunction:
		return "disjunction"
	case OpRepeat:
		return "repeat"
	default:
		return fmt.Sprintf("regexop(%d)", int(op))
	}
}

// Branch is a concatenation, disjunction or repetition. Repetitions use
// Left only and bounds Min..Max (Max may be RepeatInf); other branches
// carry Min == RepeatNone.
type Branch struct {
	Op    RegexOp
	Left  EvalTree
	Right EvalTree
	Min   int
	Max   int
}

func (t *Branch) Type() TreeType { return TreeBranch }

// Concat builds a left-nested concatenation of trees.
func Concat(trees ...EvalTree) EvalTree {
	return fold(OpConcat, trees)
}

// Alt builds a left-nested disjunction of trees.
func Alt(trees ...EvalTree) EvalTree {
	return fold(OpDisjunction, trees)
}

// Repeat builds a repetition of t between min and max times.
func Repeat(t EvalTree, min, max int) EvalTree {
	return &Branch{Op: OpRepeat, Left: t, Min: min, Max: max}
}

func fold(op RegexOp, trees []EvalTree) EvalTree {
	if len(trees) == 0 {
		return nil
	}
	acc := trees[0]
	for _, t := range trees[1:] {
		acc = &Branch{Op: op, Left: acc, Right: t, Min: RepeatNone, Max: RepeatNone}
	}
	return acc
}

// Leaf refers to one element of the pattern vocabulary.
type Leaf struct {
	Pattern int
}

func (t *Leaf) Type() TreeType { return TreeLeaf }

// MUOp is the operator of a MeetUnion node.
type MUOp int

const (
	OpMeet MUOp = iota
	OpUnion
)

// MeetUnion keeps positions of Left that co-occur with a position of
// Right in a window, or unites both lists. The window is
// LeftWindow..RightWindow tokens around the Left position, or the region
// of Struc containing it when Struc is set.
type MeetUnion struct {
	Op          MUOp
	Left        EvalTree
	Right       EvalTree
	LeftWindow  int
	RightWindow int
	StrucName   string
	Struc       Structural
	Negated     bool
}

func (t *MeetUnion) Type() TreeType { return TreeMeetUnion }

// TabColumn is one column of a tabular query: a pattern plus the distance
// window Min..Max (Max may be RepeatInf) to the next column.
type TabColumn struct {
	Pattern int
	Min     int
	Max     int
	Next    *TabColumn
}

func (t *TabColumn) Type() TreeType { return TreeTabular }

// Columns returns the column chain as a slice.
func (t *TabColumn) Columns() []*TabColumn {
	var out []*TabColumn
	for c := t; c != nil; c = c.Next {
		out = append(out, c)
	}
	return out
}
