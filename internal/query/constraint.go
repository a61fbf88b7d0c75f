package query

import (
	"errors"
	"fmt"

	"CQPEval/internal/corpus"
)

// NodeType identifies the variant of a constraint tree node.
type NodeType int

const (
	NodeBool NodeType = iota
	NodeConst
	NodeFunc
	NodeSBound
	NodePARef
	NodeSARef
	NodeString
	NodeInt
	NodeFloat
	NodeIDList
)

func (t NodeType) String() string {
	switch t {
	case NodeBool:
		return "bool"
	case NodeConst:
		return "const"
	case NodeFunc:
		return "func"
	case NodeSBound:
		return "sbound"
	case NodePARef:
		return "pa_ref"
	case NodeSARef:
		return "sa_ref"
	case NodeString:
		return "string"
	case NodeInt:
		return "int"
	case NodeFloat:
		return "float"
	case NodeIDList:
		return "id_list"
	default:
		return fmt.Sprintf("node(%d)", int(t))
	}
}

// Node is a constraint tree node evaluated against one corpus position.
type Node interface {
	Type() NodeType
}

// BoolOp is the operator of a BoolNode.
type BoolOp int

const (
	OpAnd BoolOp = iota
	OpOr
	OpImplies
	OpNot
	OpLt
	OpGt
	OpLe
	OpGe
	OpEq
	OpNeq
	// OpEx tests a value for existence.
	OpEx
)

var boolOpNames = [...]string{"&", "|", "->", "!", "<", ">", "<=", ">=", "=", "!=", "?"}

func (op BoolOp) String() string {
	if op >= 0 && int(op) < len(boolOpNames) {
		return boolOpNames[op]
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// ParseBoolOp maps an operator symbol to its BoolOp.
func ParseBoolOp(s string) (BoolOp, error) {
	for i, n := range boolOpNames {
		if n == s {
			return BoolOp(i), nil
		}
	}
	switch s {
	case "and", "&&":
		return OpAnd, nil
	case "or", "||":
		return OpOr, nil
	case "not":
		return OpNot, nil
	case "==":
		return OpEq, nil
	}
	return 0, fmt.Errorf("unknown operator %q", s)
}

// IsComparison reports whether op compares two operands.
func (op BoolOp) IsComparison() bool {
	return op >= OpLt && op <= OpEx
}

// IsUnary reports whether op takes no right operand.
func (op BoolOp) IsUnary() bool {
	return op == OpNot || op == OpEx
}

// BoolNode is a logical connective or a comparison.
type BoolNode struct {
	Op    BoolOp
	Left  Node
	Right Node
}

func (n *BoolNode) Type() NodeType { return NodeBool }

// Const is a constant truth value.
type Const struct {
	Val bool
}

func (n *Const) Type() NodeType { return NodeConst }

// Func calls a builtin function (Builtin >= 0) or a dynamic attribute.
type Func struct {
	Name    string
	Builtin int
	Dynamic corpus.Dynamic
	Args    []Node
}

func (n *Func) Type() NodeType { return NodeFunc }

// SBound tests whether the position is the first (or, closing, the last)
// position of a region of Attr.
type SBound struct {
	AttrName  string
	Attr      Structural
	IsClosing bool
}

func (n *SBound) Type() NodeType { return NodeSBound }

// PARef reads a positional attribute at the current position or at the
// position bound to Label. Without an attribute it yields the label's
// position itself. Delete unbinds the label after reading it.
type PARef struct {
	AttrName string
	Attr     corpus.Positional
	Label    *LabelRef
	Delete   bool
}

func (n *PARef) Type() NodeType { return NodePARef }

// SARef reads a structural attribute. Without a label it yields a bit set
// of boundary flags for the current position; with a label it yields the
// value of the region containing the labelled position.
type SARef struct {
	AttrName string
	Attr     Structural
	Label    *LabelRef
	Delete   bool
}

func (n *SARef) Type() NodeType { return NodeSARef }

// Boundary flags of an unlabelled SARef.
const (
	SAStart  = 1
	SAEnd    = 2
	SAInside = 4
)

// StringKind classifies a string leaf.
type StringKind int

const (
	// StringNormal compares literally.
	StringNormal StringKind = iota
	// StringRegex matches Regex against the value.
	StringRegex
	// StringCID holds a pre-resolved lexicon ID.
	StringCID
)

// String is a string operand.
type String struct {
	Kind  StringKind
	Value string
	Regex *corpus.Regex
	Flags corpus.RegexFlags
	CID   int
}

func (n *String) Type() NodeType { return NodeString }

// MatchesAll reports whether the leaf is the ".*" regex.
func (n *String) MatchesAll() bool {
	return n.Kind == StringRegex && n.Value == corpus.MatchAllPattern && n.Flags == 0
}

// Int is an integer operand.
type Int struct {
	Val int
}

func (n *Int) Type() NodeType { return NodeInt }

// Float is a floating-point operand.
type Float struct {
	Val float64
}

func (n *Float) Type() NodeType { return NodeFloat }

// IDList tests membership of the lexicon ID at the current (or labelled)
// position in the sorted set Items.
type IDList struct {
	AttrName string
	Attr     corpus.Positional
	Label    *LabelRef
	Delete   bool
	Items    []int
	Negated  bool
}

func (n *IDList) Type() NodeType { return NodeIDList }

var (
	ErrMalformedNode = errors.New("malformed constraint node")
	ErrTreeTooDeep   = errors.New("constraint tree too deep")
)

// Validate checks structural invariants of a constraint tree: unary
// operators have no right operand, binary ones have both, and ID lists
// are sorted.
func Validate(n Node) error {
	return validate(n, 0)
}

func validate(n Node, depth int) error {
	if n == nil {
		return nil
	}
	if depth > MaxTreeDepth {
		return ErrTreeTooDeep
	}
	switch v := n.(type) {
	case *BoolNode:
		if v.Op.IsUnary() && v.Right != nil {
			return fmt.Errorf("%w: %s with right operand", ErrMalformedNode, v.Op)
		}
		if v.Left == nil && v.Op != OpNot {
			return fmt.Errorf("%w: %s without left operand", ErrMalformedNode, v.Op)
		}
		if !v.Op.IsUnary() && v.Right == nil {
			return fmt.Errorf("%w: %s without right operand", ErrMalformedNode, v.Op)
		}
		if err := validate(v.Left, depth+1); err != nil {
			return err
		}
		return validate(v.Right, depth+1)
	case *Func:
		if len(v.Args) > MaxFuncArgs {
			return fmt.Errorf("%w: %s has %d arguments", ErrMalformedNode, v.Name, len(v.Args))
		}
		for _, a := range v.Args {
			if err := validate(a, depth+1); err != nil {
				return err
			}
		}
	case *IDList:
		for i := 1; i < len(v.Items); i++ {
			if v.Items[i] < v.Items[i-1] {
				return fmt.Errorf("%w: id list not sorted", ErrMalformedNode)
			}
		}
	case *String:
		if v.Kind == StringRegex && v.Regex == nil {
			return fmt.Errorf("%w: regex leaf %q not compiled", ErrMalformedNode, v.Value)
		}
	}
	return nil
}

// ReadsDeletingLabel reports whether evaluating n unbinds a label.
func ReadsDeletingLabel(n Node) bool {
	switch v := n.(type) {
	case nil:
		return false
	case *BoolNode:
		return ReadsDeletingLabel(v.Left) || ReadsDeletingLabel(v.Right)
	case *Func:
		for _, a := range v.Args {
			if ReadsDeletingLabel(a) {
				return true
			}
		}
		return false
	case *PARef:
		return v.Delete && v.Label != nil
	case *SARef:
		return v.Delete && v.Label != nil
	case *IDList:
		return v.Delete && v.Label != nil
	default:
		return false
	}
}
