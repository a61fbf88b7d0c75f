package eval

import (
	"fmt"
	"slices"

	"CQPEval/internal/corpus"
	"CQPEval/internal/query"
	"CQPEval/internal/symtab"
)

// evalBool evaluates a constraint tree at cpos. Reading a label with the
// delete flag unbinds it in rt. A nil rt stands for a state without
// bindings, as used while computing initial matchlists.
func (ev *evaluator) evalBool(n query.Node, rt *symtab.RefTab, cpos int) bool {
	switch v := n.(type) {
	case nil:
		return true
	case *query.BoolNode:
		return ev.evalOp(v, rt, cpos)
	case *query.Const:
		return v.Val
	case *query.IDList:
		pos := cpos
		if v.Label != nil {
			pos = ev.labelPos(v.Label, rt, cpos, v.Delete)
		}
		res := false
		if len(v.Items) > 0 {
			if id := v.Attr.IDAt(pos); id >= 0 {
				_, res = slices.BinarySearch(v.Items, id)
			}
		}
		return res != v.Negated
	case *query.SBound:
		_, start, end, ok := corpus.RegionBounds(v.Attr, cpos)
		if !ok {
			return false
		}
		if v.IsClosing {
			return cpos == end
		}
		return cpos == start
	default:
		ev.abort(fmt.Errorf("%w: %s in boolean context", ErrIllegalNode, n.Type()))
		return false
	}
}

func (ev *evaluator) evalOp(n *query.BoolNode, rt *symtab.RefTab, cpos int) bool {
	switch n.Op {
	case query.OpAnd:
		// both operands are evaluated for their label side effects
		l := ev.evalBool(n.Left, rt, cpos)
		r := ev.evalBool(n.Right, rt, cpos)
		return l && r
	case query.OpOr:
		l := ev.evalBool(n.Left, rt, cpos)
		r := ev.evalBool(n.Right, rt, cpos)
		return l || r
	case query.OpImplies:
		if ev.evalBool(n.Left, rt, cpos) {
			return ev.evalBool(n.Right, rt, cpos)
		}
		return true
	case query.OpNot:
		if n.Left == nil {
			return true
		}
		return !ev.evalBool(n.Left, rt, cpos)
	}
	if !n.Op.IsComparison() {
		ev.abort(fmt.Errorf("%w: operator %s", ErrIllegalNode, n.Op))
		return false
	}
	return ev.compare(n, rt, cpos)
}

func (ev *evaluator) compare(n *query.BoolNode, rt *symtab.RefTab, cpos int) bool {
	switch n.Left.(type) {
	case *query.Func, *query.PARef, *query.SARef:
	default:
		ev.abort(fmt.Errorf("%w: %s on the left of %s", ErrIllegalNode, n.Left.Type(), n.Op))
		return false
	}
	lhs, ok := ev.leafValue(n.Left, rt, cpos, false)
	if !ok {
		return false
	}

	if n.Op == query.OpEx {
		switch lhs.Kind {
		case corpus.ValueString:
			return true
		case corpus.ValuePARef:
			return lhs.ID >= 0
		case corpus.ValueFloat:
			return lhs.Float != 0
		case corpus.ValueInt:
			return lhs.Int != 0
		case corpus.ValuePos:
			return lhs.Int >= 0
		default:
			return false
		}
	}

	switch n.Right.(type) {
	case *query.Func, *query.PARef, *query.SARef, *query.Int, *query.Float, *query.String:
	default:
		ev.abort(fmt.Errorf("%w: %v on the right of %s", ErrIllegalNode, typeOf(n.Right), n.Op))
		return false
	}
	rhs, ok := ev.leafValue(n.Right, rt, cpos, false)
	if !ok {
		return false
	}

	if lhs.Kind == corpus.ValuePos {
		lhs.Kind = corpus.ValueInt
	}
	if rhs.Kind == corpus.ValuePos {
		rhs.Kind = corpus.ValueInt
	}
	if lhs.Kind == corpus.ValueNone || rhs.Kind == corpus.ValueNone {
		return false
	}

	equality := n.Op == query.OpEq || n.Op == query.OpNeq
	switch {
	case lhs.Kind == corpus.ValuePARef && rhs.Kind == corpus.ValueInt:
		if !equality {
			return ev.illegal("ordering of a positional attribute")
		}
		return (lhs.ID == rhs.Int) == (n.Op == query.OpEq)

	case lhs.Kind == corpus.ValuePARef && rhs.Kind == corpus.ValuePARef:
		if lhs.Attr == nil || rhs.Attr == nil {
			ev.abort(fmt.Errorf("%w: attribute reference without attribute", ErrIllegalNode))
			return false
		}
		if !equality {
			return ev.illegal("ordering of positional attributes")
		}
		var eq bool
		if lhs.Attr == rhs.Attr {
			eq = lhs.ID == rhs.ID
		} else {
			ls, _ := lhs.AsString()
			rs, _ := rhs.AsString()
			eq = ls == rs
		}
		return eq == (n.Op == query.OpEq)

	case isStringLike(lhs) && isStringLike(rhs):
		ls, lok := lhs.AsString()
		rs, rok := rhs.AsString()
		if !lok || !rok {
			ev.abort(fmt.Errorf("%w: lexicon ID without value", ErrIllegalNode))
			return false
		}
		leaf, isLeaf := n.Right.(*query.String)
		if !isLeaf || leaf.Kind == query.StringNormal {
			if !equality {
				return ev.illegal("ordering of strings")
			}
			return (ls == rs) == (n.Op == query.OpEq)
		}
		if leaf.Kind != query.StringRegex {
			ev.abort(fmt.Errorf("%w: lexicon ID leaf compared as string", ErrIllegalNode))
			return false
		}
		if !equality {
			return ev.illegal("ordering against a regular expression")
		}
		if rs == corpus.MatchAllPattern {
			return n.Op == query.OpEq
		}
		return leaf.Regex.MatchString(ls) == (n.Op == query.OpEq)
	}

	if lhs.Kind != rhs.Kind {
		ev.abort(fmt.Errorf("%w: cannot compare %s with %s", ErrIllegalComparison, lhs.Kind, rhs.Kind))
		return false
	}
	switch lhs.Kind {
	case corpus.ValueInt:
		return compareOrdered(n.Op, lhs.Int, rhs.Int)
	case corpus.ValueFloat:
		return compareOrdered(n.Op, lhs.Float, rhs.Float)
	}
	ev.abort(fmt.Errorf("%w: %s operands", ErrIllegalComparison, lhs.Kind))
	return false
}

func (ev *evaluator) illegal(what string) bool {
	ev.abort(fmt.Errorf("%w: %s, only = and != are allowed", ErrIllegalComparison, what))
	return false
}

func isStringLike(v corpus.Value) bool {
	return v.Kind == corpus.ValueString || v.Kind == corpus.ValuePARef
}

func compareOrdered[T int | float64](op query.BoolOp, l, r T) bool {
	switch op {
	case query.OpLt:
		return l < r
	case query.OpGt:
		return l > r
	case query.OpLe:
		return l <= r
	case query.OpGe:
		return l >= r
	case query.OpEq:
		return l == r
	case query.OpNeq:
		return l != r
	}
	return false
}

func typeOf(n query.Node) string {
	if n == nil {
		return "nothing"
	}
	return n.Type().String()
}

// leafValue resolves an operand. With strs set, attribute references
// yield their string value instead of a lexicon ID, as function
// arguments need. ok is false when the operand cannot be computed.
func (ev *evaluator) leafValue(n query.Node, rt *symtab.RefTab, cpos int, strs bool) (corpus.Value, bool) {
	switch v := n.(type) {
	case *query.Func:
		if len(v.Args) == 0 {
			return corpus.None(), false
		}
		args := make([]corpus.Value, len(v.Args))
		for i, a := range v.Args {
			val, ok := ev.leafValue(a, rt, cpos, true)
			if !ok {
				return corpus.None(), false
			}
			args[i] = val
		}
		if v.Builtin >= 0 {
			res, err := callBuiltin(v, args)
			if err != nil {
				ev.abort(fmt.Errorf("%w: %s: %w", ErrBuiltin, v.Name, err))
				return corpus.None(), false
			}
			return res, true
		}
		if v.Dynamic == nil {
			ev.abort(fmt.Errorf("%w: function %q is unresolved", ErrIllegalNode, v.Name))
			return corpus.None(), false
		}
		res, err := v.Dynamic.Call(args)
		if err != nil {
			ev.run.logger.Debug("dynamic attribute failed", "function", v.Name, "cpos", cpos, "error", err)
			return corpus.None(), false
		}
		return res, true

	case *query.PARef:
		if v.Attr == nil {
			if v.Label == nil {
				return corpus.None(), false
			}
			return corpus.PosValue(ev.labelPos(v.Label, rt, cpos, v.Delete)), true
		}
		pos := cpos
		if v.Label != nil {
			pos = ev.labelPos(v.Label, rt, cpos, v.Delete)
			if pos < 0 {
				return corpus.None(), true
			}
		}
		if strs {
			s, ok := v.Attr.ValueAt(pos)
			if !ok {
				return corpus.None(), true
			}
			return corpus.StringValue(s), true
		}
		return corpus.PARefValue(v.Attr, v.Attr.IDAt(pos)), true

	case *query.SARef:
		if v.Label == nil {
			_, start, end, ok := corpus.RegionBounds(v.Attr, cpos)
			if !ok {
				return corpus.IntValue(0), true
			}
			flags := query.SAInside
			if cpos == start {
				flags |= query.SAStart
			}
			if cpos == end {
				flags |= query.SAEnd
			}
			return corpus.IntValue(flags), true
		}
		pos := ev.labelPos(v.Label, rt, cpos, v.Delete)
		if pos < 0 {
			return corpus.None(), true
		}
		r := v.Attr.RegionAt(pos)
		if r < 0 {
			return corpus.None(), true
		}
		s, ok := v.Attr.RegionValue(r)
		if !ok {
			return corpus.None(), true
		}
		return corpus.StringValue(s), true

	case *query.String:
		if v.Kind == query.StringCID {
			return corpus.IntValue(v.CID), true
		}
		return corpus.StringValue(v.Value), true
	case *query.Int:
		return corpus.IntValue(v.Val), true
	case *query.Float:
		return corpus.FloatValue(v.Val), true
	}
	ev.abort(fmt.Errorf("%w: %v is not an operand", ErrIllegalNode, typeOf(n)))
	return corpus.None(), false
}
