package query

// Simplify applies folding rules to a constraint tree until a fixed point is
// reached. Rules: fold constant operands of and/or/implies/not, and remove
// double negation. A subtree is only dropped when evaluating it has no side
// effect, i.e. it neither unbinds a label nor calls a function.
func Simplify(n Node) Node {
	for {
		rewritten := simplifyOnce(n)
		if nodeEqual(rewritten, n) {
			return rewritten
		}
		n = rewritten
	}
}

func simplifyOnce(n Node) Node {
	b, ok := n.(*BoolNode)
	if !ok {
		return n
	}
	left := simplifyOnce(b.Left)
	right := simplifyOnce(b.Right)

	lc, lconst := constValue(left)
	rc, rconst := constValue(right)

	switch b.Op {
	case OpAnd:
		switch {
		case lconst && rconst:
			return &Const{Val: lc && rc}
		case lconst && lc:
			return right
		case rconst && rc:
			return left
		case lconst && !lc && droppable(right):
			return &Const{Val: false}
		case rconst && !rc && droppable(left):
			return &Const{Val: false}
		}
	case OpOr:
		switch {
		case lconst && rconst:
			return &Const{Val: lc || rc}
		case lconst && !lc:
			return right
		case rconst && !rc:
			return left
		case lconst && lc && droppable(right):
			return &Const{Val: true}
		case rconst && rc && droppable(left):
			return &Const{Val: true}
		}
	case OpImplies:
		switch {
		case lconst && !lc:
			// The right side is never evaluated.
			return &Const{Val: true}
		case lconst && lc:
			return right
		case rconst && rc && droppable(left):
			return &Const{Val: true}
		}
	case OpNot:
		if left == nil {
			return &Const{Val: true}
		}
		if lconst {
			return &Const{Val: !lc}
		}
		if inner, ok := left.(*BoolNode); ok && inner.Op == OpNot && inner.Left != nil {
			return inner.Left
		}
	}

	if left == b.Left && right == b.Right {
		return b
	}
	return &BoolNode{Op: b.Op, Left: left, Right: right}
}

func constValue(n Node) (bool, bool) {
	if c, ok := n.(*Const); ok {
		return c.Val, true
	}
	return false, false
}

// droppable reports whether a subtree may be skipped without changing
// label bindings or function side effects.
func droppable(n Node) bool {
	return !ReadsDeletingLabel(n) && !callsFunc(n)
}

func callsFunc(n Node) bool {
	switch v := n.(type) {
	case *Func:
		return true
	case *BoolNode:
		return callsFunc(v.Left) || callsFunc(v.Right)
	default:
		return false
	}
}

// nodeEqual checks structural equality for fixed-point detection.
func nodeEqual(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}
	switch av := a.(type) {
	case *BoolNode:
		bv := b.(*BoolNode)
		return av.Op == bv.Op && nodeEqual(av.Left, bv.Left) && nodeEqual(av.Right, bv.Right)
	case *Const:
		return av.Val == b.(*Const).Val
	}
	// For leaf nodes, pointer equality is sufficient after one pass.
	return a == b
}
