package eval

import (
	"errors"
	"fmt"

	"github.com/google/codesearch/sparse"

	"CQPEval/internal/corpus"
	"CQPEval/internal/matchlist"
	"CQPEval/internal/query"
)

var errUnsupportedInitial = errors.New("unsupported initial constraint")

// initial computes the sorted positions of the query corpus that satisfy
// constraint n, evaluated without label bindings.
func (ev *evaluator) initial(n query.Node) (*matchlist.Matchlist, error) {
	ml, err := ev.initialOf(n)
	if err != nil {
		return nil, err
	}
	ml.Resolve(ev.size())
	ml.MarkOffRange(ev.env.QueryCorpus, ev.size())
	ml.Reduce()
	return ml, nil
}

func (ev *evaluator) size() int { return ev.env.QueryCorpus.MotherSize }

func (ev *evaluator) initialOf(n query.Node) (*matchlist.Matchlist, error) {
	size := ev.size()
	switch v := n.(type) {
	case nil:
		return matchlist.New(nil), nil

	case *query.Const:
		if !v.Val {
			return matchlist.New(nil), nil
		}
		return ev.offRange(matchlist.Whole(size)), nil

	case *query.IDList:
		if v.Label != nil {
			return nil, fmt.Errorf("%w: labelled id list", errUnsupportedInitial)
		}
		ml := matchlist.New(nil)
		if len(v.Items) > 0 {
			ml = matchlist.New(v.Attr.Positions(v.Items))
		}
		if v.Negated {
			if err := ml.Complement(size); err != nil {
				return nil, err
			}
		}
		return ev.offRange(ml), nil

	case *query.BoolNode:
		return ev.initialOfOp(v)
	}
	return ev.bruteForce(n), nil
}

func (ev *evaluator) initialOfOp(n *query.BoolNode) (*matchlist.Matchlist, error) {
	size := ev.size()
	switch n.Op {
	case query.OpAnd:
		left, err := ev.initialOf(n.Left)
		if err != nil {
			return nil, err
		}
		left.Resolve(size)
		for i, cpos := range left.Start {
			if !ev.running() {
				break
			}
			if cpos >= 0 && !ev.evalBool(n.Right, nil, cpos) {
				left.Delete(i)
			}
		}
		left.Reduce()
		left.WholeCorpus = false
		return left, nil

	case query.OpOr:
		left, err := ev.initialOf(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := ev.initialOf(n.Right)
		if err != nil {
			return nil, err
		}
		return matchlist.Union(left, right, size), nil

	case query.OpNot:
		if n.Left == nil {
			return ev.offRange(matchlist.Whole(size)), nil
		}
		ml, err := ev.initialOf(n.Left)
		if err != nil {
			return nil, err
		}
		ml.Resolve(size)
		if err := ml.Complement(size); err != nil {
			return nil, err
		}
		return ev.offRange(ml), nil

	case query.OpImplies, query.OpEx:
		return ev.bruteForce(n), nil
	}

	switch l := n.Left.(type) {
	case *query.PARef:
		return ev.initialOfAttr(n, l)
	case *query.Func, *query.SARef:
		return ev.bruteForce(n), nil
	}
	return nil, fmt.Errorf("%w: %s on the left of %s", errUnsupportedInitial, typeOf(n.Left), n.Op)
}

// initialOfAttr handles comparisons of a positional attribute, which can
// be answered from the lexicon and its position index.
func (ev *evaluator) initialOfAttr(n *query.BoolNode, l *query.PARef) (*matchlist.Matchlist, error) {
	size := ev.size()
	if l.Label != nil {
		rhs, ok := n.Right.(*query.Int)
		if l.Label.IsThis() && l.Attr == nil && ok {
			if n.Op != query.OpEq {
				return nil, fmt.Errorf("%w: only = is allowed on a corpus position", errUnsupportedInitial)
			}
			if rhs.Val < 0 || rhs.Val >= size {
				return matchlist.New(nil), nil
			}
			return matchlist.Single(rhs.Val), nil
		}
		if l.Label.IsThis() {
			return ev.bruteForce(n), nil
		}
		return nil, fmt.Errorf("%w: label %q in a token constraint", errUnsupportedInitial, l.Label.Name)
	}
	if l.Attr == nil {
		return nil, fmt.Errorf("%w: attribute reference without attribute", errUnsupportedInitial)
	}

	rhs, ok := n.Right.(*query.String)
	if !ok {
		return ev.bruteForce(n), nil
	}
	if n.Op != query.OpEq && n.Op != query.OpNeq {
		return nil, fmt.Errorf("%w: operator %s on %s", ErrIllegalComparison, n.Op, l.AttrName)
	}

	var ml *matchlist.Matchlist
	switch rhs.Kind {
	case query.StringRegex:
		if rhs.MatchesAll() {
			if n.Op == query.OpNeq {
				return matchlist.New(nil), nil
			}
			return ev.offRange(matchlist.Whole(size)), nil
		}
		ids := l.Attr.MatchingIDs(rhs.Regex)
		if len(ids) == l.Attr.LexiconSize() {
			ml = matchlist.Whole(size)
		} else {
			ml = matchlist.New(l.Attr.Positions(ids))
		}
	case query.StringCID:
		ml = matchlist.New(l.Attr.Positions([]int{rhs.CID}))
	default:
		ml = matchlist.New(nil)
		if id := l.Attr.ID(rhs.Value); id >= 0 {
			ml = matchlist.New(l.Attr.Positions([]int{id}))
		}
	}

	ev.offRange(ml)
	if n.Op == query.OpNeq {
		if err := ml.Complement(size); err != nil {
			return nil, err
		}
		ev.offRange(ml)
	}
	return ml, nil
}

// bruteForce tests n at every position of the query corpus.
func (ev *evaluator) bruteForce(n query.Node) *matchlist.Matchlist {
	ml := ev.offRange(matchlist.Whole(ev.size()))
	for i, cpos := range ml.Start {
		if !ev.running() {
			break
		}
		if !ev.evalBool(n, nil, cpos) {
			ml.Delete(i)
		}
	}
	ml.Reduce()
	return ml
}

func (ev *evaluator) offRange(ml *matchlist.Matchlist) *matchlist.Matchlist {
	if ml.MarkOffRange(ev.env.QueryCorpus, ev.size()) > 0 {
		ml.Reduce()
	}
	return ml
}

// firstPattern computes the candidate start positions of the initial
// transition labelled with pattern element e.
func (ev *evaluator) firstPattern(e query.Element) (*matchlist.Matchlist, error) {
	switch v := e.(type) {
	case *query.Pattern:
		return ev.initial(v.Constraint)

	case *query.MatchAll:
		return ev.offRange(matchlist.Whole(ev.size())), nil

	case *query.Tag:
		return tagStarts(v), nil

	case *query.Anchor:
		qc := ev.env.QueryCorpus
		if qc.Len() == 0 {
			ev.run.logger.Info("anchor on an empty query corpus", "anchor", v.Field)
			return matchlist.New(nil), nil
		}
		if (v.Field == query.AnchorTarget && qc.Targets == nil) || (v.Field == query.AnchorKeyword && qc.Keywords == nil) {
			return nil, fmt.Errorf("%w: query corpus has no %s anchors", errUnsupportedInitial, v.Field)
		}
		starts := make([]int, qc.Len())
		for i := range starts {
			p := qc.Anchor(v.Field, i)
			if v.IsClosing && p >= 0 {
				p++
			}
			starts[i] = p
		}
		ml := matchlist.New(starts)
		ml.Reduce()
		return ml, nil

	case *query.Region:
		if v.Op != query.RegionEnter {
			return nil, fmt.Errorf("%w: region %s element at query start", errUnsupportedInitial, v.Op)
		}
		var starts []int
		if v.NQR != nil {
			for i := 0; i < v.NQR.Len(); i++ {
				s, _ := v.NQR.Range(i)
				if len(starts) == 0 || starts[len(starts)-1] != s {
					starts = append(starts, s)
				}
			}
		} else {
			for r := 0; r < v.Attr.RegionCount(); r++ {
				if s, _, ok := v.Attr.Bounds(r); ok {
					starts = append(starts, s)
				}
			}
		}
		return matchlist.New(starts), nil
	}
	return nil, fmt.Errorf("%w: element %v", errUnsupportedInitial, e)
}

// tagStarts lists the positions where a tag matches: region starts for an
// opening tag, the positions after region ends for a closing one.
func tagStarts(t *query.Tag) *matchlist.Matchlist {
	n := t.Attr.RegionCount()
	if n == 0 {
		return matchlist.New(nil)
	}
	var ok sparse.Set
	ok.Init(uint32(n))
	for r := 0; r < n; r++ {
		if tagValueOK(t, r) {
			ok.Add(uint32(r))
		}
	}
	starts := make([]int, 0, len(ok.Dense()))
	for _, r := range ok.Dense() {
		s, e, found := t.Attr.Bounds(int(r))
		if !found {
			continue
		}
		if t.IsClosing {
			starts = append(starts, e+1)
		} else {
			starts = append(starts, s)
		}
	}
	return matchlist.New(starts)
}

// tagValueOK tests the annotation of region r against the tag's value
// constraint. A region without a value never satisfies a constraint.
func tagValueOK(t *query.Tag, r int) bool {
	if !t.HasConstraint() {
		return true
	}
	v, ok := t.Attr.RegionValue(r)
	if !ok {
		return false
	}
	var match bool
	if t.Regex != nil {
		match = t.Regex.MatchString(v)
	} else {
		match = corpus.Fold(v, t.Flags) == corpus.Fold(t.Value, t.Flags)
	}
	return match != t.Negated
}
