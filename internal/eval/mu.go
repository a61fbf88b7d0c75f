package eval

import (
	"context"
	"fmt"

	"CQPEval/internal/corpus"
	"CQPEval/internal/matchlist"
	"CQPEval/internal/query"
)

// RunMU evaluates the meet/union query of the main scope. Matches are
// single positions. cut > 0 keeps the first cut of them.
func (s *Session) RunMU(ctx context.Context, cut int, keepOld bool) (*Result, error) {
	env, err := s.mainEnvironment()
	if err != nil {
		return nil, err
	}
	switch env.Tree.(type) {
	case *query.MeetUnion, *query.Leaf:
	default:
		return nil, fmt.Errorf("%w: no meet/union query", ErrQueryKind)
	}

	run := s.newRun(ctx, "meet-union")
	if keepOld && !env.QueryCorpus.IsSub {
		run.logger.Warn("keep old ranges needs a subcorpus, ignored", "corpus", env.QueryCorpus.Name)
		keepOld = false
	}
	ev := s.evaluator(run, env)

	ml, err := ev.evalMU(env.Tree)
	if err != nil {
		ev.abort(fmt.Errorf("%w: %w", ErrInitialMatchlist, err))
		ml = matchlist.New(nil)
	}
	if ml.Len() > 0 {
		ml.Resolve(ev.size())
		ml.MarkOffRange(env.QueryCorpus, ev.size())
		ml.Reduce()
		if cut > 0 && cut < ml.Len() {
			for i := cut; i < ml.Len(); i++ {
				ml.Delete(i)
			}
			ml.Reduce()
		}
		ml.End = append([]int(nil), ml.Start...)
	}
	env.QueryCorpus.SetMatchlist(ml, keepOld)
	return s.finish(run, env)
}

func (ev *evaluator) evalMU(t query.EvalTree) (*matchlist.Matchlist, error) {
	switch v := t.(type) {
	case *query.Leaf:
		if v.Pattern < 0 || v.Pattern >= len(ev.env.Patterns) {
			return nil, fmt.Errorf("pattern %d out of range", v.Pattern)
		}
		p, ok := ev.env.Patterns[v.Pattern].(*query.Pattern)
		if !ok {
			return nil, fmt.Errorf("pattern %d is not a token pattern", v.Pattern)
		}
		return ev.initial(p.Constraint)

	case *query.MeetUnion:
		left, err := ev.evalMU(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := ev.evalMU(v.Right)
		if err != nil {
			return nil, err
		}
		if v.Op == query.OpUnion {
			return matchlist.Union(left, right, ev.size()), nil
		}
		return ev.meet(left, right, v), nil
	}
	return nil, fmt.Errorf("%w: %T in a meet/union query", ErrIllegalNode, t)
}

// meet keeps the positions of a that have a position of b within their
// window, or none for a negated meet. Both lists must be sorted. A meet
// and its negation partition a.
func (ev *evaluator) meet(a, b *matchlist.Matchlist, mu *query.MeetUnion) *matchlist.Matchlist {
	size := ev.size()
	a.Resolve(size)
	b.Resolve(size)
	if a.Len() == 0 || (b.Len() == 0 && !mu.Negated) {
		return matchlist.New(nil)
	}

	out := make([]int, 0, a.Len())
	i, j := 0, 0
	for ; i < a.Len() && j < b.Len(); i++ {
		pos := a.Start[i]
		var start, end int
		if mu.Struc != nil {
			_, s, e, ok := corpus.RegionBounds(mu.Struc, pos)
			if !ok {
				if mu.Negated {
					out = append(out, pos)
				}
				continue
			}
			start, end = s, e
		} else {
			start = cposOffset(pos, mu.LeftWindow, size, mu.LeftWindow <= 0)
			end = cposOffset(pos, mu.RightWindow, size, mu.RightWindow >= 0)
			if start < 0 || end < 0 {
				if mu.Negated {
					out = append(out, pos)
				}
				continue
			}
		}
		for j < b.Len() && b.Start[j] < start {
			j++
		}
		found := j < b.Len() && b.Start[j] <= end
		if found != mu.Negated {
			out = append(out, pos)
		}
	}
	if mu.Negated {
		out = append(out, a.Start[i:]...)
	}
	return matchlist.New(out)
}
