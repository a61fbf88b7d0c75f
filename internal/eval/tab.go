package eval

import (
	"context"
	"fmt"

	"CQPEval/internal/matchlist"
	"CQPEval/internal/query"
)

// RunTab evaluates the tabular query of the main scope: a chain of token
// patterns, each within a distance window of the previous one. A match
// spans from the first to the last column and stays within the search
// context of its start.
func (s *Session) RunTab(ctx context.Context) (*Result, error) {
	env, err := s.mainEnvironment()
	if err != nil {
		return nil, err
	}
	head, ok := env.Tree.(*query.TabColumn)
	if !ok {
		return nil, fmt.Errorf("%w: no tabular query", ErrQueryKind)
	}

	run := s.newRun(ctx, "tabular")
	ev := s.evaluator(run, env)
	cols := head.Columns()

	lists := make([]*matchlist.Matchlist, len(cols))
	for k, c := range cols {
		var p *query.Pattern
		if c.Pattern >= 0 && c.Pattern < len(env.Patterns) {
			p, _ = env.Patterns[c.Pattern].(*query.Pattern)
		}
		if p == nil {
			ev.abort(fmt.Errorf("%w: column %d", ErrTabColumn, k))
			env.QueryCorpus.SetMatchlist(matchlist.New(nil), false)
			return s.finish(run, env)
		}
		ml, err := ev.initial(p.Constraint)
		if err != nil {
			ev.abort(fmt.Errorf("%w: column %d: %w", ErrInitialMatchlist, k, err))
			env.QueryCorpus.SetMatchlist(matchlist.New(nil), false)
			return s.finish(run, env)
		}
		lists[k] = ml
	}

	res := ev.tabulate(cols, lists)
	res.MarkOffRange(env.QueryCorpus, ev.size())
	res.Reduce()
	env.QueryCorpus.SetMatchlist(res, false)
	return s.finish(run, env)
}

// tabulate matches the columns greedily: every position of the first
// column is extended by the nearest position of each following column
// that lies in the distance window. Matches ending at or before the end
// of the previous match are skipped.
func (ev *evaluator) tabulate(cols []*query.TabColumn, lists []*matchlist.Matchlist) *matchlist.Matchlist {
	maxRes := lists[0].Len()
	for _, l := range lists[1:] {
		maxRes = min(maxRes, l.Len())
	}
	out := &matchlist.Matchlist{
		Start: make([]int, 0, maxRes),
		End:   make([]int, 0, maxRes),
	}
	if maxRes == 0 {
		return out
	}

	cursor := make([]int, len(cols))
	prevEnd := -1
	for _, start := range lists[0].Start {
		if !ev.running() {
			break
		}
		boundary := ev.rightBoundary(start)
		if boundary < 0 {
			continue
		}
		last, ok := start, true
		for k := 1; k < len(cols) && ok; k++ {
			prev := cols[k-1]
			lpos := cposOffset(last, prev.Min, boundary+1, false)
			if lpos < 0 {
				ok = false
				break
			}
			maxDist := prev.Max
			if maxDist == query.RepeatInf {
				maxDist = ev.opts.hardBoundary
			}
			rpos := cposOffset(last, maxDist, boundary+1, true)

			l := lists[k]
			for cursor[k] < l.Len() && l.Start[cursor[k]] < lpos {
				cursor[k]++
			}
			if cursor[k] >= l.Len() || l.Start[cursor[k]] > rpos {
				ok = false
				break
			}
			last = l.Start[cursor[k]]
		}
		if ok && last > prevEnd {
			out.Start = append(out.Start, start)
			out.End = append(out.End, last)
			prevEnd = last
		}
		ev.tick()
	}
	return out
}
