package eval

import (
	"sort"

	"CQPEval/internal/corpus"
	"CQPEval/internal/query"
	"CQPEval/internal/symtab"
)

// evalConstraint tests pattern element e at position pos for a state
// with reference table ref. On success the bindings of the target state
// are written to tref. *cpos is the position the simulation continues
// from; region elements move it.
func (ev *evaluator) evalConstraint(e query.Element, pos int, ref, tref *symtab.RefTab, cpos *int) bool {
	switch v := e.(type) {
	case *query.Pattern:
		if !ev.evalBool(v.Constraint, ref, pos) {
			return false
		}
		if !ev.dup(ref, tref) {
			return false
		}
		ev.bind(tref, v.Label, pos)
		return true

	case *query.MatchAll:
		if !ev.dup(ref, tref) {
			return false
		}
		ev.bind(tref, v.Label, pos)
		return true

	case *query.Tag:
		return ev.evalTag(v, pos, ref, tref)

	case *query.Anchor:
		a := ev.env.QueryCorpus.Anchor(v.Field, ev.env.rp)
		if a < 0 || a != pos {
			return false
		}
		return ev.dup(ref, tref)

	case *query.Region:
		switch v.Op {
		case query.RegionEnter:
			return ev.enterRegion(v, pos, ref, tref)
		case query.RegionWait:
			n := v.Queue.Len()
			if n <= 0 {
				return false
			}
			if n >= 2 && v.Queue.CposAt(1) <= pos {
				*cpos = pos
			} else {
				*cpos = pos + 1
			}
			return ev.dup(ref, tref)
		case query.RegionEmit:
			end := v.Queue.NextCpos()
			if end < 0 || end > pos {
				return false
			}
			v.Queue.Pop(tref)
			*cpos = end + 1
			return true
		}
	}
	return false
}

func (ev *evaluator) evalTag(t *query.Tag, pos int, ref, tref *symtab.RefTab) bool {
	r, start, end, ok := corpus.RegionBounds(t.Attr, pos)
	if !ok {
		return false
	}
	strict := ev.opts.strictRegions && t.RightBoundary != nil
	if t.IsClosing {
		if pos != end {
			return false
		}
		if strict {
			if rb := ref.Get(t.RightBoundary.Ref, pos); rb < 0 || rb != pos {
				return false
			}
		}
	} else if pos != start || !tagValueOK(t, r) {
		return false
	}

	if !ev.dup(ref, tref) {
		return false
	}
	if strict {
		if t.IsClosing {
			ev.bind(tref, t.RightBoundary, -1)
		} else {
			ev.bind(tref, t.RightBoundary, end)
		}
	}
	return true
}

// enterRegion starts a region at pos. Unless the region is zero-width,
// the state is parked in the region's queue until its end is reached.
func (ev *evaluator) enterRegion(r *query.Region, pos int, ref, tref *symtab.RefTab) bool {
	zeroWidth := r.ZeroWidth()
	if r.NQR != nil {
		idx := findRange(r.NQR, pos)
		if idx < 0 {
			return false
		}
		if !zeroWidth {
			for i := idx; i < r.NQR.Len(); i++ {
				s, e := r.NQR.Range(i)
				if s != pos {
					break
				}
				ev.addToQueue(r, ref, s, e)
			}
		}
	} else {
		_, start, end, ok := corpus.RegionBounds(r.Attr, pos)
		if !ok || start != pos {
			return false
		}
		if !zeroWidth {
			ev.addToQueue(r, ref, start, end)
		}
	}

	if !ev.dup(ref, tref) {
		return false
	}
	if zeroWidth {
		ev.bind(tref, r.StartLabel, pos)
		ev.bindMark(tref, r.StartTarget, pos)
	}
	return true
}

// addToQueue parks a copy of ref in the region's queue until end, with the
// region boundaries bound on the copy.
func (ev *evaluator) addToQueue(r *query.Region, ref *symtab.RefTab, start, end int) {
	rt := r.Queue.Push(end, ref)
	ev.bind(rt, r.StartLabel, start)
	ev.bindMark(rt, r.StartTarget, start)
	ev.bind(rt, r.EndLabel, end)
	ev.bindMark(rt, r.EndTarget, end)
}

func (ev *evaluator) bindMark(rt *symtab.RefTab, m query.Mark, cpos int) {
	switch m {
	case query.MarkTarget:
		ev.bind(rt, ev.env.TargetLabel, cpos)
	case query.MarkKeyword:
		ev.bind(rt, ev.env.KeywordLabel, cpos)
	}
}

// findRange returns the index of the first range starting at cpos, or -1.
// The ranges must be sorted by start.
func findRange(r query.Ranges, cpos int) int {
	n := r.Len()
	i := sort.Search(n, func(i int) bool {
		s, _ := r.Range(i)
		return s >= cpos
	})
	if i < n {
		if s, _ := r.Range(i); s == cpos {
			return i
		}
	}
	return -1
}
