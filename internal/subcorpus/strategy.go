package subcorpus

import (
	"slices"

	"CQPEval/internal/query"
)

// MinimalMatches keeps the shortest of nested matches: a range that
// properly contains another range is deleted. Ranges must be sorted.
func (sc *Subcorpus) MinimalMatches() int {
	r := slices.Clone(sc.Ranges)
	for i := range r {
		if i > 0 && r[i-1].Start == r[i].Start && r[i-1].End < r[i].End {
			sc.Delete(i)
			continue
		}
		for j := i + 1; j < len(r) && r[j].Start <= r[i].End; j++ {
			if r[j].End <= r[i].End && r[j] != r[i] {
				sc.Delete(i)
				break
			}
		}
	}
	return sc.Reduce()
}

// MaximalMatches keeps the longest of nested matches: a range properly
// contained in another range is deleted. Ranges must be sorted.
func (sc *Subcorpus) MaximalMatches() int {
	r := slices.Clone(sc.Ranges)
	// widest earlier range: largest end, earliest start on ties
	best := Range{-1, -1}
	for i, cur := range r {
		contained := best.End > cur.End || (best.End == cur.End && best.Start < cur.Start)
		if i+1 < len(r) && r[i+1].Start == cur.Start && r[i+1].End > cur.End {
			contained = true
		}
		if cur.End > best.End {
			best = cur
		}
		if contained {
			sc.Delete(i)
		}
	}
	return sc.Reduce()
}

// LeftMaximalMatches removes matches sharing their end with an earlier,
// longer match, as produced by optional elements at the start of a query.
// Ranges must be sorted.
func (sc *Subcorpus) LeftMaximalMatches() int {
	seen := make(map[int]bool, len(sc.Ranges))
	for i, r := range sc.Ranges {
		if seen[r.End] {
			sc.Delete(i)
			continue
		}
		seen[r.End] = true
	}
	return sc.Reduce()
}

// ApplyStrategy performs the clean-up a matching strategy needs after
// simulation and returns the number of ranges removed.
func (sc *Subcorpus) ApplyStrategy(s query.Strategy) int {
	switch s {
	case query.StrategyShortest:
		return sc.MinimalMatches()
	case query.StrategyStandard:
		return sc.LeftMaximalMatches()
	case query.StrategyLongest:
		return sc.MaximalMatches()
	default:
		return 0
	}
}
