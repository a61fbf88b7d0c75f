// Package subcorpus holds query results: ordered (start, end) ranges over
// a corpus with optional target and keyword anchors.
package subcorpus

import (
	"errors"
	"fmt"
	"sort"

	"CQPEval/internal/corpus"
	"CQPEval/internal/matchlist"
	"CQPEval/internal/query"
)

var ErrParallelArrays = errors.New("anchor array length differs from range count")

// Range is a match span [Start, End]. Start -1 marks a deleted entry.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Subcorpus is a named query result over a corpus. A fresh Subcorpus over
// the whole corpus is the starting point of every top-level query.
type Subcorpus struct {
	Name       string        `json:"name"`
	CorpusName string        `json:"corpus"`
	Corpus     corpus.Corpus `json:"-"`
	MotherSize int           `json:"mother_size"`

	Ranges   []Range `json:"ranges"`
	Targets  []int   `json:"targets,omitempty"`
	Keywords []int   `json:"keywords,omitempty"`
	// SortIdx is a permutation recording a non-natural display order.
	SortIdx []int `json:"sortidx,omitempty"`

	// IsSub is false for the corpus itself and true for query results.
	IsSub bool `json:"is_sub"`
}

var _ query.Ranges = (*Subcorpus)(nil)

// Whole returns the subcorpus spanning all of c.
func Whole(c corpus.Corpus) *Subcorpus {
	sc := &Subcorpus{
		Name:       c.Name(),
		CorpusName: c.Name(),
		Corpus:     c,
		MotherSize: c.Size(),
	}
	if c.Size() > 0 {
		sc.Ranges = []Range{{0, c.Size() - 1}}
	}
	return sc
}

// New returns an empty query result named name over c.
func New(name string, c corpus.Corpus) *Subcorpus {
	return &Subcorpus{
		Name:       name,
		CorpusName: c.Name(),
		Corpus:     c,
		MotherSize: c.Size(),
		IsSub:      true,
	}
}

// Len returns the number of ranges.
func (sc *Subcorpus) Len() int {
	if sc == nil {
		return 0
	}
	return len(sc.Ranges)
}

func (sc *Subcorpus) Range(i int) (int, int) {
	return sc.Ranges[i].Start, sc.Ranges[i].End
}

// Clone returns a deep copy sharing the corpus handle.
func (sc *Subcorpus) Clone() *Subcorpus {
	c := *sc
	c.Ranges = append([]Range(nil), sc.Ranges...)
	c.Targets = cloneInts(sc.Targets)
	c.Keywords = cloneInts(sc.Keywords)
	c.SortIdx = cloneInts(sc.SortIdx)
	return &c
}

func cloneInts(s []int) []int {
	if s == nil {
		return nil
	}
	return append([]int(nil), s...)
}

// Validate checks that anchor arrays run parallel to the ranges.
func (sc *Subcorpus) Validate() error {
	n := len(sc.Ranges)
	for name, a := range map[string][]int{"targets": sc.Targets, "keywords": sc.Keywords, "sortidx": sc.SortIdx} {
		if a != nil && len(a) != n {
			return fmt.Errorf("%s: %d entries for %d ranges: %w", name, len(a), n, ErrParallelArrays)
		}
	}
	return nil
}

// Anchor returns the position of an anchor of range i, or -1.
func (sc *Subcorpus) Anchor(field query.AnchorField, i int) int {
	if i < 0 || i >= len(sc.Ranges) {
		return -1
	}
	switch field {
	case query.AnchorMatch:
		return sc.Ranges[i].Start
	case query.AnchorMatchEnd:
		return sc.Ranges[i].End
	case query.AnchorTarget:
		if sc.Targets != nil {
			return sc.Targets[i]
		}
	case query.AnchorKeyword:
		if sc.Keywords != nil {
			return sc.Keywords[i]
		}
	}
	return -1
}

// Delete marks range i as deleted; Reduce removes it.
func (sc *Subcorpus) Delete(i int) {
	sc.Ranges[i].Start = -1
}

// Reduce drops deleted ranges with their anchors and returns the number
// removed. A sort index no longer matches and is discarded.
func (sc *Subcorpus) Reduce() int {
	ins := 0
	for i, r := range sc.Ranges {
		if r.Start == -1 {
			continue
		}
		sc.Ranges[ins] = r
		if sc.Targets != nil {
			sc.Targets[ins] = sc.Targets[i]
		}
		if sc.Keywords != nil {
			sc.Keywords[ins] = sc.Keywords[i]
		}
		ins++
	}
	removed := len(sc.Ranges) - ins
	if removed == 0 {
		return 0
	}
	sc.Ranges = sc.Ranges[:ins]
	if sc.Targets != nil {
		sc.Targets = sc.Targets[:ins]
	}
	if sc.Keywords != nil {
		sc.Keywords = sc.Keywords[:ins]
	}
	sc.SortIdx = nil
	return removed
}

type byRange struct{ sc *Subcorpus }

func (b byRange) Len() int { return len(b.sc.Ranges) }
func (b byRange) Less(i, j int) bool {
	ri, rj := b.sc.Ranges[i], b.sc.Ranges[j]
	return ri.Start < rj.Start || (ri.Start == rj.Start && ri.End < rj.End)
}
func (b byRange) Swap(i, j int) {
	r := b.sc.Ranges
	r[i], r[j] = r[j], r[i]
	if t := b.sc.Targets; t != nil {
		t[i], t[j] = t[j], t[i]
	}
	if k := b.sc.Keywords; k != nil {
		k[i], k[j] = k[j], k[i]
	}
}

// Sort restores natural order by (start, end) and drops the sort index.
func (sc *Subcorpus) Sort() {
	sort.Stable(byRange{sc})
	sc.SortIdx = nil
}

// Uniq removes identical adjacent ranges. The ranges must be sorted.
func (sc *Subcorpus) Uniq() int {
	last := -1
	for i := range sc.Ranges {
		if sc.Ranges[i].Start == -1 {
			continue
		}
		if last >= 0 && sc.Ranges[i] == sc.Ranges[last] {
			sc.Delete(i)
			continue
		}
		last = i
	}
	return sc.Reduce()
}

// Cut keeps the first n ranges. n <= 0 keeps all.
func (sc *Subcorpus) Cut(n int) int {
	if n <= 0 || len(sc.Ranges) <= n {
		return 0
	}
	for i := n; i < len(sc.Ranges); i++ {
		sc.Delete(i)
	}
	return sc.Reduce()
}

// ToMatchlist returns the ranges as a matchlist with anchors copied.
func (sc *Subcorpus) ToMatchlist() *matchlist.Matchlist {
	ml := &matchlist.Matchlist{
		Start: make([]int, len(sc.Ranges)),
		End:   make([]int, len(sc.Ranges)),
	}
	for i, r := range sc.Ranges {
		ml.Start[i], ml.End[i] = r.Start, r.End
	}
	ml.Target = cloneInts(sc.Targets)
	ml.Keyword = cloneInts(sc.Keywords)
	return ml
}

// SetMatchlist stores the result of a query run. In keep-old-ranges mode
// (subquery filter) the existing ranges are kept, minus those no match of
// ml lies wholly within; otherwise the ranges and anchors are replaced by
// the matches. Either way the sort index is discarded.
func (sc *Subcorpus) SetMatchlist(ml *matchlist.Matchlist, keepOld bool) {
	sc.SortIdx = nil
	if keepOld {
		rp, mp := 0, 0
		for rp < len(sc.Ranges) {
			switch {
			case mp >= ml.Len():
				sc.Delete(rp)
				rp++
			case ml.Start[mp] < sc.Ranges[rp].Start:
				mp++
			case ml.Start[mp] > sc.Ranges[rp].End || ml.End[mp] > sc.Ranges[rp].End:
				sc.Delete(rp)
				rp++
			default:
				rp++
			}
		}
		sc.Reduce()
		return
	}

	sc.Ranges = make([]Range, ml.Len())
	for i := range sc.Ranges {
		end := ml.Start[i]
		if ml.End != nil {
			end = ml.End[i]
		}
		sc.Ranges[i] = Range{ml.Start[i], end}
	}
	sc.Targets = cloneInts(ml.Target)
	sc.Keywords = cloneInts(ml.Keyword)
}
