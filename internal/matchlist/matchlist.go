// Package matchlist implements the position lists the evaluator builds
// and combines: initial lists of candidate start positions and lists of
// (start, end) ranges with optional target and keyword anchors.
//
// A start of -1 is a tombstone. Operations that delete entries mark them
// and leave compaction to Reduce, so parallel arrays keep their positional
// correspondence until then.
package matchlist

import (
	"errors"
	"fmt"
	"slices"

	"CQPEval/internal/engine"
	"CQPEval/internal/query"
)

var (
	ErrNotInitial = errors.New("operation needs an initial matchlist")
	ErrInitial    = errors.New("operation needs end positions")
	ErrInverted   = errors.New("operation not defined on an inverted matchlist")
)

// Matchlist is a list of corpus positions or ranges sorted by start.
// An initial matchlist has no End array. Inverted lists stand for every
// corpus position not in Start.
type Matchlist struct {
	Start   []int
	End     []int
	Target  []int
	Keyword []int

	WholeCorpus bool
	Inverted    bool
}

// New returns an initial matchlist over sorted positions.
func New(starts []int) *Matchlist {
	return &Matchlist{Start: starts}
}

// Whole returns the initial matchlist of every position of a corpus of
// the given size.
func Whole(size int) *Matchlist {
	starts := make([]int, size)
	for i := range starts {
		starts[i] = i
	}
	return &Matchlist{Start: starts, WholeCorpus: true}
}

// Single returns the initial matchlist holding only cpos.
func Single(cpos int) *Matchlist {
	return &Matchlist{Start: []int{cpos}}
}

// Len returns the number of entries, tombstones included.
func (ml *Matchlist) Len() int {
	if ml == nil {
		return 0
	}
	return len(ml.Start)
}

// IsInitial reports whether the list carries start positions only.
func (ml *Matchlist) IsInitial() bool {
	return ml.End == nil
}

// Clone returns a deep copy.
func (ml *Matchlist) Clone() *Matchlist {
	return &Matchlist{
		Start:       slices.Clone(ml.Start),
		End:         slices.Clone(ml.End),
		Target:      slices.Clone(ml.Target),
		Keyword:     slices.Clone(ml.Keyword),
		WholeCorpus: ml.WholeCorpus,
		Inverted:    ml.Inverted,
	}
}

// Delete marks entry i as a tombstone.
func (ml *Matchlist) Delete(i int) {
	ml.Start[i] = -1
	if ml.End != nil {
		ml.End[i] = -1
	}
}

func (ml *Matchlist) move(dst, src int) {
	ml.Start[dst] = ml.Start[src]
	if ml.End != nil {
		ml.End[dst] = ml.End[src]
	}
	if ml.Target != nil {
		ml.Target[dst] = ml.Target[src]
	}
	if ml.Keyword != nil {
		ml.Keyword[dst] = ml.Keyword[src]
	}
}

func (ml *Matchlist) truncate(n int) {
	ml.Start = ml.Start[:n]
	if ml.End != nil {
		ml.End = ml.End[:n]
	}
	if ml.Target != nil {
		ml.Target = ml.Target[:n]
	}
	if ml.Keyword != nil {
		ml.Keyword = ml.Keyword[:n]
	}
}

// Reduce compacts tombstones away and returns the number removed.
func (ml *Matchlist) Reduce() int {
	n := ml.Len()
	ins := 0
	for i := 0; i < n; i++ {
		if ml.Start[i] == -1 {
			continue
		}
		if i != ins {
			ml.move(ins, i)
		}
		ins++
	}
	if ins != n {
		ml.truncate(ins)
		ml.WholeCorpus = false
		ml.Inverted = false
	}
	return n - ins
}

// Uniq removes adjacent duplicates: equal starts for initial lists, equal
// (start, end) pairs otherwise. The list must be sorted.
func (ml *Matchlist) Uniq() int {
	n := ml.Len()
	ins := 0
	for i := 0; i < n; i++ {
		if ins > 0 && ml.Start[i] == ml.Start[ins-1] && (ml.End == nil || ml.End[i] == ml.End[ins-1]) {
			continue
		}
		if i != ins {
			ml.move(ins, i)
		}
		ins++
	}
	if ins != n {
		ml.truncate(ins)
		ml.WholeCorpus = false
		ml.Inverted = false
	}
	return n - ins
}

// Sort orders ranges by increasing start, then end. Lists coming out of
// a simulation pass are nearly sorted, so a bubble sort that stops early
// is used.
func (ml *Matchlist) Sort() error {
	if ml.Inverted || ml.WholeCorpus {
		return fmt.Errorf("sort: %w", ErrInverted)
	}
	if ml.Len() == 0 {
		return nil
	}
	if ml.End == nil {
		return fmt.Errorf("sort: %w", ErrInitial)
	}
	for top := ml.Len() - 1; top >= 1; top-- {
		changes := 0
		for i := 0; i < top; i++ {
			if ml.Start[i] > ml.Start[i+1] || (ml.Start[i] == ml.Start[i+1] && ml.End[i] > ml.End[i+1]) {
				ml.swap(i, i+1)
				changes++
			}
		}
		if changes == 0 {
			break
		}
	}
	return nil
}

func (ml *Matchlist) swap(i, j int) {
	ml.Start[i], ml.Start[j] = ml.Start[j], ml.Start[i]
	ml.End[i], ml.End[j] = ml.End[j], ml.End[i]
	if ml.Target != nil {
		ml.Target[i], ml.Target[j] = ml.Target[j], ml.Target[i]
	}
	if ml.Keyword != nil {
		ml.Keyword[i], ml.Keyword[j] = ml.Keyword[j], ml.Keyword[i]
	}
}

// Complement replaces an initial list by the positions of [0, size) it
// does not contain. An inverted list is resolved by dropping the flag.
func (ml *Matchlist) Complement(size int) error {
	if ml.End != nil {
		return fmt.Errorf("complement: %w", ErrNotInitial)
	}
	if ml.Inverted {
		ml.Inverted = false
		return nil
	}
	present := slices.Clone(ml.Start)
	out := make([]int, 0, max(size-len(present), 0))
	j := 0
	for k := 0; k < size; k++ {
		for j < len(present) && present[j] < k {
			j++
		}
		if j < len(present) && present[j] == k {
			continue
		}
		out = append(out, k)
	}
	ml.Start = out
	ml.Target, ml.Keyword = nil, nil
	ml.WholeCorpus = len(out) == size
	return nil
}

// Resolve turns an inverted initial list into its explicit complement.
func (ml *Matchlist) Resolve(size int) {
	if ml.Inverted {
		ml.Inverted = false
		// cannot fail: inverted lists are initial
		_ = ml.Complement(size)
	}
}

// Union merges two lists sorted by start. Identical ranges are kept once;
// ranges sharing a start are ordered by end. Inverted operands are
// resolved against a corpus of the given size first.
func Union(a, b *Matchlist, size int) *Matchlist {
	switch {
	case b.Len() == 0 && !b.Inverted:
		return a.Clone()
	case b.Len() == 0:
		return b.Clone()
	case a.Len() == 0 && a.Inverted:
		return a.Clone()
	case a.Len() == 0:
		return b.Clone()
	case a.Inverted && b.Inverted:
		x, y := a.Clone(), b.Clone()
		x.Inverted, y.Inverted = false, false
		r := Intersection(x, y, size)
		r.Inverted = true
		return r
	}
	x, y := a.Clone(), b.Clone()
	x.Resolve(size)
	y.Resolve(size)

	out := &Matchlist{Start: make([]int, 0, x.Len()+y.Len())}
	withEnd := x.End != nil && y.End != nil
	withTarget := x.Target != nil && y.Target != nil
	withKeyword := x.Keyword != nil && y.Keyword != nil
	if withEnd {
		out.End = make([]int, 0, cap(out.Start))
	}
	if withTarget {
		out.Target = make([]int, 0, cap(out.Start))
	}
	if withKeyword {
		out.Keyword = make([]int, 0, cap(out.Start))
	}
	emit := func(src *Matchlist, i int) {
		out.Start = append(out.Start, src.Start[i])
		if withEnd {
			out.End = append(out.End, src.End[i])
		}
		if withTarget {
			out.Target = append(out.Target, src.Target[i])
		}
		if withKeyword {
			out.Keyword = append(out.Keyword, src.Keyword[i])
		}
	}

	i, j := 0, 0
	for i < x.Len() || j < y.Len() {
		switch {
		case i < x.Len() && x.Start[i] == -1:
			i++
		case j < y.Len() && y.Start[j] == -1:
			j++
		case j >= y.Len() || (i < x.Len() && x.Start[i] < y.Start[j]):
			emit(x, i)
			i++
		case i >= x.Len() || x.Start[i] > y.Start[j]:
			emit(y, j)
			j++
		case !withEnd || x.End[i] == y.End[j]:
			emit(x, i)
			i++
			j++
		case x.End[i] < y.End[j]:
			emit(x, i)
			i++
		default:
			emit(y, j)
			j++
		}
	}
	return out
}

// Intersection keeps the entries present in both lists. Inverted operands
// are resolved against a corpus of the given size first.
func Intersection(a, b *Matchlist, size int) *Matchlist {
	switch {
	case a.Len() == 0 && a.Inverted:
		return b.Clone()
	case b.Len() == 0 && b.Inverted:
		return a.Clone()
	case a.Len() == 0 || b.Len() == 0:
		return &Matchlist{}
	case a.Inverted && b.Inverted:
		x, y := a.Clone(), b.Clone()
		x.Inverted, y.Inverted = false, false
		r := Union(x, y, size)
		r.Inverted = true
		return r
	}
	x, y := a.Clone(), b.Clone()
	x.Resolve(size)
	y.Resolve(size)

	if x.End == nil && y.End == nil && x.Target == nil && x.Keyword == nil {
		return New(engine.IntersectPositions(x.Start, y.Start))
	}

	withEnd := x.End != nil && y.End != nil
	out := &Matchlist{}
	if withEnd {
		out.End = []int{}
	}
	withTarget := x.Target != nil && y.Target != nil
	withKeyword := x.Keyword != nil && y.Keyword != nil
	i, j := 0, 0
	for i < x.Len() && j < y.Len() {
		switch {
		case x.Start[i] < y.Start[j]:
			i++
		case x.Start[i] > y.Start[j]:
			j++
		case !withEnd || x.End[i] == y.End[j]:
			out.Start = append(out.Start, x.Start[i])
			if withEnd {
				out.End = append(out.End, x.End[i])
			}
			if withTarget {
				out.Target = append(out.Target, x.Target[i])
			}
			if withKeyword {
				out.Keyword = append(out.Keyword, x.Keyword[i])
			}
			i++
			j++
		case x.End[i] < y.End[j]:
			i++
		default:
			j++
		}
	}
	return out
}

// MarkOffRange tombstones every entry whose start lies outside the ranges
// of the working sub-corpus and returns the number of deletions. Ranges
// covering the whole corpus of the given size delete nothing.
func (ml *Matchlist) MarkOffRange(r query.Ranges, size int) int {
	if r.Len() == 1 {
		if s, e := r.Range(0); s == 0 && e == size-1 {
			return 0
		}
	}
	deleted := 0
	sc, i := 0, 0
	for i < ml.Len() {
		if sc >= r.Len() {
			ml.Delete(i)
			deleted++
			i++
			continue
		}
		s, e := r.Range(sc)
		switch {
		case ml.Start[i] < s:
			ml.Delete(i)
			deleted++
			i++
		case ml.Start[i] > e:
			sc++
		default:
			i++
		}
	}
	return deleted
}

// Contains reports whether a sorted initial list holds cpos.
func (ml *Matchlist) Contains(cpos int) bool {
	_, ok := slices.BinarySearch(ml.Start, cpos)
	return ok != ml.Inverted
}

func (ml *Matchlist) String() string {
	inv := ""
	if ml.Inverted {
		inv = " inverted"
	}
	if ml.End == nil {
		return fmt.Sprintf("matchlist[%d%s] %v", ml.Len(), inv, ml.Start)
	}
	return fmt.Sprintf("matchlist[%d%s] %v-%v", ml.Len(), inv, ml.Start, ml.End)
}
