package corpus

import (
	"fmt"
	"slices"
	"sort"

	"CQPEval/internal/engine"
)

// Memory is an immutable in-memory corpus produced by a Builder.
type Memory struct {
	name       string
	size       int
	positional map[string]*memPositional
	structural map[string]*memStructural
	alignment  map[string]*memAlignment
	dynamic    map[string]Dynamic

	// declaration order, for Attributes
	order map[Kind][]string
}

func (m *Memory) Name() string { return m.name }
func (m *Memory) Size() int    { return m.size }

func (m *Memory) Positional(name string) (Positional, error) {
	if a, ok := m.positional[name]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: positional %q in %s", ErrNoSuchAttribute, name, m.name)
}

func (m *Memory) Structural(name string) (Structural, error) {
	if a, ok := m.structural[name]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: structural %q in %s", ErrNoSuchAttribute, name, m.name)
}

func (m *Memory) Alignment(name string) (Alignment, error) {
	if a, ok := m.alignment[name]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: alignment %q in %s", ErrNoSuchAttribute, name, m.name)
}

func (m *Memory) Dynamic(name string) (Dynamic, error) {
	if a, ok := m.dynamic[name]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: dynamic %q in %s", ErrNoSuchAttribute, name, m.name)
}

func (m *Memory) Attributes(kind Kind) []string {
	return slices.Clone(m.order[kind])
}

// RegisterDynamic adds or replaces a dynamic attribute.
func (m *Memory) RegisterDynamic(d Dynamic) {
	if _, ok := m.dynamic[d.Name()]; !ok {
		m.order[KindDynamic] = append(m.order[KindDynamic], d.Name())
	}
	m.dynamic[d.Name()] = d
}

// memPositional stores one ID per position plus an inverted index from ID
// to its sorted positions.
type memPositional struct {
	name     string
	lexicon  []string
	ids      map[string]int
	stream   []int
	postings [][]int
}

func (a *memPositional) Name() string     { return a.name }
func (a *memPositional) Size() int        { return len(a.stream) }
func (a *memPositional) LexiconSize() int { return len(a.lexicon) }

func (a *memPositional) ID(value string) int {
	if id, ok := a.ids[value]; ok {
		return id
	}
	return -1
}

func (a *memPositional) Value(id int) (string, bool) {
	if id < 0 || id >= len(a.lexicon) {
		return "", false
	}
	return a.lexicon[id], true
}

func (a *memPositional) IDAt(cpos int) int {
	if cpos < 0 || cpos >= len(a.stream) {
		return -1
	}
	return a.stream[cpos]
}

func (a *memPositional) ValueAt(cpos int) (string, bool) {
	return a.Value(a.IDAt(cpos))
}

func (a *memPositional) Frequency(id int) int {
	if id < 0 || id >= len(a.postings) {
		return 0
	}
	return len(a.postings[id])
}

func (a *memPositional) MatchingIDs(re *Regex) []int {
	var out []int
	for id, v := range a.lexicon {
		if re.MatchString(v) {
			out = append(out, id)
		}
	}
	return out
}

func (a *memPositional) Positions(ids []int) []int {
	lists := make([][]int, 0, len(ids))
	for _, id := range ids {
		if id >= 0 && id < len(a.postings) {
			lists = append(lists, a.postings[id])
		}
	}
	switch len(lists) {
	case 0:
		return nil
	case 1:
		return slices.Clone(lists[0])
	}
	return engine.MergePositions(lists...)
}

type region struct {
	start, end int
	value      string
}

type memStructural struct {
	name      string
	hasValues bool
	regions   []region
}

func (s *memStructural) Name() string     { return s.name }
func (s *memStructural) RegionCount() int { return len(s.regions) }
func (s *memStructural) HasValues() bool  { return s.hasValues }

func (s *memStructural) RegionAt(cpos int) int {
	i := sort.Search(len(s.regions), func(i int) bool { return s.regions[i].end >= cpos })
	if i < len(s.regions) && s.regions[i].start <= cpos {
		return i
	}
	return -1
}

func (s *memStructural) Bounds(r int) (int, int, bool) {
	if r < 0 || r >= len(s.regions) {
		return -1, -1, false
	}
	return s.regions[r].start, s.regions[r].end, true
}

func (s *memStructural) RegionValue(r int) (string, bool) {
	if !s.hasValues || r < 0 || r >= len(s.regions) {
		return "", false
	}
	return s.regions[r].value, true
}

type bead struct {
	srcStart, srcEnd int
	tgtStart, tgtEnd int
}

type memAlignment struct {
	name   string
	target string
	beads  []bead
}

func (a *memAlignment) Name() string         { return a.name }
func (a *memAlignment) TargetCorpus() string { return a.target }
func (a *memAlignment) BeadCount() int       { return len(a.beads) }

func (a *memAlignment) BeadAt(cpos int) int {
	i := sort.Search(len(a.beads), func(i int) bool { return a.beads[i].srcEnd >= cpos })
	if i < len(a.beads) && a.beads[i].srcStart <= cpos {
		return i
	}
	return -1
}

func (a *memAlignment) Bead(b int) (int, int, int, int, bool) {
	if b < 0 || b >= len(a.beads) {
		return -1, -1, -1, -1, false
	}
	x := a.beads[b]
	return x.srcStart, x.srcEnd, x.tgtStart, x.tgtEnd, true
}
