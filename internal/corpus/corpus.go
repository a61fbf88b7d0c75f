// Package corpus defines the storage primitives the query engine consumes
// and provides an in-memory implementation of them.
package corpus

import (
	"errors"
)

var (
	ErrNoSuchAttribute    = errors.New("no such attribute")
	ErrPositionOutOfRange = errors.New("corpus position out of range")
	ErrNoSuchRegion       = errors.New("no such region")
	ErrArity              = errors.New("wrong number of arguments")
)

// Kind distinguishes the attribute namespaces of a corpus.
type Kind int

const (
	KindPositional Kind = iota
	KindStructural
	KindAlignment
	KindDynamic
)

func (k Kind) String() string {
	switch k {
	case KindPositional:
		return "positional"
	case KindStructural:
		return "structural"
	case KindAlignment:
		return "alignment"
	case KindDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// Corpus is a tokenized, annotated text addressed by corpus positions
// 0..Size()-1.
type Corpus interface {
	Name() string
	Size() int
	Positional(name string) (Positional, error)
	Structural(name string) (Structural, error)
	Alignment(name string) (Alignment, error)
	Dynamic(name string) (Dynamic, error)
	Attributes(kind Kind) []string
}

// Positional is a token-level annotation layer with a lexicon of distinct
// values. IDs are dense in 0..LexiconSize()-1.
type Positional interface {
	Name() string
	Size() int
	LexiconSize() int

	// ID maps a value to its lexicon ID, or -1.
	ID(value string) int
	// Value maps a lexicon ID to its string.
	Value(id int) (string, bool)
	// IDAt returns the lexicon ID at cpos, or -1 if cpos is out of range.
	IDAt(cpos int) int
	// ValueAt returns the value at cpos.
	ValueAt(cpos int) (string, bool)
	// Frequency returns the number of occurrences of id.
	Frequency(id int) int
	// MatchingIDs returns the sorted IDs whose value matches re.
	MatchingIDs(re *Regex) []int
	// Positions returns the sorted corpus positions of the given IDs.
	Positions(ids []int) []int
}

// Structural is a set of non-overlapping, ordered regions, optionally with
// a value per region.
type Structural interface {
	Name() string
	RegionCount() int
	HasValues() bool
	// RegionAt returns the index of the region containing cpos, or -1.
	RegionAt(cpos int) int
	// Bounds returns the first and last position of region.
	Bounds(region int) (start, end int, ok bool)
	// RegionValue returns the annotation of region.
	RegionValue(region int) (string, bool)
}

// Alignment maps corpus positions to beads of a sentence alignment with a
// target corpus.
type Alignment interface {
	Name() string
	TargetCorpus() string
	BeadCount() int
	// BeadAt returns the bead containing cpos, or -1.
	BeadAt(cpos int) int
	// Bead returns the source and target ranges of bead.
	Bead(bead int) (srcStart, srcEnd, tgtStart, tgtEnd int, ok bool)
}

// Dynamic is a computed attribute: a function with fixed arity called with
// evaluated arguments.
type Dynamic interface {
	Name() string
	Arity() int
	Call(args []Value) (Value, error)
}

// Registry resolves corpora by name, used for aligned corpora.
type Registry interface {
	Corpus(name string) (Corpus, error)
}

// MapRegistry is a Registry over a fixed set of corpora.
type MapRegistry map[string]Corpus

func (r MapRegistry) Corpus(name string) (Corpus, error) {
	c, ok := r[name]
	if !ok {
		return nil, errors.Join(ErrNoSuchAttribute, errors.New("corpus "+name))
	}
	return c, nil
}

// RegionBounds is a convenience: the region containing cpos and its bounds.
func RegionBounds(s Structural, cpos int) (region, start, end int, ok bool) {
	region = s.RegionAt(cpos)
	if region < 0 {
		return -1, -1, -1, false
	}
	start, end, ok = s.Bounds(region)
	return region, start, end, ok
}
