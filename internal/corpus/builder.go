package corpus

import (
	"errors"
	"fmt"
	"sync"

	"CQPEval/internal/analysis"
)

var (
	ErrBuilderClosed    = errors.New("builder is closed")
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrRegionOrder      = errors.New("regions must be added in order without overlap")
	ErrBeadOrder        = errors.New("beads must be added in order without overlap")
	ErrEmptyRange       = errors.New("invalid position range")
)

// Builder accumulates tokens, regions and beads and produces a Memory
// corpus. A Builder is single-use: Build closes it.
type Builder struct {
	schema   *Schema
	registry *analysis.Registry

	// lexicons: attribute → value → ID, in first-seen order
	lexicons map[string]map[string]int
	values   map[string][]string
	streams  map[string][]int

	regions map[string][]region
	beads   map[string][]bead
	size    int

	mu     sync.Mutex
	closed bool
}

// NewBuilder creates a Builder for a validated schema.
func NewBuilder(schema *Schema, registry *analysis.Registry) (*Builder, error) {
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("new builder: %w", err)
	}
	if registry == nil {
		registry = analysis.NewRegistry()
	}
	b := &Builder{
		schema:   schema,
		registry: registry,
		lexicons: make(map[string]map[string]int),
		values:   make(map[string][]string),
		streams:  make(map[string][]int),
		regions:  make(map[string][]region),
		beads:    make(map[string][]bead),
	}
	for _, p := range schema.Positional {
		b.lexicons[p.Name] = make(map[string]int)
	}
	return b, nil
}

// Size returns the number of tokens added so far.
func (b *Builder) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// AddText tokenizes text with the schema's tokenizer into the primary
// attribute and returns the position range of the new tokens. An empty
// range is reported as start > end.
func (b *Builder) AddText(text string) (start, end int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, 0, ErrBuilderClosed
	}

	name := b.schema.Analyzer
	if name == "" {
		name = AnalyzerWhitespace
	}
	tokenizer, err := b.registry.Get(name)
	if err != nil {
		return 0, 0, fmt.Errorf("add text: %w", err)
	}

	start = b.size
	for _, tok := range tokenizer.Tokenize(text) {
		b.appendToken(map[string]string{b.schema.PrimaryAttribute(): tok.Text})
	}
	return start, b.size - 1, nil
}

// AddToken appends one token. Attributes missing from values are derived
// from the primary attribute when the schema says so, else left empty.
func (b *Builder) AddToken(values map[string]string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, ErrBuilderClosed
	}
	for name := range values {
		if _, ok := b.lexicons[name]; !ok {
			return 0, fmt.Errorf("%w: positional %q", ErrUnknownAttribute, name)
		}
	}
	b.appendToken(values)
	return b.size - 1, nil
}

func (b *Builder) appendToken(values map[string]string) {
	word := values[b.schema.PrimaryAttribute()]
	for _, p := range b.schema.Positional {
		v, ok := values[p.Name]
		if !ok && p.Derive != DeriveNone {
			v = derive(p.Derive, word)
		}
		lex := b.lexicons[p.Name]
		id, seen := lex[v]
		if !seen {
			id = len(lex)
			lex[v] = id
			b.values[p.Name] = append(b.values[p.Name], v)
		}
		b.streams[p.Name] = append(b.streams[p.Name], id)
	}
	b.size++
}

// AddRegion appends a region [start, end] to a structural attribute.
func (b *Builder) AddRegion(attr string, start, end int, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBuilderClosed
	}
	if !b.hasStructural(attr) {
		return fmt.Errorf("%w: structural %q", ErrUnknownAttribute, attr)
	}
	if start < 0 || end < start {
		return fmt.Errorf("%w: region [%d,%d] of %q", ErrEmptyRange, start, end, attr)
	}
	rs := b.regions[attr]
	if n := len(rs); n > 0 && rs[n-1].end >= start {
		return fmt.Errorf("%w: [%d,%d] after [%d,%d] in %q", ErrRegionOrder, start, end, rs[n-1].start, rs[n-1].end, attr)
	}
	b.regions[attr] = append(rs, region{start: start, end: end, value: value})
	return nil
}

// AddBead appends an alignment bead mapping [srcStart, srcEnd] of this
// corpus to [tgtStart, tgtEnd] of the target corpus.
func (b *Builder) AddBead(attr string, srcStart, srcEnd, tgtStart, tgtEnd int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBuilderClosed
	}
	if !b.hasAlignment(attr) {
		return fmt.Errorf("%w: alignment %q", ErrUnknownAttribute, attr)
	}
	if srcStart < 0 || srcEnd < srcStart || tgtStart < 0 || tgtEnd < tgtStart {
		return fmt.Errorf("%w: bead [%d,%d]→[%d,%d] of %q", ErrEmptyRange, srcStart, srcEnd, tgtStart, tgtEnd, attr)
	}
	bs := b.beads[attr]
	if n := len(bs); n > 0 && bs[n-1].srcEnd >= srcStart {
		return fmt.Errorf("%w: source %d in %q", ErrBeadOrder, srcStart, attr)
	}
	b.beads[attr] = append(bs, bead{srcStart: srcStart, srcEnd: srcEnd, tgtStart: tgtStart, tgtEnd: tgtEnd})
	return nil
}

func (b *Builder) hasStructural(name string) bool {
	for _, s := range b.schema.Structural {
		if s.Name == name {
			return true
		}
	}
	return false
}

func (b *Builder) hasAlignment(name string) bool {
	for _, a := range b.schema.Alignment {
		if a.Name == name {
			return true
		}
	}
	return false
}

// Build freezes the accumulated data into a Memory corpus with the
// default dynamic attributes registered.
func (b *Builder) Build() (*Memory, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBuilderClosed
	}
	for name, rs := range b.regions {
		if n := len(rs); n > 0 && rs[n-1].end >= b.size {
			return nil, fmt.Errorf("%w: region [%d,%d] of %q beyond corpus size %d",
				ErrPositionOutOfRange, rs[n-1].start, rs[n-1].end, name, b.size)
		}
	}
	for name, bs := range b.beads {
		if n := len(bs); n > 0 && bs[n-1].srcEnd >= b.size {
			return nil, fmt.Errorf("%w: bead ending at %d of %q beyond corpus size %d",
				ErrPositionOutOfRange, bs[n-1].srcEnd, name, b.size)
		}
	}
	b.closed = true

	m := &Memory{
		name:       b.schema.Name,
		size:       b.size,
		positional: make(map[string]*memPositional),
		structural: make(map[string]*memStructural),
		alignment:  make(map[string]*memAlignment),
		dynamic:    make(map[string]Dynamic),
		order:      make(map[Kind][]string),
	}

	for _, p := range b.schema.Positional {
		lex := b.values[p.Name]
		stream := b.streams[p.Name]
		postings := make([][]int, len(lex))
		for cpos, id := range stream {
			postings[id] = append(postings[id], cpos)
		}
		m.positional[p.Name] = &memPositional{
			name:     p.Name,
			lexicon:  lex,
			ids:      b.lexicons[p.Name],
			stream:   stream,
			postings: postings,
		}
		m.order[KindPositional] = append(m.order[KindPositional], p.Name)
	}
	for _, s := range b.schema.Structural {
		m.structural[s.Name] = &memStructural{name: s.Name, hasValues: s.Values, regions: b.regions[s.Name]}
		m.order[KindStructural] = append(m.order[KindStructural], s.Name)
	}
	for _, a := range b.schema.Alignment {
		m.alignment[a.Name] = &memAlignment{name: a.Name, target: a.Target, beads: b.beads[a.Name]}
		m.order[KindAlignment] = append(m.order[KindAlignment], a.Name)
	}

	m.RegisterDynamic(StemAttribute())
	m.RegisterDynamic(LowerAttribute())
	return m, nil
}
