// Package plan reads query plans: the serialized, already parsed form of a
// corpus query. A plan names the corpus, lists the pattern vocabulary,
// gives the evaluation tree over it and carries the descriptors that
// steer evaluation. Prepare turns a plan into the scopes of an
// eval.Session.
//
// A minimal plan for the query "the" [pos="NOUN"]:
//
//	corpus: DEMO
//	patterns:
//	  - token: {value: the}
//	  - token:
//	      where: {cmp: {op: "=", left: {attr: pos}, right: {string: NOUN}}}
//	tree:
//	  seq: [{leaf: 0}, {leaf: 1}]
package plan

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidPlan = errors.New("invalid query plan")
	ErrLabels      = errors.New("inconsistent label usage")
)

// Kind is the evaluation a plan needs.
type Kind string

const (
	KindStandard Kind = "standard"
	KindMU       Kind = "meet-union"
	KindTab      Kind = "tabular"
)

// Plan is one query over a corpus.
type Plan struct {
	// Name stores the result as a named query result when set.
	Name   string `yaml:"name,omitempty"`
	Corpus string `yaml:"corpus"`
	// QueryCorpus restricts the search to the ranges of a named result.
	QueryCorpus string `yaml:"query_corpus,omitempty"`
	Strategy    string `yaml:"strategy,omitempty"`
	Cut         int    `yaml:"cut,omitempty"`
	KeepOld     bool   `yaml:"keep_old,omitempty"`

	Query `yaml:",inline"`

	Aligned []Aligned `yaml:"aligned,omitempty"`
}

// Query is the part of a plan compiled into one scope.
type Query struct {
	Patterns []Element `yaml:"patterns"`
	Tree     Tree      `yaml:"tree"`
	Global   *Node     `yaml:"global,omitempty"`
	Within   *Within   `yaml:"within,omitempty"`
	Selector *Selector `yaml:"selector,omitempty"`
}

// Aligned is an alignment constraint: Query must (or, with Not, must not)
// match in the region of the aligned corpus that a match aligns to.
type Aligned struct {
	Alignment string `yaml:"alignment"`
	Not       bool   `yaml:"not,omitempty"`
	Query     `yaml:",inline"`
}

// Within is the search context: Size tokens, or Size regions of Attr.
type Within struct {
	Size int    `yaml:"size,omitempty"`
	Attr string `yaml:"attr,omitempty"`
}

// Selector remaps the span of every match.
type Selector struct {
	Begin       string `yaml:"begin,omitempty"`
	BeginOffset int    `yaml:"begin_offset,omitempty"`
	End         string `yaml:"end,omitempty"`
	EndOffset   int    `yaml:"end_offset,omitempty"`
}

// Element is one pattern of the vocabulary. Exactly one field is set.
type Element struct {
	Token  *Token      `yaml:"token,omitempty"`
	Tag    *TagSpec    `yaml:"tag,omitempty"`
	Anchor *AnchorSpec `yaml:"anchor,omitempty"`
	Region *RegionSpec `yaml:"region,omitempty"`
}

// Token matches one token. Value is a regex over the default attribute;
// Where is a full constraint. A token with neither matches any token.
type Token struct {
	Value     string `yaml:"value,omitempty"`
	Flags     string `yaml:"flags,omitempty"`
	Where     *Node  `yaml:"where,omitempty"`
	Label     string `yaml:"label,omitempty"`
	Mark      string `yaml:"mark,omitempty"`
	Lookahead bool   `yaml:"lookahead,omitempty"`
}

// TagSpec matches a region boundary, optionally testing the region value.
type TagSpec struct {
	Attr    string `yaml:"attr"`
	Closing bool   `yaml:"closing,omitempty"`
	Value   string `yaml:"value,omitempty"`
	Regex   string `yaml:"regex,omitempty"`
	Flags   string `yaml:"flags,omitempty"`
	Not     bool   `yaml:"not,omitempty"`
}

// AnchorSpec matches an anchor of the enclosing query result.
type AnchorSpec struct {
	Field   string `yaml:"field"`
	Closing bool   `yaml:"closing,omitempty"`
}

// RegionSpec is one element of a region triple. Elements sharing Queue
// belong together; a region without queue is zero-width.
type RegionSpec struct {
	Op         string `yaml:"op"`
	Queue      string `yaml:"queue,omitempty"`
	Attr       string `yaml:"attr,omitempty"`
	NQR        string `yaml:"nqr,omitempty"`
	StartLabel string `yaml:"start_label,omitempty"`
	EndLabel   string `yaml:"end_label,omitempty"`
	StartMark  string `yaml:"start_mark,omitempty"`
	EndMark    string `yaml:"end_mark,omitempty"`
}

// Tree is a node of the evaluation tree. Exactly one field is set.
type Tree struct {
	Leaf   *int        `yaml:"leaf,omitempty"`
	Seq    []Tree      `yaml:"seq,omitempty"`
	Alt    []Tree      `yaml:"alt,omitempty"`
	Repeat *RepeatSpec `yaml:"repeat,omitempty"`
	Meet   *MeetSpec   `yaml:"meet,omitempty"`
	Union  []Tree      `yaml:"union,omitempty"`
	Tab    []TabSpec   `yaml:"tab,omitempty"`
}

// RepeatSpec repeats Tree Min to Max times; a missing Max is unbounded.
type RepeatSpec struct {
	Tree Tree `yaml:"tree"`
	Min  int  `yaml:"min,omitempty"`
	Max  *int `yaml:"max,omitempty"`
}

// MeetSpec keeps the positions of Left near a position of Right: within
// Window tokens, or within the same region of Within.
type MeetSpec struct {
	Left   Tree   `yaml:"left"`
	Right  Tree   `yaml:"right"`
	Window [2]int `yaml:"window,omitempty"`
	Within string `yaml:"within,omitempty"`
	Not    bool   `yaml:"not,omitempty"`
}

// TabSpec is one column of a tabular query with its distance window to
// the next column; a missing Max is unbounded.
type TabSpec struct {
	Pattern int  `yaml:"pattern"`
	Min     int  `yaml:"min,omitempty"`
	Max     *int `yaml:"max,omitempty"`
}

// Node is a constraint tree node. Exactly one field is set.
type Node struct {
	And     []Node      `yaml:"and,omitempty"`
	Or      []Node      `yaml:"or,omitempty"`
	Implies []Node      `yaml:"implies,omitempty"`
	Not     *Node       `yaml:"not,omitempty"`
	Cmp     *Comparison `yaml:"cmp,omitempty"`
	Exists  *Operand    `yaml:"exists,omitempty"`
	Const   *bool       `yaml:"const,omitempty"`
	// Start and End test for the first or last position of a region.
	Start string `yaml:"start,omitempty"`
	End   string `yaml:"end,omitempty"`
	In    *IDSet `yaml:"in,omitempty"`
}

// Comparison compares two operands with one of = != < > <= >=.
type Comparison struct {
	Op    string  `yaml:"op"`
	Left  Operand `yaml:"left"`
	Right Operand `yaml:"right"`
}

// Operand is a leaf of a comparison.
type Operand struct {
	Attr   string `yaml:"attr,omitempty"`
	Struc  string `yaml:"struc,omitempty"`
	Label  string `yaml:"label,omitempty"`
	Delete bool   `yaml:"delete,omitempty"`

	String *string   `yaml:"string,omitempty"`
	Regex  *string   `yaml:"regex,omitempty"`
	Flags  string    `yaml:"flags,omitempty"`
	Int    *int      `yaml:"int,omitempty"`
	Float  *float64  `yaml:"float,omitempty"`
	Func   string    `yaml:"func,omitempty"`
	Args   []Operand `yaml:"args,omitempty"`
}

// IDSet tests the value of Attr for membership in Values.
type IDSet struct {
	Attr   string   `yaml:"attr"`
	Label  string   `yaml:"label,omitempty"`
	Delete bool     `yaml:"delete,omitempty"`
	Values []string `yaml:"values"`
	Not    bool     `yaml:"not,omitempty"`
}

// Load reads a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML plan and checks its shape.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks what can be checked without a corpus.
func (p *Plan) Validate() error {
	if p.Corpus == "" {
		return fmt.Errorf("%w: no corpus", ErrInvalidPlan)
	}
	if p.Cut < 0 {
		return fmt.Errorf("%w: negative cut %d", ErrInvalidPlan, p.Cut)
	}
	if err := p.Query.validate(); err != nil {
		return err
	}
	for i, a := range p.Aligned {
		if a.Alignment == "" {
			return fmt.Errorf("%w: aligned query %d names no alignment", ErrInvalidPlan, i)
		}
		if err := a.Query.validate(); err != nil {
			return fmt.Errorf("aligned query %d: %w", i, err)
		}
		if a.Tree.kind() != KindStandard {
			return fmt.Errorf("%w: aligned query %d is not a token sequence", ErrInvalidPlan, i)
		}
	}
	if len(p.Aligned) > 0 && p.Kind() != KindStandard {
		return fmt.Errorf("%w: alignment constraints need a token sequence query", ErrInvalidPlan)
	}
	return nil
}

func (q *Query) validate() error {
	if len(q.Patterns) == 0 {
		return fmt.Errorf("%w: no patterns", ErrInvalidPlan)
	}
	for i, e := range q.Patterns {
		if n := countSet(e.Token != nil, e.Tag != nil, e.Anchor != nil, e.Region != nil); n != 1 {
			return fmt.Errorf("%w: pattern %d sets %d element kinds", ErrInvalidPlan, i, n)
		}
	}
	return q.Tree.validate(len(q.Patterns), true)
}

// Kind reports which evaluation the main query needs.
func (p *Plan) Kind() Kind {
	return p.Tree.kind()
}

func (t *Tree) kind() Kind {
	switch {
	case len(t.Tab) > 0:
		return KindTab
	case t.Meet != nil || len(t.Union) > 0:
		return KindMU
	default:
		return KindStandard
	}
}

func (t *Tree) validate(patterns int, root bool) error {
	n := countSet(t.Leaf != nil, len(t.Seq) > 0, len(t.Alt) > 0, t.Repeat != nil,
		t.Meet != nil, len(t.Union) > 0, len(t.Tab) > 0)
	if n != 1 {
		return fmt.Errorf("%w: tree node sets %d kinds", ErrInvalidPlan, n)
	}
	leaf := func(i int) error {
		if i < 0 || i >= patterns {
			return fmt.Errorf("%w: pattern %d out of range", ErrInvalidPlan, i)
		}
		return nil
	}
	children := func(ts []Tree) error {
		for i := range ts {
			if err := ts[i].validate(patterns, false); err != nil {
				return err
			}
		}
		return nil
	}

	switch {
	case t.Leaf != nil:
		return leaf(*t.Leaf)
	case len(t.Tab) > 0:
		if !root {
			return fmt.Errorf("%w: tabular query nested in a tree", ErrInvalidPlan)
		}
		for _, c := range t.Tab {
			if err := leaf(c.Pattern); err != nil {
				return err
			}
			if c.Max != nil && *c.Max < c.Min {
				return fmt.Errorf("%w: column window %d..%d", ErrInvalidPlan, c.Min, *c.Max)
			}
		}
		return nil
	case t.Repeat != nil:
		if t.Repeat.Min < 0 || (t.Repeat.Max != nil && *t.Repeat.Max < t.Repeat.Min) {
			return fmt.Errorf("%w: repetition bounds", ErrInvalidPlan)
		}
		if t.Repeat.Tree.kind() != KindStandard {
			return fmt.Errorf("%w: meet/union inside a repetition", ErrInvalidPlan)
		}
		return t.Repeat.Tree.validate(patterns, false)
	case t.Meet != nil:
		for _, side := range []*Tree{&t.Meet.Left, &t.Meet.Right} {
			if err := side.validateMU(patterns); err != nil {
				return err
			}
		}
		return nil
	case len(t.Union) > 0:
		if len(t.Union) < 2 {
			return fmt.Errorf("%w: union of one operand", ErrInvalidPlan)
		}
		for i := range t.Union {
			if err := t.Union[i].validateMU(patterns); err != nil {
				return err
			}
		}
		return nil
	case len(t.Seq) > 0:
		return children(t.Seq)
	default:
		return children(t.Alt)
	}
}

// validateMU checks an operand of meet or union: another meet/union or a
// single pattern.
func (t *Tree) validateMU(patterns int) error {
	if t.Leaf == nil && t.kind() != KindMU {
		return fmt.Errorf("%w: meet/union operand must be a pattern or a meet/union", ErrInvalidPlan)
	}
	return t.validate(patterns, false)
}

func countSet(bs ...bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

// References returns the named results the plan reads, in first-use order.
func (p *Plan) References() []string {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	add(p.QueryCorpus)
	queries := []*Query{&p.Query}
	for i := range p.Aligned {
		queries = append(queries, &p.Aligned[i].Query)
	}
	for _, q := range queries {
		for _, e := range q.Patterns {
			if e.Region != nil {
				add(e.Region.NQR)
			}
		}
	}
	return names
}
