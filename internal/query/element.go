package query

import (
	"errors"
	"fmt"

	"CQPEval/internal/corpus"
	"CQPEval/internal/symtab"
)

// Structural is the region attribute handle used by compiled queries.
type Structural = corpus.Structural

// LabelRef is a resolved label of a symbol table.
type LabelRef = symtab.Label

// ElementType identifies the variant of a pattern element.
type ElementType int

const (
	ElementMatchAll ElementType = iota
	ElementPattern
	ElementTag
	ElementAnchor
	ElementRegion
)

func (t ElementType) String() string {
	switch t {
	case ElementMatchAll:
		return "MatchAll"
	case ElementPattern:
		return "Pattern"
	case ElementTag:
		return "Tag"
	case ElementAnchor:
		return "Anchor"
	case ElementRegion:
		return "Region"
	default:
		return fmt.Sprintf("element(%d)", int(t))
	}
}

// Element is one symbol of the token-level regex alphabet.
type Element interface {
	Type() ElementType
}

var (
	ErrRegionSource = errors.New("region element needs exactly one of attribute or named result")
	ErrRegionQueue  = errors.New("region wait/emit element has no queue")
)

// MatchAll matches any single token.
type MatchAll struct {
	Label     *LabelRef
	Mark      Mark
	Lookahead bool
}

func (e *MatchAll) Type() ElementType { return ElementMatchAll }

// Pattern matches a token satisfying Constraint.
type Pattern struct {
	Constraint Node
	Label      *LabelRef
	Mark       Mark
	Lookahead  bool
}

func (e *Pattern) Type() ElementType { return ElementPattern }

// Tag matches the start (or, closing, the end) of a region of Attr.
// Value constrains the region annotation: a literal unless Regex is set.
type Tag struct {
	AttrName  string
	Attr      Structural
	IsClosing bool
	Value     string
	Regex     *corpus.Regex
	Flags     corpus.RegexFlags
	Negated   bool
	// RightBoundary is the region-data label that records the end of the
	// region in StrictRegions mode.
	RightBoundary *LabelRef
}

func (e *Tag) Type() ElementType { return ElementTag }

// HasConstraint reports whether the tag tests the region value.
func (e *Tag) HasConstraint() bool {
	return e.Regex != nil || e.Value != ""
}

// AnchorField names a boundary of the current outer match.
type AnchorField int

const (
	AnchorMatch AnchorField = iota
	AnchorMatchEnd
	AnchorTarget
	AnchorKeyword
)

func (f AnchorField) String() string {
	switch f {
	case AnchorMatch:
		return "match"
	case AnchorMatchEnd:
		return "matchend"
	case AnchorTarget:
		return "target"
	case AnchorKeyword:
		return "keyword"
	default:
		return fmt.Sprintf("anchor(%d)", int(f))
	}
}

// ParseAnchorField maps an anchor name to its field.
func ParseAnchorField(s string) (AnchorField, error) {
	for f := AnchorMatch; f <= AnchorKeyword; f++ {
		if f.String() == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown anchor %q", s)
}

// Anchor matches the position of one anchor of the current outer match;
// a closing anchor matches the position after it.
type Anchor struct {
	Field     AnchorField
	IsClosing bool
}

func (e *Anchor) Type() ElementType { return ElementAnchor }

// RegionOp is the role of a Region element in the ENTER/WAIT/EMIT triple.
type RegionOp int

const (
	RegionEnter RegionOp = iota
	RegionWait
	RegionEmit
)

func (op RegionOp) String() string {
	switch op {
	case RegionEnter:
		return "enter"
	case RegionWait:
		return "wait"
	case RegionEmit:
		return "emit"
	default:
		return fmt.Sprintf("regionop(%d)", int(op))
	}
}

// Ranges is the view of a named query result a Region element needs.
type Ranges interface {
	Len() int
	Range(i int) (start, end int)
}

// Region matches a whole region of Attr or a whole range of a named query
// result. The ENTER element owns Queue; WAIT and EMIT share the pointer
// without owning it. A zero-width region has a nil Queue and only an
// ENTER element.
type Region struct {
	Op    RegionOp
	Queue *symtab.StateQueue

	AttrName string
	Attr     Structural
	NQRName  string
	NQR      Ranges

	StartLabel  *LabelRef
	EndLabel    *LabelRef
	StartTarget Mark
	EndTarget   Mark
}

func (e *Region) Type() ElementType { return ElementRegion }

// ZeroWidth reports whether the region matches without consuming tokens.
func (e *Region) ZeroWidth() bool {
	return e.Queue == nil
}

// Validate checks the source invariant of ENTER and the queue of WAIT/EMIT.
func (e *Region) Validate() error {
	switch e.Op {
	case RegionEnter:
		if (e.Attr == nil) == (e.NQR == nil) {
			return ErrRegionSource
		}
	case RegionWait, RegionEmit:
		if e.Queue == nil {
			return fmt.Errorf("%s: %w", e.Op, ErrRegionQueue)
		}
	}
	return nil
}

// Clear drops the waiting states of an owned queue.
func (e *Region) Clear() {
	if e.Op == RegionEnter {
		e.Queue.Clear()
	}
}

// ElementLabel returns the label and mark an element binds on success.
func ElementLabel(e Element) (*LabelRef, Mark) {
	switch v := e.(type) {
	case *MatchAll:
		return v.Label, v.Mark
	case *Pattern:
		return v.Label, v.Mark
	default:
		return nil, NotMarked
	}
}

// IsLookahead reports whether e is a lookahead MatchAll or Pattern.
func IsLookahead(e Element) bool {
	switch v := e.(type) {
	case *MatchAll:
		return v.Lookahead
	case *Pattern:
		return v.Lookahead
	default:
		return false
	}
}

// IsZeroWidth reports whether e matches without consuming a token.
func IsZeroWidth(e Element) bool {
	switch e.Type() {
	case ElementTag, ElementAnchor, ElementRegion:
		return true
	default:
		return IsLookahead(e)
	}
}

// IsClosing reports whether e is a closing tag or anchor; those test the
// position before the current one.
func IsClosing(e Element) bool {
	switch v := e.(type) {
	case *Tag:
		return v.IsClosing
	case *Anchor:
		return v.IsClosing
	default:
		return false
	}
}
