package query

import (
	"errors"
	"testing"

	"CQPEval/internal/symtab"
)

func TestElementTypes(t *testing.T) {
	tests := []struct {
		name     string
		e        Element
		want     ElementType
		zeroWide bool
	}{
		{"MatchAll", &MatchAll{}, ElementMatchAll, false},
		{"MatchAll lookahead", &MatchAll{Lookahead: true}, ElementMatchAll, true},
		{"Pattern", &Pattern{}, ElementPattern, false},
		{"Pattern lookahead", &Pattern{Lookahead: true}, ElementPattern, true},
		{"Tag", &Tag{}, ElementTag, true},
		{"Anchor", &Anchor{}, ElementAnchor, true},
		{"Region", &Region{}, ElementRegion, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.e.Type(); got != tt.want {
				t.Errorf("Type() = %s, want %s", got, tt.want)
			}
			if got := IsZeroWidth(tt.e); got != tt.zeroWide {
				t.Errorf("IsZeroWidth() = %v, want %v", got, tt.zeroWide)
			}
		})
	}
}

func TestIsClosing(t *testing.T) {
	if !IsClosing(&Tag{IsClosing: true}) || !IsClosing(&Anchor{IsClosing: true}) {
		t.Error("closing tag and anchor must report closing")
	}
	if IsClosing(&Tag{}) || IsClosing(&Pattern{}) {
		t.Error("opening tag and pattern must not report closing")
	}
}

func TestElementLabel(t *testing.T) {
	st := symtab.New()
	a := st.Lookup("a", symtab.Defined, true)

	l, m := ElementLabel(&Pattern{Label: a, Mark: MarkTarget})
	if l != a || m != MarkTarget {
		t.Errorf("ElementLabel(Pattern) = %v, %v", l, m)
	}
	l, m = ElementLabel(&Tag{})
	if l != nil || m != NotMarked {
		t.Errorf("ElementLabel(Tag) = %v, %v", l, m)
	}
}

func TestRegion_Validate(t *testing.T) {
	q := symtab.NewStateQueue(symtab.New())
	nqr := fakeRanges{{0, 1}}

	tests := []struct {
		name string
		r    *Region
		want error
	}{
		{"enter with nqr", &Region{Op: RegionEnter, NQR: nqr, Queue: q}, nil},
		{"enter with neither", &Region{Op: RegionEnter}, ErrRegionSource},
		{"wait without queue", &Region{Op: RegionWait}, ErrRegionQueue},
		{"emit with queue", &Region{Op: RegionEmit, Queue: q}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}

	zw := &Region{Op: RegionEnter, NQR: nqr}
	if !zw.ZeroWidth() {
		t.Error("region without queue is zero-width")
	}
}

type fakeRanges [][2]int

func (f fakeRanges) Len() int               { return len(f) }
func (f fakeRanges) Range(i int) (int, int) { return f[i][0], f[i][1] }

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want Strategy
		ok   bool
	}{
		{"longest", StrategyLongest, true},
		{"shortest_match", StrategyShortest, true},
		{" Standard ", StrategyStandard, true},
		{"traditional", StrategyTraditional, true},
		{"greedy", StrategyStandard, false},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseStrategy(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStrategy(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseBoolOp(t *testing.T) {
	for _, s := range []string{"&", "|", "->", "!", "<", ">", "<=", ">=", "=", "!=", "?"} {
		op, err := ParseBoolOp(s)
		if err != nil {
			t.Fatalf("ParseBoolOp(%q): %v", s, err)
		}
		if op.String() != s {
			t.Errorf("round trip %q → %s", s, op)
		}
	}
	if op, _ := ParseBoolOp("and"); op != OpAnd {
		t.Errorf("and = %s", op)
	}
	if _, err := ParseBoolOp("<>"); err == nil {
		t.Error("expected error for unknown operator")
	}
}

func TestValidate(t *testing.T) {
	leaf := &PARef{AttrName: "word"}
	tests := []struct {
		name string
		n    Node
		ok   bool
	}{
		{"nil", nil, true},
		{"eq", &BoolNode{Op: OpEq, Left: leaf, Right: &String{Value: "x"}}, true},
		{"ex with right", &BoolNode{Op: OpEx, Left: leaf, Right: leaf}, false},
		{"not with right", &BoolNode{Op: OpNot, Left: leaf, Right: leaf}, false},
		{"and without right", &BoolNode{Op: OpAnd, Left: leaf}, false},
		{"unsorted ids", &IDList{Items: []int{3, 1}}, false},
		{"uncompiled regex", &String{Kind: StringRegex, Value: "a.*"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.n)
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, ok want %v", err, tt.ok)
			}
		})
	}
}

func TestTreeBuilders(t *testing.T) {
	tree := Concat(&Leaf{0}, &Leaf{1}, &Leaf{2})
	b, ok := tree.(*Branch)
	if !ok || b.Op != OpConcat || b.Min != RepeatNone {
		t.Fatalf("Concat = %#v", tree)
	}
	if r, ok := b.Right.(*Leaf); !ok || r.Pattern != 2 {
		t.Errorf("rightmost leaf = %#v", b.Right)
	}
	if Alt() != nil {
		t.Error("empty Alt must be nil")
	}

	cols := (&TabColumn{Pattern: 0, Next: &TabColumn{Pattern: 1}}).Columns()
	if len(cols) != 2 || cols[1].Pattern != 1 {
		t.Errorf("Columns() = %v", cols)
	}
}
