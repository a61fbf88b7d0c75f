package automaton

import (
	"errors"
	"testing"

	"CQPEval/internal/query"
)

func leaf(p int) query.EvalTree { return &query.Leaf{Pattern: p} }

// accepts runs the DFA over a sequence of pattern indices.
func accepts(d *DFA, input ...int) bool {
	s := d.Start()
	for _, p := range input {
		s = d.Step(s, p)
		if !d.CanMatch(s) {
			return false
		}
	}
	return d.IsAccept(s)
}

func TestCompile_Concat(t *testing.T) {
	d, err := Compile(query.Concat(leaf(0), leaf(1)), 2, 0)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	tests := []struct {
		input []int
		want  bool
	}{
		{[]int{0, 1}, true},
		{[]int{0}, false},
		{[]int{1, 0}, false},
		{[]int{0, 1, 1}, false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := accepts(d, tt.input...); got != tt.want {
			t.Errorf("accepts(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
	if d.Final[0] {
		t.Error("initial state must not be final")
	}
}

func TestCompile_Disjunction(t *testing.T) {
	d, err := Compile(query.Concat(query.Alt(leaf(0), leaf(1)), leaf(2)), 3, 0)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !accepts(d, 0, 2) || !accepts(d, 1, 2) {
		t.Error("expected both alternatives to be accepted")
	}
	if accepts(d, 2) || accepts(d, 0, 1, 2) {
		t.Error("unexpected acceptance")
	}
	got := d.InitialInputs()
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("InitialInputs = %v, want [0 1]", got)
	}
}

func TestCompile_Repeat(t *testing.T) {
	tests := []struct {
		name     string
		min, max int
		accept   []int
		reject   []int
	}{
		{"optional", 0, 1, []int{0, 1}, []int{2}},
		{"star", 0, query.RepeatInf, []int{0, 1, 2, 7}, nil},
		{"plus", 1, query.RepeatInf, []int{1, 2, 5}, []int{0}},
		{"exact", 2, 2, []int{2}, []int{1, 3}},
		{"range", 1, 3, []int{1, 2, 3}, []int{0, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// [1] a{min,max} [2]
			tree := query.Concat(leaf(1), query.Repeat(leaf(0), tt.min, tt.max), leaf(2))
			d, err := Compile(tree, 3, 0)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			word := func(n int) []int {
				w := []int{1}
				for i := 0; i < n; i++ {
					w = append(w, 0)
				}
				return append(w, 2)
			}
			for _, n := range tt.accept {
				if !accepts(d, word(n)...) {
					t.Errorf("%d repetitions rejected", n)
				}
			}
			for _, n := range tt.reject {
				if accepts(d, word(n)...) {
					t.Errorf("%d repetitions accepted", n)
				}
			}
		})
	}
}

func TestCompile_EmptyStringMatch(t *testing.T) {
	d, err := Compile(query.Repeat(leaf(0), 0, query.RepeatInf), 1, 0)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !d.Final[0] {
		t.Error("a* must accept the empty word")
	}
}

func TestCompile_ErrorState(t *testing.T) {
	d, err := Compile(leaf(0), 2, 0)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if d.EState != State(d.MaxStates) {
		t.Errorf("EState = %d, want %d", d.EState, d.MaxStates)
	}
	if got := d.Step(d.Start(), 1); got != d.EState {
		t.Errorf("Step on missing transition = %d, want error state", got)
	}
	if got := d.Step(d.EState, 0); got != d.EState {
		t.Errorf("error state must be absorbing, got %d", got)
	}
	if got := d.Step(d.Start(), 9); got != d.EState {
		t.Errorf("out-of-range input = %d, want error state", got)
	}
	if d.CanMatch(d.EState) || d.IsAccept(d.EState) {
		t.Error("error state must be dead")
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		tree query.EvalTree
		want error
	}{
		{"pattern index", leaf(3), ErrPatternIndex},
		{"negative index", leaf(-1), ErrPatternIndex},
		{"bad bounds", query.Repeat(leaf(0), 3, 1), ErrBadRepetition},
		{"meet", &query.MeetUnion{Left: leaf(0), Right: leaf(0)}, ErrNotRegex},
		{"tabular", &query.TabColumn{Pattern: 0}, ErrNotRegex},
		{"nil", nil, ErrNotRegex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.tree, 2, 0)
			if !errors.Is(err, tt.want) {
				t.Errorf("Compile error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCompile_StateLimit(t *testing.T) {
	tree := query.Concat(leaf(0), leaf(0), leaf(0), leaf(0))
	_, err := Compile(tree, 1, 3)
	if !errors.Is(err, ErrDFAStateLimitExceeded) {
		t.Errorf("Compile error = %v, want ErrDFAStateLimitExceeded", err)
	}
	if _, err := Compile(tree, 1, 5); err != nil {
		t.Errorf("Compile with enough states: %v", err)
	}
}

func TestDFA_String(t *testing.T) {
	d, err := Compile(query.Concat(leaf(0), leaf(1)), 2, 0)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	s := d.String()
	if s == "" {
		t.Fatal("empty rendering")
	}
	want := "DFA: 3 states, 2 inputs\n  s0: 0->s1\n  s1: 1->s2\n* s2:\n"
	if s != want {
		t.Errorf("String() =\n%s\nwant\n%s", s, want)
	}
}
