package benchmark

import (
	"testing"

	"CQPEval/internal/automaton"
	"CQPEval/internal/query"
)

func leaf(i int) query.EvalTree { return &query.Leaf{Pattern: i} }

func BenchmarkAutomaton_Compile_Sequence(b *testing.B) {
	tree := query.Concat(leaf(0), leaf(1), leaf(2), leaf(3))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := automaton.Compile(tree, 4, 10_000); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAutomaton_Compile_Repeat(b *testing.B) {
	// "the" []{0,5} ("dog" | "cat")
	tree := query.Concat(leaf(0), query.Repeat(leaf(1), 0, 5), query.Alt(leaf(2), leaf(3)))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := automaton.Compile(tree, 4, 10_000); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAutomaton_Compile_Kleene(b *testing.B) {
	// (a | b)* a (a | b)(a | b)(a | b): the subset construction blows up.
	ab := func() query.EvalTree { return query.Alt(leaf(0), leaf(1)) }
	tree := query.Concat(query.Repeat(ab(), 0, query.RepeatInf), leaf(0), ab(), ab(), ab())
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := automaton.Compile(tree, 2, 10_000); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAutomaton_Run(b *testing.B) {
	tree := query.Concat(leaf(0), query.Repeat(leaf(1), 0, 5), query.Alt(leaf(2), leaf(3)))
	dfa, err := automaton.Compile(tree, 4, 10_000)
	if err != nil {
		b.Fatal(err)
	}
	input := []int{0, 1, 1, 1, 2}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		state := dfa.Start()
		for _, sym := range input {
			state = dfa.Step(state, sym)
		}
		_ = dfa.IsAccept(state)
	}
}
