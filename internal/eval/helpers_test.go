package eval

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"CQPEval/internal/config"
	"CQPEval/internal/corpus"
	"CQPEval/internal/query"
	"CQPEval/internal/subcorpus"
	"CQPEval/internal/symtab"
	"CQPEval/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(t *testing.T, tweak ...func(*config.Options)) *Session {
	t.Helper()
	opts := config.DefaultOptions()
	for _, f := range tweak {
		f(&opts)
	}
	require.NoError(t, opts.Validate())
	return NewSession(opts, quietLogger())
}

// prepare opens a scope over the whole of c holding the given query.
func prepare(t *testing.T, s *Session, c corpus.Corpus, patterns []query.Element, tree query.EvalTree) *Environment {
	t.Helper()
	env, err := s.Push()
	require.NoError(t, err)
	env.QueryCorpus = subcorpus.Whole(c)
	env.Patterns = patterns
	env.Tree = tree
	require.NoError(t, env.Validate())
	require.NoError(t, env.Compile(s.Options().MaxDFAStates))
	return env
}

// testEvaluator returns an evaluator over c for unit tests of the
// constraint machinery.
func testEvaluator(t *testing.T, c corpus.Corpus) (*Session, *evaluator) {
	t.Helper()
	s := newTestSession(t)
	env, err := s.Push()
	require.NoError(t, err)
	env.QueryCorpus = subcorpus.Whole(c)
	return s, s.evaluator(s.newRun(context.Background(), "test"), env)
}

func attrEq(t *testing.T, c corpus.Corpus, attr, value string) *query.BoolNode {
	t.Helper()
	a := testutil.Attr(t, c, attr)
	return &query.BoolNode{
		Op:    query.OpEq,
		Left:  &query.PARef{AttrName: attr, Attr: a},
		Right: &query.String{Kind: query.StringNormal, Value: value},
	}
}

func attrIs(t *testing.T, c corpus.Corpus, attr, value string) *query.Pattern {
	t.Helper()
	return &query.Pattern{Constraint: attrEq(t, c, attr, value)}
}

func word(t *testing.T, c corpus.Corpus, value string) *query.Pattern {
	t.Helper()
	return attrIs(t, c, "word", value)
}

func leaves(n int) []query.EvalTree {
	out := make([]query.EvalTree, n)
	for i := range out {
		out[i] = &query.Leaf{Pattern: i}
	}
	return out
}

func seq(n int) query.EvalTree {
	return query.Concat(leaves(n)...)
}

func spans(sc *subcorpus.Subcorpus) [][2]int {
	out := make([][2]int, 0, sc.Len())
	for _, r := range sc.Ranges {
		out = append(out, [2]int{r.Start, r.End})
	}
	return out
}

func label(env *Environment, name string) *symtab.Label {
	return env.Labels.Lookup(name, symtab.Defined|symtab.Used, true)
}

type mockProgress struct {
	mock.Mock
}

func (m *mockProgress) Message(current, total int, msg string) { m.Called(current, total, msg) }
func (m *mockProgress) Percentage(pct int)                     { m.Called(pct) }
func (m *mockProgress) Clear()                                 { m.Called() }

type mockInterrupter struct {
	mock.Mock
}

func (m *mockInterrupter) Interrupted() bool {
	return m.Called().Bool(0)
}
