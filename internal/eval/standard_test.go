package eval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"CQPEval/internal/config"
	"CQPEval/internal/query"
	"CQPEval/internal/subcorpus"
	"CQPEval/internal/symtab"
	"CQPEval/internal/testutil"
)

func TestRunStandard_SingleToken(t *testing.T) {
	c := testutil.ThreeWords(t)
	s := newTestSession(t)
	prepare(t, s, c, []query.Element{word(t, c, "cat")}, &query.Leaf{Pattern: 0})

	res, err := s.RunStandard(context.Background(), 0, false)
	require.NoError(t, err)
	assert.False(t, res.Incomplete)
	assert.Equal(t, [][2]int{{1, 1}}, spans(res.Subcorpus))
	assert.False(t, res.Subcorpus.IsSub)
}

func TestRunStandard_Sequence(t *testing.T) {
	c := testutil.ThreeWords(t)
	s := newTestSession(t, func(o *config.Options) { o.MatchingStrategy = "traditional" })
	env := prepare(t, s, c, []query.Element{word(t, c, "the"), word(t, c, "cat")}, seq(2))
	require.Equal(t, query.StrategyTraditional, env.Strategy)

	res, err := s.RunStandard(context.Background(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 1}}, spans(res.Subcorpus))
}

func TestRunStandard_Strategies(t *testing.T) {
	c := testutil.DemoCorpus(t)
	// [word="the"] []?
	tree := query.Concat(&query.Leaf{Pattern: 0}, query.Repeat(&query.Leaf{Pattern: 1}, 0, 1))

	run := func(st query.Strategy) [][2]int {
		s := newTestSession(t)
		env := prepare(t, s, c, []query.Element{word(t, c, "the"), &query.MatchAll{}}, tree)
		env.Strategy = st
		res, err := s.RunStandard(context.Background(), 0, false)
		require.NoError(t, err)
		return spans(res.Subcorpus)
	}

	shortest := run(query.StrategyShortest)
	longest := run(query.StrategyLongest)
	assert.Equal(t, [][2]int{{0, 0}, {4, 4}, {14, 14}}, shortest)
	assert.Equal(t, [][2]int{{0, 1}, {4, 5}, {14, 15}}, longest)
	assert.Equal(t, shortest, run(query.StrategyStandard))

	require.Len(t, longest, len(shortest))
	for i := range shortest {
		assert.Equal(t, shortest[i][0], longest[i][0])
		assert.GreaterOrEqual(t, longest[i][1]-longest[i][0], shortest[i][1]-shortest[i][0])
	}
}

func TestRunStandard_SearchContext(t *testing.T) {
	c := testutil.DemoCorpus(t)
	// [lower="the"] []* [word="dog"]
	tree := query.Concat(
		&query.Leaf{Pattern: 0},
		query.Repeat(&query.Leaf{Pattern: 1}, 0, query.RepeatInf),
		&query.Leaf{Pattern: 2},
	)
	patterns := func() []query.Element {
		return []query.Element{attrIs(t, c, "lower", "the"), &query.MatchAll{}, word(t, c, "dog")}
	}

	t.Run("hard boundary", func(t *testing.T) {
		s := newTestSession(t)
		prepare(t, s, c, patterns(), tree)
		res, err := s.RunStandard(context.Background(), 0, false)
		require.NoError(t, err)
		assert.Equal(t, [][2]int{{0, 8}, {10, 15}}, spans(res.Subcorpus))
	})

	t.Run("within s", func(t *testing.T) {
		s := newTestSession(t)
		env := prepare(t, s, c, patterns(), tree)
		env.Context = query.SearchContext{Size: 1, AttrName: "s", Attr: testutil.Struc(t, c, "s")}
		res, err := s.RunStandard(context.Background(), 0, false)
		require.NoError(t, err)
		assert.Equal(t, [][2]int{{10, 15}}, spans(res.Subcorpus))
	})

	t.Run("within 3", func(t *testing.T) {
		s := newTestSession(t)
		env := prepare(t, s, c, patterns(), tree)
		env.Context = query.SearchContext{Size: 3}
		res, err := s.RunStandard(context.Background(), 0, false)
		require.NoError(t, err)
		assert.Equal(t, [][2]int{{14, 15}}, spans(res.Subcorpus))
	})
}

func TestRunStandard_EmptyStringMatch(t *testing.T) {
	c := testutil.ThreeWords(t)
	s := newTestSession(t)
	prepare(t, s, c, []query.Element{word(t, c, "cat")}, query.Repeat(&query.Leaf{Pattern: 0}, 0, 1))

	res, err := s.RunStandard(context.Background(), 0, false)
	require.ErrorIs(t, err, ErrEmptyStringMatch)
	assert.True(t, res.Incomplete)
	assert.Equal(t, 0, res.Len())
}

func TestRunStandard_InfiniteLoop(t *testing.T) {
	c := testutil.ThreeWords(t)
	s := newTestSession(t, func(o *config.Options) { o.InfiniteLoopThreshold = 5 })
	look := word(t, c, "the")
	look.Lookahead = true
	// a lookahead repeated without bound never advances
	tree := query.Concat(query.Repeat(&query.Leaf{Pattern: 0}, 1, query.RepeatInf), &query.Leaf{Pattern: 1})
	prepare(t, s, c, []query.Element{look, word(t, c, "nowhere")}, tree)

	_, err := s.RunStandard(context.Background(), 0, false)
	require.ErrorIs(t, err, ErrInfiniteLoop)
}

func TestRunStandard_Tags(t *testing.T) {
	c := testutil.DemoCorpus(t)
	sAttr := testutil.Struc(t, c, "s")

	t.Run("open", func(t *testing.T) {
		s := newTestSession(t)
		prepare(t, s, c, []query.Element{
			&query.Tag{AttrName: "s", Attr: sAttr},
			attrIs(t, c, "lower", "the"),
		}, seq(2))
		res, err := s.RunStandard(context.Background(), 0, false)
		require.NoError(t, err)
		assert.Equal(t, [][2]int{{0, 0}, {10, 10}}, spans(res.Subcorpus))
	})

	t.Run("close", func(t *testing.T) {
		s := newTestSession(t)
		prepare(t, s, c, []query.Element{
			word(t, c, "dog"),
			&query.Tag{AttrName: "s", Attr: sAttr, IsClosing: true},
		}, seq(2))
		res, err := s.RunStandard(context.Background(), 0, false)
		require.NoError(t, err)
		assert.Equal(t, [][2]int{{15, 15}}, spans(res.Subcorpus))
	})

	t.Run("value", func(t *testing.T) {
		s := newTestSession(t)
		prepare(t, s, c, []query.Element{
			&query.Tag{AttrName: "text", Attr: testutil.Struc(t, c, "text"), Value: "t2"},
			&query.MatchAll{},
		}, seq(2))
		res, err := s.RunStandard(context.Background(), 0, false)
		require.NoError(t, err)
		assert.Equal(t, [][2]int{{10, 10}}, spans(res.Subcorpus))
	})
}

func TestRunStandard_GlobalConstraint(t *testing.T) {
	c := testutil.DemoCorpus(t)
	s := newTestSession(t)
	env, err := s.Push()
	require.NoError(t, err)
	a := label(env, "a")

	env.QueryCorpus = subcorpus.Whole(c)
	env.Patterns = []query.Element{&query.MatchAll{Label: a}, attrIs(t, c, "pos", "NOUN")}
	env.Tree = seq(2)
	// :: a.pos = "ADJ"
	env.GConstraint = &query.BoolNode{
		Op:    query.OpEq,
		Left:  &query.PARef{AttrName: "pos", Attr: testutil.Attr(t, c, "pos"), Label: a},
		Right: &query.String{Kind: query.StringNormal, Value: "ADJ"},
	}
	require.NoError(t, env.Compile(100))

	res, err := s.RunStandard(context.Background(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{7, 8}, {11, 12}}, spans(res.Subcorpus))
}

func TestRunStandard_Target(t *testing.T) {
	c := testutil.DemoCorpus(t)
	s := newTestSession(t)
	noun := attrIs(t, c, "pos", "NOUN")
	noun.Mark = query.MarkTarget
	env := prepare(t, s, c, []query.Element{word(t, c, "the"), noun}, seq(2))
	env.HasTarget = true

	res, err := s.RunStandard(context.Background(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 1}, {4, 5}, {14, 15}}, spans(res.Subcorpus))
	assert.Equal(t, []int{1, 5, 15}, res.Subcorpus.Targets)
	assert.Nil(t, res.Subcorpus.Keywords)
}

func TestRunStandard_Selector(t *testing.T) {
	c := testutil.ThreeWords(t)

	t.Run("begin label", func(t *testing.T) {
		s := newTestSession(t)
		env, err := s.Push()
		require.NoError(t, err)
		b := label(env, "b")
		cat := word(t, c, "cat")
		cat.Label = b
		env.QueryCorpus = subcorpus.Whole(c)
		env.Patterns = []query.Element{word(t, c, "the"), cat}
		env.Tree = seq(2)
		env.Selector = query.MatchSelector{Begin: b}
		require.NoError(t, env.Compile(100))

		res, err := s.RunStandard(context.Background(), 0, false)
		require.NoError(t, err)
		assert.Equal(t, [][2]int{{1, 1}}, spans(res.Subcorpus))
	})

	t.Run("offset past corpus end", func(t *testing.T) {
		s := newTestSession(t)
		env := prepare(t, s, c, []query.Element{word(t, c, "the"), word(t, c, "cat")}, seq(2))
		env.Selector = query.MatchSelector{EndOffset: 5}
		res, err := s.RunStandard(context.Background(), 0, false)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Len())
	})
}

func TestRunStandard_KeepOld(t *testing.T) {
	c := testutil.DemoCorpus(t)
	s := newTestSession(t)
	env := prepare(t, s, c, []query.Element{word(t, c, "cat")}, &query.Leaf{Pattern: 0})
	sentences := subcorpus.New("Sentences", c)
	sentences.Ranges = []subcorpus.Range{{0, 5}, {6, 9}, {10, 15}}
	env.QueryCorpus = sentences

	res, err := s.RunStandard(context.Background(), 0, true)
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 5}, {10, 15}}, spans(res.Subcorpus))
	assert.Same(t, sentences, res.Subcorpus)
}

func TestRunStandard_KeepOldNeedsSubcorpus(t *testing.T) {
	c := testutil.DemoCorpus(t)
	s := newTestSession(t)
	prepare(t, s, c, []query.Element{word(t, c, "cat")}, &query.Leaf{Pattern: 0})

	res, err := s.RunStandard(context.Background(), 0, true)
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 1}, {12, 12}}, spans(res.Subcorpus))
}

func TestRunStandard_Cut(t *testing.T) {
	c := testutil.DemoCorpus(t)
	nouns := func(s *Session) {
		prepare(t, s, c, []query.Element{attrIs(t, c, "pos", "NOUN")}, &query.Leaf{Pattern: 0})
	}

	tests := []struct {
		name    string
		hardCut int
		cut     int
		want    int
	}{
		{"no cut", 0, 0, 5},
		{"cut", 0, 3, 3},
		{"hard cut caps", 2, 4, 2},
		{"hard cut applies without cut", 2, 0, 2},
		{"cut below hard cut", 4, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, func(o *config.Options) { o.HardCut = tt.hardCut })
			nouns(s)
			res, err := s.RunStandard(context.Background(), tt.cut, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Len())
			assert.Equal(t, 1, res.Subcorpus.Ranges[0].Start)
		})
	}
}

func TestRunStandard_NamedRegion(t *testing.T) {
	c := testutil.DemoCorpus(t)
	s := newTestSession(t)
	env, err := s.Push()
	require.NoError(t, err)

	nqr := subcorpus.New("NP", c)
	nqr.Ranges = []subcorpus.Range{{4, 5}, {10, 12}}
	q := symtab.NewStateQueue(env.Labels)
	env.QueryCorpus = subcorpus.Whole(c)
	env.Patterns = []query.Element{
		&query.Region{Op: query.RegionEnter, Queue: q, NQRName: "NP", NQR: nqr, EndTarget: query.MarkTarget},
		&query.Region{Op: query.RegionWait, Queue: q},
		&query.Region{Op: query.RegionEmit, Queue: q},
	}
	env.Tree = query.Concat(
		&query.Leaf{Pattern: 0},
		query.Repeat(&query.Leaf{Pattern: 1}, 0, query.RepeatInf),
		&query.Leaf{Pattern: 2},
	)
	env.HasTarget = true
	require.NoError(t, env.Validate())
	require.NoError(t, env.Compile(100))

	res, err := s.RunStandard(context.Background(), 0, false)
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{4, 5}, {10, 12}}, spans(res.Subcorpus))
	assert.Equal(t, []int{5, 12}, res.Subcorpus.Targets)
}

func TestRunStandard_Alignment(t *testing.T) {
	en, de, _ := testutil.ParallelCorpora(t)
	align, err := en.Alignment("de")
	require.NoError(t, err)

	tests := []struct {
		name    string
		german  string
		negated bool
		want    [][2]int
	}{
		{"aligned match", "Katze", false, [][2]int{{1, 1}}},
		{"no aligned match", "Hund", false, [][2]int{}},
		{"negated without aligned match", "Hund", true, [][2]int{{1, 1}}},
		{"negated with aligned match", "Katze", true, [][2]int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t)
			prepare(t, s, en, []query.Element{word(t, en, "cat")}, &query.Leaf{Pattern: 0})
			aenv := prepare(t, s, de, []query.Element{word(t, de, tt.german)}, &query.Leaf{Pattern: 0})
			aenv.Aligned = align
			aenv.Negated = tt.negated

			res, err := s.RunStandard(context.Background(), 0, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, spans(res.Subcorpus))
		})
	}
}

func TestRunStandard_Interrupted(t *testing.T) {
	c := testutil.DemoCorpus(t)

	t.Run("interrupter", func(t *testing.T) {
		s := newTestSession(t, func(o *config.Options) { o.InterruptInterval = 1 })
		m := &mockInterrupter{}
		m.On("Interrupted").Return(true).Once()
		s.SetInterrupter(m)
		prepare(t, s, c, []query.Element{attrIs(t, c, "pos", "NOUN")}, &query.Leaf{Pattern: 0})

		res, err := s.RunStandard(context.Background(), 0, false)
		require.ErrorIs(t, err, ErrInterrupted)
		assert.True(t, res.Incomplete)
		assert.Less(t, res.Len(), 5)
		m.AssertExpectations(t)
	})

	t.Run("context", func(t *testing.T) {
		s := newTestSession(t, func(o *config.Options) { o.InterruptInterval = 1 })
		prepare(t, s, c, []query.Element{attrIs(t, c, "pos", "NOUN")}, &query.Leaf{Pattern: 0})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res, err := s.RunStandard(ctx, 0, false)
		require.ErrorIs(t, err, ErrInterrupted)
		assert.True(t, errors.Is(err, context.Canceled))
		assert.True(t, res.Incomplete)
	})
}

func TestRunStandard_Progress(t *testing.T) {
	c := testutil.DemoCorpus(t)
	s := newTestSession(t)
	p := &mockProgress{}
	p.On("Message", 1, 1, "preparing").Once()
	p.On("Percentage", mock.AnythingOfType("int"))
	p.On("Clear").Once()
	s.SetProgress(p)
	prepare(t, s, c, []query.Element{attrIs(t, c, "pos", "NOUN")}, &query.Leaf{Pattern: 0})

	_, err := s.RunStandard(context.Background(), 0, false)
	require.NoError(t, err)
	p.AssertExpectations(t)
	p.AssertCalled(t, "Percentage", 0)
}

func TestRunStandard_IllegalComparison(t *testing.T) {
	c := testutil.DemoCorpus(t)
	s := newTestSession(t)
	cmp := attrEq(t, c, "word", "cat")
	cmp.Op = query.OpLt
	prepare(t, s, c, []query.Element{&query.Pattern{Constraint: cmp}}, &query.Leaf{Pattern: 0})

	res, err := s.RunStandard(context.Background(), 0, false)
	require.ErrorIs(t, err, ErrInitialMatchlist)
	require.ErrorIs(t, err, ErrIllegalComparison)
	assert.Equal(t, 0, res.Len())
}

func TestRunStandard_Preconditions(t *testing.T) {
	c := testutil.DemoCorpus(t)

	t.Run("no environment", func(t *testing.T) {
		_, err := newTestSession(t).RunStandard(context.Background(), 0, false)
		require.ErrorIs(t, err, ErrNoEnvironment)
	})

	t.Run("meet/union tree", func(t *testing.T) {
		s := newTestSession(t)
		prepare(t, s, c, []query.Element{word(t, c, "cat")}, &query.MeetUnion{
			Op: query.OpUnion, Left: &query.Leaf{Pattern: 0}, Right: &query.Leaf{Pattern: 0},
		})
		_, err := s.RunStandard(context.Background(), 0, false)
		require.ErrorIs(t, err, ErrQueryKind)
	})
}
