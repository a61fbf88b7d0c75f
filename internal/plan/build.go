package plan

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"

	"CQPEval/internal/corpus"
	"CQPEval/internal/eval"
	"CQPEval/internal/query"
	"CQPEval/internal/subcorpus"
	"CQPEval/internal/symtab"
)

// Prepare resets the session and opens the scopes of p: the main query
// over p.Corpus and one scope per alignment constraint. Attribute, label,
// function and named-result references are resolved against the corpora
// of reg and the results stored in the session.
func Prepare(s *eval.Session, reg corpus.Registry, p *Plan) error {
	logger := s.Logger()
	s.Reset()

	c, err := reg.Corpus(p.Corpus)
	if err != nil {
		return fmt.Errorf("%w: corpus %q: %w", ErrInvalidPlan, p.Corpus, err)
	}
	qc := subcorpus.Whole(c)
	if p.QueryCorpus != "" {
		sc, err := s.Result(p.QueryCorpus)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPlan, err)
		}
		if sc.CorpusName != c.Name() {
			return fmt.Errorf("%w: %q is a result over %s, not %s", ErrInvalidPlan, p.QueryCorpus, sc.CorpusName, c.Name())
		}
		qc = sc.Clone()
	}

	env, err := newBuilder(s, c, logger).scope(&p.Query, qc)
	if err != nil {
		s.Reset()
		return err
	}
	if p.Strategy != "" {
		st, err := query.ParseStrategy(p.Strategy)
		if err != nil {
			s.Reset()
			return fmt.Errorf("%w: %w", ErrInvalidPlan, err)
		}
		env.Strategy = st
	}

	for i, a := range p.Aligned {
		if err := prepareAligned(s, reg, c, &p.Aligned[i], logger); err != nil {
			s.Reset()
			return fmt.Errorf("aligned query %d (%s): %w", i, a.Alignment, err)
		}
	}
	return nil
}

func prepareAligned(s *eval.Session, reg corpus.Registry, c corpus.Corpus, a *Aligned, logger *slog.Logger) error {
	al, err := c.Alignment(a.Alignment)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	target, err := reg.Corpus(al.TargetCorpus())
	if err != nil {
		return fmt.Errorf("%w: aligned corpus: %w", ErrInvalidPlan, err)
	}
	env, err := newBuilder(s, target, logger).scope(&a.Query, subcorpus.Whole(target))
	if err != nil {
		return err
	}
	env.Aligned = al
	env.Negated = a.Not
	return nil
}

// builder compiles the query of one scope.
type builder struct {
	session *eval.Session
	c       corpus.Corpus
	logger  *slog.Logger
	env     *eval.Environment
	queues  map[string]*symtab.StateQueue
}

func newBuilder(s *eval.Session, c corpus.Corpus, logger *slog.Logger) *builder {
	return &builder{session: s, c: c, logger: logger, queues: make(map[string]*symtab.StateQueue)}
}

func (b *builder) scope(q *Query, qc *subcorpus.Subcorpus) (*eval.Environment, error) {
	env, err := b.session.Push()
	if err != nil {
		return nil, err
	}
	b.env = env
	env.QueryCorpus = qc

	env.Patterns = make([]query.Element, len(q.Patterns))
	for i := range q.Patterns {
		e, err := b.element(&q.Patterns[i])
		if err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i, err)
		}
		env.Patterns[i] = e
	}
	for _, e := range env.Patterns {
		switch v := e.(type) {
		case *query.Pattern:
			env.HasTarget = env.HasTarget || v.Mark == query.MarkTarget
			env.HasKeyword = env.HasKeyword || v.Mark == query.MarkKeyword
		case *query.MatchAll:
			env.HasTarget = env.HasTarget || v.Mark == query.MarkTarget
			env.HasKeyword = env.HasKeyword || v.Mark == query.MarkKeyword
		case *query.Region:
			for _, m := range []query.Mark{v.StartTarget, v.EndTarget} {
				env.HasTarget = env.HasTarget || m == query.MarkTarget
				env.HasKeyword = env.HasKeyword || m == query.MarkKeyword
			}
		}
	}

	if q.Global != nil {
		g, err := b.node(q.Global)
		if err != nil {
			return nil, fmt.Errorf("global constraint: %w", err)
		}
		env.GConstraint = query.Simplify(g)
	}
	if q.Within != nil {
		if err := b.within(q.Within); err != nil {
			return nil, err
		}
	}
	if q.Selector != nil {
		env.Selector = query.MatchSelector{
			Begin:       b.use(q.Selector.Begin),
			BeginOffset: q.Selector.BeginOffset,
			End:         b.use(q.Selector.End),
			EndOffset:   q.Selector.EndOffset,
		}
	}

	tree, err := b.tree(&q.Tree)
	if err != nil {
		return nil, err
	}
	env.Tree = tree
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	if err := env.Compile(b.session.Options().MaxDFAStates); err != nil {
		return nil, err
	}
	if !env.Labels.CheckLabels(b.logger) {
		return nil, ErrLabels
	}
	return env, nil
}

func (b *builder) within(w *Within) error {
	ctx := query.SearchContext{Size: w.Size}
	if w.Attr != "" {
		s, err := b.c.Structural(w.Attr)
		if err != nil {
			return fmt.Errorf("%w: within: %w", ErrInvalidPlan, err)
		}
		ctx.AttrName, ctx.Attr = w.Attr, s
	}
	if ctx.Size < 0 {
		return fmt.Errorf("%w: within %d", ErrInvalidPlan, w.Size)
	}
	b.env.Context = ctx
	return nil
}

// define returns the label set by an element, creating it as needed.
func (b *builder) define(name string) *symtab.Label {
	if name == "" {
		return nil
	}
	return b.env.Labels.Lookup(name, symtab.Defined, true)
}

// use returns the label read by a constraint or selector.
func (b *builder) use(name string) *symtab.Label {
	if name == "" {
		return nil
	}
	return b.env.Labels.Lookup(name, symtab.Used, true)
}

func parseMark(s string) (query.Mark, error) {
	switch s {
	case "":
		return query.NotMarked, nil
	case "target":
		return query.MarkTarget, nil
	case "keyword":
		return query.MarkKeyword, nil
	}
	return query.NotMarked, fmt.Errorf("%w: unknown mark %q", ErrInvalidPlan, s)
}

func (b *builder) element(e *Element) (query.Element, error) {
	switch {
	case e.Token != nil:
		return b.token(e.Token)
	case e.Tag != nil:
		return b.tag(e.Tag)
	case e.Anchor != nil:
		f, err := query.ParseAnchorField(e.Anchor.Field)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
		}
		return &query.Anchor{Field: f, IsClosing: e.Anchor.Closing}, nil
	default:
		return b.region(e.Region)
	}
}

func (b *builder) token(t *Token) (query.Element, error) {
	mark, err := parseMark(t.Mark)
	if err != nil {
		return nil, err
	}
	var constraint query.Node
	if t.Value != "" {
		name := b.session.Options().DefaultAttribute
		a, err := b.c.Positional(name)
		if err != nil {
			return nil, fmt.Errorf("%w: default attribute: %w", ErrInvalidPlan, err)
		}
		re, err := b.regex(t.Value, t.Flags)
		if err != nil {
			return nil, err
		}
		constraint = &query.BoolNode{Op: query.OpEq, Left: &query.PARef{AttrName: name, Attr: a}, Right: re}
	}
	if t.Where != nil {
		n, err := b.node(t.Where)
		if err != nil {
			return nil, err
		}
		if constraint == nil {
			constraint = n
		} else {
			constraint = &query.BoolNode{Op: query.OpAnd, Left: constraint, Right: n}
		}
	}
	label := b.define(t.Label)
	if constraint == nil {
		return &query.MatchAll{Label: label, Mark: mark, Lookahead: t.Lookahead}, nil
	}
	return &query.Pattern{Constraint: query.Simplify(constraint), Label: label, Mark: mark, Lookahead: t.Lookahead}, nil
}

func (b *builder) tag(t *TagSpec) (query.Element, error) {
	s, err := b.c.Structural(t.Attr)
	if err != nil {
		return nil, fmt.Errorf("%w: tag: %w", ErrInvalidPlan, err)
	}
	tag := &query.Tag{AttrName: t.Attr, Attr: s, IsClosing: t.Closing, Value: t.Value, Negated: t.Not}
	if t.Flags != "" {
		if tag.Flags, err = corpus.ParseRegexFlags(t.Flags); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
		}
	}
	if t.Regex != "" {
		if tag.Regex, err = corpus.CompileRegex(t.Regex, tag.Flags); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
		}
	}
	if b.session.Options().StrictRegions {
		tag.RightBoundary = b.env.Labels.Lookup(t.Attr, symtab.RegionData|symtab.Defined|symtab.Used, true)
	}
	return tag, nil
}

func (b *builder) region(r *RegionSpec) (query.Element, error) {
	reg := &query.Region{}
	switch r.Op {
	case "enter":
		reg.Op = query.RegionEnter
	case "wait":
		reg.Op = query.RegionWait
	case "emit":
		reg.Op = query.RegionEmit
	default:
		return nil, fmt.Errorf("%w: region op %q", ErrInvalidPlan, r.Op)
	}
	if r.Queue != "" {
		q, ok := b.queues[r.Queue]
		if !ok {
			q = symtab.NewStateQueue(b.env.Labels)
			b.queues[r.Queue] = q
		}
		reg.Queue = q
	}
	if reg.Op != query.RegionEnter {
		return reg, nil
	}

	switch {
	case r.Attr != "" && r.NQR != "":
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, query.ErrRegionSource)
	case r.Attr != "":
		s, err := b.c.Structural(r.Attr)
		if err != nil {
			return nil, fmt.Errorf("%w: region: %w", ErrInvalidPlan, err)
		}
		reg.AttrName, reg.Attr = r.Attr, s
	case r.NQR != "":
		sc, err := b.session.Result(r.NQR)
		if err != nil {
			return nil, fmt.Errorf("%w: region: %w", ErrInvalidPlan, err)
		}
		reg.NQRName, reg.NQR = r.NQR, sc
	}
	reg.StartLabel = b.define(r.StartLabel)
	reg.EndLabel = b.define(r.EndLabel)
	var err error
	if reg.StartTarget, err = parseMark(r.StartMark); err != nil {
		return nil, err
	}
	if reg.EndTarget, err = parseMark(r.EndMark); err != nil {
		return nil, err
	}
	return reg, nil
}

func (b *builder) tree(t *Tree) (query.EvalTree, error) {
	switch {
	case t.Leaf != nil:
		return &query.Leaf{Pattern: *t.Leaf}, nil
	case len(t.Seq) > 0:
		ts, err := b.trees(t.Seq)
		if err != nil {
			return nil, err
		}
		return query.Concat(ts...), nil
	case len(t.Alt) > 0:
		ts, err := b.trees(t.Alt)
		if err != nil {
			return nil, err
		}
		return query.Alt(ts...), nil
	case t.Repeat != nil:
		inner, err := b.tree(&t.Repeat.Tree)
		if err != nil {
			return nil, err
		}
		return query.Repeat(inner, t.Repeat.Min, maxOrInf(t.Repeat.Max)), nil
	case t.Meet != nil:
		return b.meet(t.Meet)
	case len(t.Union) > 0:
		ts, err := b.trees(t.Union)
		if err != nil {
			return nil, err
		}
		acc := ts[0]
		for _, r := range ts[1:] {
			acc = &query.MeetUnion{Op: query.OpUnion, Left: acc, Right: r}
		}
		return acc, nil
	case len(t.Tab) > 0:
		var head, prev *query.TabColumn
		for _, c := range t.Tab {
			col := &query.TabColumn{Pattern: c.Pattern, Min: c.Min, Max: maxOrInf(c.Max)}
			if prev == nil {
				head = col
			} else {
				prev.Next = col
			}
			prev = col
		}
		return head, nil
	}
	return nil, fmt.Errorf("%w: empty tree node", ErrInvalidPlan)
}

func (b *builder) trees(ts []Tree) ([]query.EvalTree, error) {
	out := make([]query.EvalTree, len(ts))
	for i := range ts {
		t, err := b.tree(&ts[i])
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func (b *builder) meet(m *MeetSpec) (query.EvalTree, error) {
	left, err := b.tree(&m.Left)
	if err != nil {
		return nil, err
	}
	right, err := b.tree(&m.Right)
	if err != nil {
		return nil, err
	}
	mu := &query.MeetUnion{Op: query.OpMeet, Left: left, Right: right, Negated: m.Not}
	if m.Within != "" {
		s, err := b.c.Structural(m.Within)
		if err != nil {
			return nil, fmt.Errorf("%w: meet: %w", ErrInvalidPlan, err)
		}
		mu.StrucName, mu.Struc = m.Within, s
	} else {
		if m.Window[0] > m.Window[1] {
			return nil, fmt.Errorf("%w: meet window %d..%d", ErrInvalidPlan, m.Window[0], m.Window[1])
		}
		mu.LeftWindow, mu.RightWindow = m.Window[0], m.Window[1]
	}
	return mu, nil
}

func maxOrInf(p *int) int {
	if p == nil {
		return query.RepeatInf
	}
	return *p
}

func (b *builder) node(n *Node) (query.Node, error) {
	if n == nil {
		return nil, fmt.Errorf("%w: empty constraint", ErrInvalidPlan)
	}
	set := countSet(len(n.And) > 0, len(n.Or) > 0, len(n.Implies) > 0, n.Not != nil, n.Cmp != nil,
		n.Exists != nil, n.Const != nil, n.Start != "", n.End != "", n.In != nil)
	if set != 1 {
		return nil, fmt.Errorf("%w: constraint node sets %d kinds", ErrInvalidPlan, set)
	}

	switch {
	case len(n.And) > 0:
		return b.connective(query.OpAnd, n.And)
	case len(n.Or) > 0:
		return b.connective(query.OpOr, n.Or)
	case len(n.Implies) > 0:
		if len(n.Implies) != 2 {
			return nil, fmt.Errorf("%w: implication needs two operands", ErrInvalidPlan)
		}
		return b.connective(query.OpImplies, n.Implies)
	case n.Not != nil:
		inner, err := b.node(n.Not)
		if err != nil {
			return nil, err
		}
		return &query.BoolNode{Op: query.OpNot, Left: inner}, nil
	case n.Cmp != nil:
		return b.comparison(n.Cmp)
	case n.Exists != nil:
		v, err := b.operand(n.Exists)
		if err != nil {
			return nil, err
		}
		return &query.BoolNode{Op: query.OpEx, Left: v}, nil
	case n.Const != nil:
		return &query.Const{Val: *n.Const}, nil
	case n.Start != "" || n.End != "":
		name := n.Start + n.End
		s, err := b.c.Structural(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
		}
		return &query.SBound{AttrName: name, Attr: s, IsClosing: n.End != ""}, nil
	default:
		return b.idSet(n.In)
	}
}

func (b *builder) connective(op query.BoolOp, ns []Node) (query.Node, error) {
	var acc query.Node
	for i := range ns {
		n, err := b.node(&ns[i])
		if err != nil {
			return nil, err
		}
		if acc == nil {
			acc = n
			continue
		}
		acc = &query.BoolNode{Op: op, Left: acc, Right: n}
	}
	return acc, nil
}

func (b *builder) comparison(c *Comparison) (query.Node, error) {
	op, err := query.ParseBoolOp(c.Op)
	if err != nil || !op.IsComparison() || op.IsUnary() {
		return nil, fmt.Errorf("%w: comparison operator %q", ErrInvalidPlan, c.Op)
	}
	left, err := b.operand(&c.Left)
	if err != nil {
		return nil, err
	}
	right, err := b.operand(&c.Right)
	if err != nil {
		return nil, err
	}
	return &query.BoolNode{Op: op, Left: left, Right: right}, nil
}

func (b *builder) operand(o *Operand) (query.Node, error) {
	switch {
	case o.Func != "":
		return b.function(o)
	case o.Attr != "":
		a, err := b.c.Positional(o.Attr)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
		}
		return &query.PARef{AttrName: o.Attr, Attr: a, Label: b.use(o.Label), Delete: o.Delete}, nil
	case o.Struc != "":
		s, err := b.c.Structural(o.Struc)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
		}
		return &query.SARef{AttrName: o.Struc, Attr: s, Label: b.use(o.Label), Delete: o.Delete}, nil
	case o.Label != "":
		return &query.PARef{Label: b.use(o.Label), Delete: o.Delete}, nil
	case o.String != nil:
		if o.Flags != "" {
			return b.regex(regexp.QuoteMeta(*o.String), o.Flags)
		}
		return &query.String{Kind: query.StringNormal, Value: *o.String}, nil
	case o.Regex != nil:
		return b.regex(*o.Regex, o.Flags)
	case o.Int != nil:
		return &query.Int{Val: *o.Int}, nil
	case o.Float != nil:
		return &query.Float{Val: *o.Float}, nil
	}
	return nil, fmt.Errorf("%w: empty operand", ErrInvalidPlan)
}

func (b *builder) regex(pattern, flags string) (*query.String, error) {
	f, err := corpus.ParseRegexFlags(flags)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	re, err := corpus.CompileRegex(pattern, f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	return &query.String{Kind: query.StringRegex, Value: pattern, Regex: re, Flags: f}, nil
}

// function resolves a call to a builtin or, failing that, to a dynamic
// attribute of the corpus. Arity is checked here.
func (b *builder) function(o *Operand) (query.Node, error) {
	args := make([]query.Node, len(o.Args))
	for i := range o.Args {
		a, err := b.operand(&o.Args[i])
		if err != nil {
			return nil, err
		}
		args[i] = a
	}
	call := &query.Func{Name: o.Func, Builtin: eval.BuiltinID(o.Func), Args: args}
	arity := eval.BuiltinArity(call.Builtin)
	if call.Builtin < 0 {
		d, err := b.c.Dynamic(o.Func)
		if err != nil {
			return nil, fmt.Errorf("%w: function %q: %w", ErrInvalidPlan, o.Func, err)
		}
		call.Dynamic = d
		arity = d.Arity()
	}
	if len(args) != arity {
		return nil, fmt.Errorf("%w: %s: %w: got %d, want %d", ErrInvalidPlan, o.Func, corpus.ErrArity, len(args), arity)
	}
	return call, nil
}

func (b *builder) idSet(s *IDSet) (query.Node, error) {
	a, err := b.c.Positional(s.Attr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	ids := make([]int, 0, len(s.Values))
	for _, v := range s.Values {
		if id := a.ID(v); id >= 0 {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return &query.IDList{
		AttrName: s.Attr,
		Attr:     a,
		Label:    b.use(s.Label),
		Delete:   s.Delete,
		Items:    slices.Compact(ids),
		Negated:  s.Not,
	}, nil
}
