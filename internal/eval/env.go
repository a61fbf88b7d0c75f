package eval

import (
	"fmt"

	"CQPEval/internal/automaton"
	"CQPEval/internal/corpus"
	"CQPEval/internal/query"
	"CQPEval/internal/subcorpus"
	"CQPEval/internal/symtab"
)

// Reserved label names bound by the simulation.
const (
	LabelMatch    = "match"
	LabelMatchEnd = "matchend"
	LabelTarget   = "target"
	LabelKeyword  = "keyword"
)

// Environment is one query scope: the main query, or one aligned corpus
// referenced by an alignment constraint of the main query.
type Environment struct {
	// QueryCorpus is the range set searched; a run overwrites it with
	// the result.
	QueryCorpus *subcorpus.Subcorpus

	Labels   *symtab.SymbolTable
	Patterns []query.Element

	// GConstraint is checked whenever a run reaches a final state, with
	// the matchend label bound.
	GConstraint query.Node
	Tree        query.EvalTree
	DFA         *automaton.DFA

	HasTarget     bool
	HasKeyword    bool
	MatchLabel    *symtab.Label
	MatchEndLabel *symtab.Label
	TargetLabel   *symtab.Label
	KeywordLabel  *symtab.Label

	Context  query.SearchContext
	Selector query.MatchSelector

	// Aligned maps positions of the main scope into this scope. Negated
	// keeps the main matches that have no match here.
	Aligned corpus.Alignment
	Negated bool

	Strategy query.Strategy

	// rp is the index of the query corpus range under simulation.
	rp int
}

func newEnvironment(strategy query.Strategy) *Environment {
	st := symtab.New()
	reserved := symtab.Defined | symtab.Used | symtab.Special
	return &Environment{
		Labels:        st,
		MatchLabel:    st.Lookup(LabelMatch, reserved, true),
		MatchEndLabel: st.Lookup(LabelMatchEnd, reserved, true),
		TargetLabel:   st.Lookup(LabelTarget, reserved, true),
		KeywordLabel:  st.Lookup(LabelKeyword, reserved, true),
		Strategy:      strategy,
	}
}

// Validate checks the pattern vocabulary and constraint trees.
func (env *Environment) Validate() error {
	if len(env.Patterns) > query.MaxPatternElements {
		return fmt.Errorf("%d pattern elements, at most %d allowed", len(env.Patterns), query.MaxPatternElements)
	}
	for i, p := range env.Patterns {
		switch v := p.(type) {
		case *query.Region:
			if err := v.Validate(); err != nil {
				return fmt.Errorf("pattern %d: %w", i, err)
			}
		case *query.Pattern:
			if err := query.Validate(v.Constraint); err != nil {
				return fmt.Errorf("pattern %d: %w", i, err)
			}
		case *query.Tag:
			if v.Attr == nil {
				return fmt.Errorf("pattern %d: tag <%s> has no attribute", i, v.AttrName)
			}
		case nil:
			return fmt.Errorf("pattern %d is empty", i)
		}
	}
	if err := query.Validate(env.GConstraint); err != nil {
		return fmt.Errorf("global constraint: %w", err)
	}
	return nil
}

// Compile builds the DFA of a regex evaluation tree. Meet/union and
// tabular trees need no automaton.
func (env *Environment) Compile(maxStates int) error {
	if env.DFA != nil {
		return nil
	}
	switch env.Tree.(type) {
	case *query.Branch, *query.Leaf:
	default:
		return nil
	}
	dfa, err := automaton.Compile(env.Tree, len(env.Patterns), maxStates)
	if err != nil {
		return fmt.Errorf("compile query: %w", err)
	}
	env.DFA = dfa
	return nil
}

// release drops everything the scope owns. Region queues are cleared
// through their ENTER element only.
func (env *Environment) release() {
	for _, p := range env.Patterns {
		if r, ok := p.(*query.Region); ok && r.Op == query.RegionEnter {
			r.Clear()
		}
	}
	env.Patterns = nil
	env.GConstraint = nil
	env.Tree = nil
	env.DFA = nil
	env.QueryCorpus = nil
	env.Aligned = nil
}

// clearQueues empties the wait queues of all region elements.
func (env *Environment) clearQueues() {
	for _, p := range env.Patterns {
		if r, ok := p.(*query.Region); ok && r.Op == query.RegionEnter && r.Queue != nil {
			r.Queue.Clear()
		}
	}
}
