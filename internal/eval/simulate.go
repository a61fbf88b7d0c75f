package eval

import (
	"slices"

	"CQPEval/internal/automaton"
	"CQPEval/internal/corpus"
	"CQPEval/internal/matchlist"
	"CQPEval/internal/query"
	"CQPEval/internal/symtab"
)

// simulation holds the state vectors of one DFA simulation. states[s] is
// the corpus position of the active run in DFA state s, or -1; refs[s]
// holds its label bindings. targets and trefs collect the next generation.
type simulation struct {
	ev  *evaluator
	dfa *automaton.DFA

	states  []int
	targets []int
	refs    []*symtab.RefTab
	trefs   []*symtab.RefTab

	regionLabels []*symtab.Label
	longest      bool
}

type match struct {
	start, end      int
	target, keyword int
}

func (ev *evaluator) newSimulation() *simulation {
	env := ev.env
	n := env.DFA.MaxStates
	sim := &simulation{
		ev:      ev,
		dfa:     env.DFA,
		states:  make([]int, n),
		targets: make([]int, n),
		refs:    make([]*symtab.RefTab, n),
		trefs:   make([]*symtab.RefTab, n),
		longest: env.Strategy == query.StrategyLongest,
	}
	for i := 0; i < n; i++ {
		sim.refs[i] = symtab.NewRefTab(env.Labels)
		sim.trefs[i] = symtab.NewRefTab(env.Labels)
	}
	if ev.opts.strictRegions {
		sim.regionLabels = env.Labels.Labels(symtab.RegionData | symtab.Defined | symtab.Used)
	}
	return sim
}

// simulate replaces every candidate start of ml by the match found from
// it, or by a tombstone. startTransition is the initial transition ml was
// computed for; its constraint is known to hold at every start and is not
// evaluated again. At most cut matches are found when cut > 0. The result
// reports whether starts may have moved, in which case ml needs sorting.
func (sim *simulation) simulate(ml *matchlist.Matchlist, cut, startTransition int) bool {
	ev := sim.ev
	env := ev.env
	qc := env.QueryCorpus
	hasSelector := env.Selector.IsSet()

	n := ml.Len()
	lastPct := -1
	rIx := 0
	i := 0
	for i < n && cut != 0 && ev.running() {
		if !ev.aligned {
			if pct := i * 100 / n; pct != lastPct {
				ev.progress.Percentage(pct)
				lastPct = pct
			}
		}
		start := ml.Start[i]
		if start < 0 || rIx >= qc.Len() {
			sim.drop(ml, i)
			i++
			continue
		}
		rs, re := qc.Range(rIx)
		if start < rs {
			sim.drop(ml, i)
			i++
			continue
		}
		if start > re {
			rIx++
			continue
		}
		boundary := min(ev.rightBoundary(start), re)
		if boundary < 0 {
			sim.drop(ml, i)
			i++
			continue
		}
		env.rp = rIx

		m := sim.run(start, boundary, startTransition, hasSelector)
		if m.end >= 0 && m.start >= 0 && m.end >= m.start {
			if cut > 0 {
				cut--
			}
			ml.Start[i], ml.End[i] = m.start, m.end
			if ml.Target != nil {
				ml.Target[i] = m.target
			}
			if ml.Keyword != nil {
				ml.Keyword[i] = m.keyword
			}
		} else {
			sim.drop(ml, i)
		}
		i++
	}
	for ; i < n; i++ {
		sim.drop(ml, i)
	}
	return hasSelector
}

func (sim *simulation) drop(ml *matchlist.Matchlist, i int) {
	ml.Delete(i)
	if ml.Target != nil {
		ml.Target[i] = -1
	}
	if ml.Keyword != nil {
		ml.Keyword[i] = -1
	}
}

// run simulates the DFA from a single start position. Runs advance in
// lockstep: one generation per iteration, every active state trying every
// input. The first final state reached wins unless the longest match is
// wanted, in which case the simulation goes on while any run is alive.
func (sim *simulation) run(start, boundary, startTransition int, hasSelector bool) match {
	ev := sim.ev
	env := ev.env
	dfa := sim.dfa

	for s := range sim.states {
		sim.states[s] = -1
		sim.refs[s].Reset()
		sim.trefs[s].Reset()
	}
	sim.states[0] = start
	ev.bind(sim.refs[0], env.MatchLabel, start)
	env.clearQueues()

	m := match{start: start, end: -1, target: -1, keyword: -1}
	searching := func() bool { return m.end < 0 || sim.longest }
	running := 1
	firstTraversed := false
	loops := 0

	for searching() && running > 0 && ev.running() {
		for s := range sim.targets {
			sim.targets[s] = -1
		}

		for s := 0; s < dfa.MaxStates && searching(); s++ {
			if sim.states[s] < 0 {
				continue
			}
			running--
			for p := 0; p < dfa.MaxInput && searching(); p++ {
				tgt := dfa.TransTable[s][p]
				if tgt == dfa.EState {
					continue
				}
				cpos := sim.states[s]
				elem := env.Patterns[p]
				zeroWidth := query.IsZeroWidth(elem)
				eff := cpos
				if query.IsClosing(elem) {
					eff--
				}
				inside := eff <= boundary || (query.IsLookahead(elem) && eff == boundary+1)
				if !inside || !sim.regionsOK(s, eff) {
					continue
				}

				var valid bool
				_, isRegion := elem.(*query.Region)
				if s == 0 && startTransition >= 0 && !firstTraversed && !(startTransition == p && isRegion) {
					valid = p == startTransition
					if valid {
						valid = sim.takeFirst(elem, eff, s, int(tgt))
					}
				} else {
					valid = ev.evalConstraint(elem, eff, sim.refs[s], sim.trefs[tgt], &cpos)
				}
				if !valid {
					continue
				}

				_, mark := query.ElementLabel(elem)
				ev.bindMark(sim.trefs[tgt], mark, eff)
				ev.tick()

				won := false
				if dfa.Final[tgt] {
					if env.GConstraint == nil {
						won = true
					} else {
						me := cpos
						if zeroWidth {
							me = cpos - 1
						}
						ev.bind(sim.trefs[tgt], env.MatchEndLabel, me)
						won = ev.evalBool(env.GConstraint, sim.trefs[tgt], cpos-1)
						ev.bind(sim.trefs[tgt], env.MatchEndLabel, -1)
					}
				}
				if won {
					m = sim.winner(start, cpos, zeroWidth, sim.trefs[tgt], hasSelector)
				}
				if !won || sim.longest {
					if zeroWidth {
						sim.targets[tgt] = cpos
					} else {
						sim.targets[tgt] = cpos + 1
					}
				}
			}
		}
		firstTraversed = true

		if searching() {
			running = 0
			for _, t := range sim.targets {
				if t >= 0 {
					running++
				}
			}
			sim.states, sim.targets = sim.targets, sim.states
			sim.refs, sim.trefs = sim.trefs, sim.refs

			if slices.Equal(sim.states, sim.targets) {
				loops++
			} else {
				loops = 0
			}
			if loops >= ev.opts.loopThreshold {
				running = 0
				ev.abort(ErrInfiniteLoop)
			}
		}
	}
	return m
}

// takeFirst follows the initial transition whose constraint the start
// position is known to satisfy.
func (sim *simulation) takeFirst(elem query.Element, eff, s, tgt int) bool {
	ev := sim.ev
	if !ev.dup(sim.refs[s], sim.trefs[tgt]) {
		return false
	}
	label, _ := query.ElementLabel(elem)
	ev.bind(sim.trefs[tgt], label, eff)
	if t, ok := elem.(*query.Tag); ok && ev.opts.strictRegions && !t.IsClosing && t.RightBoundary != nil {
		if _, _, end, found := corpus.RegionBounds(t.Attr, eff); found {
			ev.bind(sim.trefs[tgt], t.RightBoundary, end)
		}
	}
	return true
}

// regionsOK reports whether eff lies within every region a strict-mode
// tag opened for the run in state s.
func (sim *simulation) regionsOK(s, eff int) bool {
	for _, l := range sim.regionLabels {
		if rb := sim.refs[s].Get(l.Ref, eff); rb >= 0 && eff > rb {
			return false
		}
	}
	return true
}

// winner builds the match ending at cpos, remapped by the match selector
// when one is set. An invalid remapped span has start -1.
func (sim *simulation) winner(start, cpos int, zeroWidth bool, rt *symtab.RefTab, hasSelector bool) match {
	env := sim.ev.env
	m := match{start: start, end: cpos, target: -1, keyword: -1}
	if zeroWidth {
		m.end = cpos - 1
	}

	if hasSelector {
		sel := env.Selector
		if sel.Begin != nil {
			m.start = rt.Get(sel.Begin.Ref, start)
		}
		if m.start >= 0 {
			m.start += sel.BeginOffset
		}
		if sel.End != nil {
			m.end = rt.Get(sel.End.Ref, m.end)
		}
		if m.end >= 0 {
			m.end += sel.EndOffset
		}
		size := env.QueryCorpus.MotherSize
		if m.start < 0 || m.start >= size || m.end < 0 || m.end >= size || m.end < m.start {
			m.start, m.end = -1, 0
		}
	}

	if env.HasTarget {
		m.target = rt.Get(env.TargetLabel.Ref, -1)
	}
	if env.HasKeyword {
		m.keyword = rt.Get(env.KeywordLabel.Ref, -1)
	}
	return m
}
