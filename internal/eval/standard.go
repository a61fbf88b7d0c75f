package eval

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"CQPEval/internal/matchlist"
)

// RunStandard evaluates the regex query of the main scope against its
// query corpus and stores the matches in the query corpus. cut > 0 keeps
// only the first cut matches. With keepOld, a subcorpus keeps its own
// ranges, minus those that contain no match.
//
// The returned error is the reason the run stopped early; the result
// holds what was found until then.
func (s *Session) RunStandard(ctx context.Context, cut int, keepOld bool) (*Result, error) {
	env, err := s.mainEnvironment()
	if err != nil {
		return nil, err
	}
	if env.DFA == nil {
		return nil, fmt.Errorf("%w: no compiled regex query", ErrQueryKind)
	}

	run := s.newRun(ctx, "standard")
	if keepOld && !env.QueryCorpus.IsSub {
		run.logger.Warn("keep old ranges needs a subcorpus, ignored", "corpus", env.QueryCorpus.Name)
		keepOld = false
	}
	if hc := s.opts.HardCut; hc > 0 && (cut <= 0 || cut > hc) {
		run.logger.Warn("cut clamped to hard cut", "cut", cut, "hard_cut", hc)
		cut = hc
	}

	ev := s.evaluator(run, env)
	ev.runStandard(cut, keepOld)

	env.QueryCorpus.ApplyStrategy(env.Strategy)
	env.QueryCorpus.Cut(cut)
	return s.finish(run, env)
}

func (ev *evaluator) runStandard(cut int, keepOld bool) {
	env := ev.env
	dfa := env.DFA
	qc := env.QueryCorpus
	size := ev.size()
	logger := ev.run.logger

	inputs := dfa.InitialInputs()
	logger.Debug("simulating query", "states", dfa.MaxStates, "initial_transitions", len(inputs), "deterministic", len(inputs) == 1)

	if dfa.Final[0] {
		ev.abort(ErrEmptyStringMatch)
		qc.SetMatchlist(matchlist.New(nil), keepOld)
		return
	}
	if qc.Len() == 0 {
		logger.Info("query corpus is empty", "corpus", qc.Name)
		qc.SetMatchlist(matchlist.New(nil), keepOld)
		return
	}

	// aligned scopes need every candidate of the main scope
	maxResult := cut
	if cut <= 0 || ev.session.Depth() > 1 {
		maxResult = -1
	}

	sim := ev.newSimulation()
	total := matchlist.New(nil)
	for k, p := range inputs {
		if !ev.running() {
			break
		}
		if !ev.aligned {
			ev.progress.Message(k+1, len(inputs), "preparing")
		}
		ml, err := ev.firstPattern(env.Patterns[p])
		if err != nil {
			if ev.running() {
				ev.abort(fmt.Errorf("%w: pattern %d: %w", ErrInitialMatchlist, p, err))
			}
			break
		}
		if ml.Len() == 0 {
			continue
		}
		ml.Resolve(size)
		ml.WholeCorpus = false
		ml.End = slices.Clone(ml.Start)
		if env.HasTarget {
			ml.Target = filled(ml.Len(), -1)
		}
		if env.HasKeyword {
			ml.Keyword = filled(ml.Len(), -1)
		}

		needSort := sim.simulate(ml, maxResult, p)
		ml.Reduce()
		if needSort {
			if err := ml.Sort(); err != nil {
				ev.abort(err)
				break
			}
			ml.Uniq()
		}
		logger.Debug("transition simulated", "transition", p, "matches", ml.Len())
		total = matchlist.Union(total, ml, size)
	}
	if !ev.aligned {
		ev.progress.Clear()
	}

	if total.Len() > 0 && ev.running() {
		ev.checkAlignment(total)
	}
	total.Reduce()
	qc.SetMatchlist(total, keepOld)
}

// checkAlignment filters the matches of the main scope by the alignment
// constraints: a match is kept when the region aligned to it contains a
// match of the aligned scope, or contains none for a negated constraint.
func (ev *evaluator) checkAlignment(total *matchlist.Matchlist) {
	s := ev.session
	for e := 1; e < s.Depth() && ev.running(); e++ {
		aenv := s.Environment(e)
		if aenv.Aligned == nil || aenv.DFA == nil || aenv.QueryCorpus == nil {
			ev.abort(fmt.Errorf("%w: aligned scope %d is not prepared", ErrNoEnvironment, e))
			return
		}
		aev := s.evaluator(ev.run, aenv)
		aev.aligned = true
		sim := aev.newSimulation()

		for i := range total.Start {
			if !ev.running() {
				return
			}
			if total.Start[i] < 0 {
				continue
			}
			from, to, ok := alignedSpan(aenv, total.Start[i], total.End[i])
			if !ok {
				total.Delete(i)
				continue
			}
			cand := matchlist.New(make([]int, 0, to-from+1))
			for p := from; p <= to; p++ {
				cand.Start = append(cand.Start, p)
			}
			cand.End = slices.Clone(cand.Start)
			if aenv.HasTarget {
				cand.Target = filled(cand.Len(), -1)
			}
			if aenv.HasKeyword {
				cand.Keyword = filled(cand.Len(), -1)
			}
			sim.simulate(cand, 1, -1)
			cand.Reduce()
			if (cand.Len() == 0) != aenv.Negated {
				total.Delete(i)
			}
		}
	}
}

// alignedSpan maps the match start..end of the main scope to the target
// positions of the beads containing its ends.
func alignedSpan(env *Environment, start, end int) (int, int, bool) {
	bs, be := env.Aligned.BeadAt(start), env.Aligned.BeadAt(end)
	if bs < 0 || be < 0 {
		return 0, 0, false
	}
	_, _, from, _, ok1 := env.Aligned.Bead(bs)
	_, _, _, to, ok2 := env.Aligned.Bead(be)
	if !ok1 || !ok2 || to < from {
		return 0, 0, false
	}
	return from, to, true
}

func filled(n, v int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// interrupted reports whether err stems from an interrupt rather than a
// failure of the query.
func interrupted(err error) bool {
	return errors.Is(err, ErrInterrupted)
}
