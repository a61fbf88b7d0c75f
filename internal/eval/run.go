package eval

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"CQPEval/internal/engine"
	"CQPEval/internal/subcorpus"
	"CQPEval/internal/symtab"
)

// Run is one evaluation of the session's main scope. It carries the
// cancellation token every loop of the evaluator polls.
type Run struct {
	ID      uuid.UUID
	ec      *engine.ExecutionContext
	logger  *slog.Logger
	started time.Time
}

// Running reports whether evaluation may continue.
func (r *Run) Running() bool { return r.ec.Running() }

// Err returns the reason the run stopped early, or nil.
func (r *Run) Err() error { return r.ec.Err() }

// Abort stops the run. The first reason is kept and logged.
func (r *Run) Abort(err error) {
	if r.ec.Running() {
		if errors.Is(err, ErrInterrupted) {
			r.logger.Warn("evaluation interrupted")
		} else {
			r.logger.Error("evaluation aborted", "error", err)
		}
	}
	r.ec.Abort(err)
}

// Result is the outcome of a run.
type Result struct {
	RunID     uuid.UUID
	Subcorpus *subcorpus.Subcorpus
	// Incomplete is set when the run was interrupted or aborted; the
	// ranges found so far are kept.
	Incomplete bool
	Elapsed    time.Duration
}

// Len returns the number of matches.
func (r *Result) Len() int {
	if r == nil || r.Subcorpus == nil {
		return 0
	}
	return r.Subcorpus.Len()
}

func (s *Session) newRun(ctx context.Context, kind string) *Run {
	id := uuid.New()
	ec := engine.NewExecutionContext(ctx, s.opts.InterruptInterval)
	if s.interrupter != nil {
		ec.WithChecker(s.interrupter)
	}
	return &Run{
		ID:      id,
		ec:      ec,
		logger:  s.logger.With("query_id", id.String(), "kind", kind),
		started: time.Now(),
	}
}

func (s *Session) finish(run *Run, env *Environment) (*Result, error) {
	res := &Result{
		RunID:      run.ID,
		Subcorpus:  env.QueryCorpus,
		Incomplete: run.Err() != nil,
		Elapsed:    time.Since(run.started),
	}
	if interrupted(run.Err()) {
		run.logger.Warn("query interrupted, results are incomplete")
	}
	run.logger.Info("query finished", "matches", res.Len(), "incomplete", res.Incomplete, "elapsed", res.Elapsed)
	return res, run.Err()
}

// evaluator evaluates queries of one scope within a run.
type evaluator struct {
	run      *Run
	env      *Environment
	opts     sessionOptions
	progress ProgressReporter
	session  *Session
	// aligned evaluators serve an alignment constraint and report no
	// progress.
	aligned bool
}

// sessionOptions are the options the inner loops consult.
type sessionOptions struct {
	hardBoundary  int
	strictRegions bool
	loopThreshold int
}

func (s *Session) evaluator(run *Run, env *Environment) *evaluator {
	return &evaluator{
		run: run,
		env: env,
		opts: sessionOptions{
			hardBoundary:  s.opts.HardBoundary,
			strictRegions: s.opts.StrictRegions,
			loopThreshold: s.opts.InfiniteLoopThreshold,
		},
		progress: s.progress,
		session:  s,
	}
}

func (ev *evaluator) running() bool { return ev.run.Running() }

func (ev *evaluator) abort(err error) { ev.run.Abort(err) }

// tick counts a successful transition and polls for interrupts.
func (ev *evaluator) tick() bool { return ev.run.ec.Tick() }

// dup copies src into dst; a size mismatch is fatal.
func (ev *evaluator) dup(src, dst *symtab.RefTab) bool {
	if err := src.Dup(dst); err != nil {
		ev.abort(err)
		return false
	}
	return true
}

// bind sets label l in rt; an index outside the table is fatal.
func (ev *evaluator) bind(rt *symtab.RefTab, l *symtab.Label, cpos int) {
	if l == nil || l.IsThis() {
		return
	}
	if err := rt.Set(l.Ref, cpos); err != nil {
		ev.abort(err)
	}
}

// labelPos returns the position bound to l, unbinding it when del is set.
func (ev *evaluator) labelPos(l *symtab.Label, rt *symtab.RefTab, cpos int, del bool) int {
	pos := rt.Get(l.Ref, cpos)
	if del {
		ev.bind(rt, l, -1)
	}
	return pos
}

// mainEnvironment returns scope 0 ready for a run.
func (s *Session) mainEnvironment() (*Environment, error) {
	env := s.Environment(0)
	if env == nil {
		return nil, ErrNoEnvironment
	}
	if env.QueryCorpus == nil {
		return nil, errors.Join(ErrNoEnvironment, errors.New("scope has no query corpus"))
	}
	return env, nil
}
