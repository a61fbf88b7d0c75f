// Package eval runs compiled corpus queries: it simulates the query
// automaton over candidate start positions, evaluates meet/union and
// tabular queries, and post-processes the matches into query results.
package eval

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"CQPEval/internal/config"
	"CQPEval/internal/engine"
	"CQPEval/internal/subcorpus"
)

var (
	ErrInfiniteLoop        = errors.New("infinite loop in query automaton")
	ErrIllegalComparison   = errors.New("illegal comparison")
	ErrIllegalNode         = errors.New("illegal constraint node")
	ErrEnvironmentOverflow = errors.New("too many evaluation environments")
	ErrEmptyStringMatch    = errors.New("query matches the empty string")
	ErrInterrupted         = engine.ErrInterrupted
	ErrBuiltin             = errors.New("builtin function failed")
	ErrNoEnvironment       = errors.New("no evaluation environment")
	ErrInitialMatchlist    = errors.New("cannot compute initial matchlist")
	ErrQueryKind           = errors.New("environment holds a different kind of query")
	ErrTabColumn           = errors.New("tabular column must be a token pattern")
	ErrNoSuchResult        = errors.New("no such named query result")
)

// Session owns the scope stack of a query and the named query results
// available to it. A Session is not safe for concurrent use.
type Session struct {
	opts        config.Options
	logger      *slog.Logger
	progress    ProgressReporter
	interrupter engine.InterruptChecker

	envs    []*Environment
	results map[string]*subcorpus.Subcorpus
}

// NewSession creates a session with an empty scope stack.
func NewSession(opts config.Options, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		opts:     opts,
		logger:   logger,
		progress: NopProgress{},
		results:  make(map[string]*subcorpus.Subcorpus),
	}
}

func (s *Session) Options() config.Options { return s.opts }
func (s *Session) Logger() *slog.Logger    { return s.logger }

// SetProgress installs a progress reporter; nil restores the no-op one.
func (s *Session) SetProgress(p ProgressReporter) {
	if p == nil {
		p = NopProgress{}
	}
	s.progress = p
}

// SetInterrupter installs an interrupt source polled during evaluation.
func (s *Session) SetInterrupter(c engine.InterruptChecker) {
	s.interrupter = c
}

// Push opens a new scope on top of the stack and makes it current. The
// first scope is the main query; later ones are aligned scopes.
func (s *Session) Push() (*Environment, error) {
	if len(s.envs) >= s.opts.MaxEnvironments {
		return nil, fmt.Errorf("%w: max %d", ErrEnvironmentOverflow, s.opts.MaxEnvironments)
	}
	env := newEnvironment(s.opts.Strategy())
	s.envs = append(s.envs, env)
	return env, nil
}

// Pop closes the current scope and releases what it owns.
func (s *Session) Pop() {
	n := len(s.envs)
	if n == 0 {
		return
	}
	s.envs[n-1].release()
	s.envs[n-1] = nil
	s.envs = s.envs[:n-1]
}

// Reset closes every scope, as before a new top-level query.
func (s *Session) Reset() {
	for len(s.envs) > 0 {
		s.Pop()
	}
}

// Current returns the innermost scope, or nil.
func (s *Session) Current() *Environment {
	if len(s.envs) == 0 {
		return nil
	}
	return s.envs[len(s.envs)-1]
}

// Environment returns scope i, 0 being the main query.
func (s *Session) Environment(i int) *Environment {
	if i < 0 || i >= len(s.envs) {
		return nil
	}
	return s.envs[i]
}

// Depth returns the number of open scopes.
func (s *Session) Depth() int { return len(s.envs) }

// SaveResult registers sc under its name, replacing any earlier result.
func (s *Session) SaveResult(sc *subcorpus.Subcorpus) {
	s.results[sc.Name] = sc
}

// Result returns the named query result.
func (s *Session) Result(name string) (*subcorpus.Subcorpus, error) {
	sc, ok := s.results[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchResult, name)
	}
	return sc, nil
}

// DropResult forgets a named query result.
func (s *Session) DropResult(name string) {
	delete(s.results, name)
}

// Results lists the names of all stored results.
func (s *Session) Results() []string {
	names := make([]string, 0, len(s.results))
	for n := range s.results {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
