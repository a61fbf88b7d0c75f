package integration

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"CQPEval/internal/config"
	"CQPEval/internal/corpus"
	"CQPEval/internal/eval"
	"CQPEval/internal/plan"
	"CQPEval/internal/subcorpus"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSession(t *testing.T, tweak ...func(*config.Options)) *eval.Session {
	t.Helper()
	opts := config.DefaultOptions()
	for _, f := range tweak {
		f(&opts)
	}
	if err := opts.Validate(); err != nil {
		t.Fatal(err)
	}
	return eval.NewSession(opts, quietLogger())
}

func mustPlan(t *testing.T, doc string) *plan.Plan {
	t.Helper()
	p, err := plan.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse plan: %v", err)
	}
	return p
}

func runPlan(t *testing.T, s *eval.Session, reg corpus.Registry, doc string) *subcorpus.Subcorpus {
	t.Helper()
	res, err := plan.Execute(context.Background(), s, reg, mustPlan(t, doc))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	return res.Subcorpus
}

func spans(sc *subcorpus.Subcorpus) [][2]int {
	out := make([][2]int, 0, sc.Len())
	for _, r := range sc.Ranges {
		out = append(out, [2]int{r.Start, r.End})
	}
	return out
}

const (
	detNounPlan = `
name: NP
corpus: DEMO
patterns:
  - token: {where: {cmp: {op: "=", left: {attr: pos}, right: {string: DET}}}}
  - token:
      mark: target
      where: {cmp: {op: "=", left: {attr: pos}, right: {string: NOUN}}}
tree: {seq: [{leaf: 0}, {leaf: 1}]}
`
	catsInNPPlan = `
corpus: DEMO
query_corpus: NP
patterns: [{token: {value: cat}}]
tree: {leaf: 0}
`
)
