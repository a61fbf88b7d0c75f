package plan

import (
	"context"
	"fmt"

	"CQPEval/internal/corpus"
	"CQPEval/internal/eval"
)

// Execute prepares p in s and evaluates it with the operation its tree
// needs. A named plan stores its result in the session.
func Execute(ctx context.Context, s *eval.Session, reg corpus.Registry, p *Plan) (*eval.Result, error) {
	if err := Prepare(s, reg, p); err != nil {
		return nil, err
	}
	defer s.Reset()

	var (
		res *eval.Result
		err error
	)
	switch p.Kind() {
	case KindMU:
		res, err = s.RunMU(ctx, p.Cut, p.KeepOld)
	case KindTab:
		res, err = s.RunTab(ctx)
		if err == nil && p.Cut > 0 {
			res.Subcorpus.Cut(p.Cut)
		}
	default:
		res, err = s.RunStandard(ctx, p.Cut, p.KeepOld)
	}
	if err != nil {
		return res, err
	}

	if p.Name != "" {
		res.Subcorpus.Name = p.Name
		res.Subcorpus.IsSub = true
		s.SaveResult(res.Subcorpus)
		s.Logger().Info("saved query result", "name", p.Name, "matches", res.Len(), "run", res.RunID)
	}
	return res, nil
}

// ExecuteAll runs plans in order, stopping at the first error. Later
// plans may refer to the results earlier plans saved.
func ExecuteAll(ctx context.Context, s *eval.Session, reg corpus.Registry, plans []*Plan) ([]*eval.Result, error) {
	out := make([]*eval.Result, 0, len(plans))
	for i, p := range plans {
		res, err := Execute(ctx, s, reg, p)
		if err != nil {
			return out, fmt.Errorf("plan %d (%s): %w", i, p.Name, err)
		}
		out = append(out, res)
	}
	return out, nil
}
