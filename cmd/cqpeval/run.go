package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"CQPEval/internal/eval"
	"CQPEval/internal/plan"
	"CQPEval/internal/storage"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		save    bool
		width   int
		limit   int
		noPrint bool
	)
	cmd := &cobra.Command{
		Use:   "run PLAN...",
		Short: "Evaluate query plans in order",
		Long: `Evaluate query plans in order. A plan with a name stores its result in
the session, where later plans can search it or match its ranges. With
--save, named results are also written to the result store, and plans
may refer to results saved by earlier invocations.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plans := make([]*plan.Plan, 0, len(args))
			for _, path := range args {
				p, err := plan.Load(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				plans = append(plans, p)
			}

			store, err := a.store()
			if err != nil {
				return err
			}
			s := eval.NewSession(a.opts, a.logger)
			if a.opts.ProgressBar {
				s.SetProgress(eval.NewBarProgress(cmd.ErrOrStderr()))
			}
			if err := restoreResults(s, store, a, plans); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			for i, p := range plans {
				res, err := plan.Execute(ctx, s, a.reg, p)
				if res != nil && !noPrint {
					k, kerr := newConcordance(res.Subcorpus.Corpus, a.opts.DefaultAttribute, width, limit)
					if kerr != nil {
						return kerr
					}
					k.print(out, res.Subcorpus)
				}
				if err != nil {
					if res != nil && res.Incomplete {
						fmt.Fprintln(out, "(results are incomplete)")
					}
					return fmt.Errorf("%s: %w", args[i], err)
				}
				if save && p.Name != "" {
					if _, err := store.Save(res.Subcorpus); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "write named results to the result store")
	cmd.Flags().IntVarP(&width, "context", "w", 5, "tokens of context on each side of a match")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "print at most n matches per plan (0 prints all)")
	cmd.Flags().BoolVarP(&noPrint, "quiet", "q", false, "do not print matches")
	return cmd
}

// restoreResults loads the stored results that plans refer to but that no
// earlier plan produces.
func restoreResults(s *eval.Session, store *storage.ResultStore, a *app, plans []*plan.Plan) error {
	produced := make(map[string]bool)
	for _, p := range plans {
		for _, name := range p.References() {
			if produced[name] {
				continue
			}
			if _, err := s.Result(name); err == nil {
				continue
			}
			sc, err := store.Load(name, a.reg)
			if errors.Is(err, storage.ErrNotFound) {
				// Reported by Prepare with the plan that needs it.
				continue
			}
			if err != nil {
				return err
			}
			s.SaveResult(sc)
		}
		if p.Name != "" {
			produced[p.Name] = true
		}
	}
	return nil
}
