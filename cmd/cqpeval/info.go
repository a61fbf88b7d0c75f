package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"CQPEval/internal/corpus"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info [CORPUS...]",
		Short: "Describe the attributes of loaded corpora",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if len(names) == 0 {
				for name := range a.reg {
					names = append(names, name)
				}
				sort.Strings(names)
			}
			if len(names) == 0 {
				return fmt.Errorf("no corpus loaded, use --corpus")
			}
			for _, name := range names {
				c, err := a.reg.Corpus(name)
				if err != nil {
					return err
				}
				printInfo(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}

func printInfo(w io.Writer, c corpus.Corpus) {
	fmt.Fprintln(w, headerStyle.Sprintf("%s (%d tokens)", c.Name(), c.Size()))
	for _, name := range c.Attributes(corpus.KindPositional) {
		if a, err := c.Positional(name); err == nil {
			fmt.Fprintf(w, "  p-attribute  %-12s %d types\n", name, a.LexiconSize())
		}
	}
	for _, name := range c.Attributes(corpus.KindStructural) {
		if s, err := c.Structural(name); err == nil {
			values := ""
			if s.HasValues() {
				values = " (with values)"
			}
			fmt.Fprintf(w, "  s-attribute  %-12s %d regions%s\n", name, s.RegionCount(), values)
		}
	}
	for _, name := range c.Attributes(corpus.KindAlignment) {
		if al, err := c.Alignment(name); err == nil {
			fmt.Fprintf(w, "  a-attribute  %-12s %d beads to %s\n", name, al.BeadCount(), al.TargetCorpus())
		}
	}
	for _, name := range c.Attributes(corpus.KindDynamic) {
		if d, err := c.Dynamic(name); err == nil {
			fmt.Fprintf(w, "  function     %-12s arity %d\n", name, d.Arity())
		}
	}
}
