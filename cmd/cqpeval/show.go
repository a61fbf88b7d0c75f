package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newShowCmd(a *app) *cobra.Command {
	var (
		width  int
		limit  int
		remove bool
	)
	cmd := &cobra.Command{
		Use:   "show [NAME]",
		Short: "List saved query results, or print one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				names, err := store.List()
				if err != nil {
					return err
				}
				for _, name := range names {
					info, err := store.Stat(name)
					if err != nil {
						a.logger.Warn("unreadable result", "name", name, "error", err)
						continue
					}
					fmt.Fprintf(out, "%-16s %-10s %6d matches  %s\n",
						info.Name, info.Corpus, info.Matches, info.SavedAt.Format("2006-01-02 15:04:05"))
				}
				return nil
			}

			name := args[0]
			if remove {
				return store.Delete(name)
			}
			sc, err := store.Load(name, a.reg)
			if err != nil {
				return err
			}
			k, err := newConcordance(sc.Corpus, a.opts.DefaultAttribute, width, limit)
			if err != nil {
				return err
			}
			k.print(out, sc)
			return nil
		},
	}
	cmd.Flags().IntVarP(&width, "context", "w", 5, "tokens of context on each side of a match")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "print at most n matches (0 prints all)")
	cmd.Flags().BoolVar(&remove, "delete", false, "delete the named result instead of printing it")
	return cmd
}
