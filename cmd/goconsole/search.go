package main

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/MrEthical07/goConsole/search"
	"github.com/spf13/cobra"
)

func newSearchCmd(a *app) *cobra.Command {
	var perms []string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank the search corpus against a query",
		Long: `Prints at most ten ranked results. With --perm, results whose module
requires a capability that is not granted are marked locked.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			corpus := search.DefaultCorpus()
			if a.cfg.Search.CorpusFile != "" {
				loaded, err := search.LoadCorpus(a.cfg.Search.CorpusFile)
				if err != nil {
					return err
				}
				corpus = loaded
			}
			index, err := search.NewIndex(corpus)
			if err != nil {
				return err
			}

			query := strings.Join(args, " ")
			results := index.Search(query)
			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, search.EmptyMessage)
				return nil
			}

			required := a.requirements()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SCORE\tKIND\tID\tTITLE\tDETAIL\tMODULE")
			for _, r := range results {
				title, subtitle := search.Describe(r.Record)
				module := search.Target(r.Record)
				if cmd.Flags().Changed("perm") {
					if need, ok := required[module]; ok && !slices.Contains(perms, need) {
						module += " (locked)"
					}
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
					r.Score, r.Record.Kind(), r.Record.RecordID(), title, subtitle, module)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringSliceVar(&perms, "perm", nil, "granted capability (repeatable)")
	return cmd
}

// requirements maps each module to the first capability configured for it.
func (a *app) requirements() map[string]string {
	out := make(map[string]string)
	for _, aff := range a.cfg.Navigation {
		if aff.Module == "" || aff.Requirement == "" {
			continue
		}
		if _, ok := out[aff.Module]; !ok {
			out[aff.Module] = aff.Requirement
		}
	}
	return out
}
