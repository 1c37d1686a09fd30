package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/XopheD/chronologic/pkg/model"
)

func newLogCmd(a *app) *cobra.Command {
	var (
		since  int64
		limit  int
		status string
	)
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Query the append-only constraint log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := a.network()
			if err != nil {
				return err
			}
			entries, err := n.Log(since, limit)
			if err != nil {
				return fmt.Errorf("log: %w", err)
			}
			if status != "" {
				filtered := entries[:0]
				for _, e := range entries {
					if string(e.Status) == status {
						filtered = append(filtered, e)
					}
				}
				entries = filtered
			}

			if a.cfg.JSON {
				a.printJSON(map[string]any{"constraints": entries, "count": len(entries)})
				return nil
			}
			if len(entries) == 0 {
				fmt.Fprintln(a.out, "no constraints")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(a.out, "#%-4d [v=%d] %s %s - %s in %v %s\n",
					e.ID, e.Version, statusStyle(string(e.Status)).Render(fmt.Sprintf("%-8s", e.Status)),
					e.ToLabel, e.FromLabel, e.Interval(), styleMuted.Render(humanize.Time(e.CreatedAt)))
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&since, "since", 0, "only entries with id > this")
	cmd.Flags().IntVar(&limit, "limit", 50, "max entries to return")
	cmd.Flags().StringVar(&status, "status", "", "filter by status: "+
		string(model.StatusApplied)+", "+string(model.StatusImplied)+" or "+string(model.StatusRejected))
	return cmd
}
