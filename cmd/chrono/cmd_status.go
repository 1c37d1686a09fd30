package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/XopheD/chronologic/pkg/model"
	"github.com/XopheD/chronologic/pkg/network"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show network size, health and frontier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := a.network()
			if err != nil {
				return err
			}
			sum, err := n.Summary()
			if err != nil {
				return err
			}
			frontier := n.Frontier()
			if a.cfg.JSON {
				a.printJSON(map[string]any{"summary": sum, "frontier": frontier, "db": a.cfg.DB})
				return nil
			}
			a.printSummary(sum)
			if len(frontier) > 0 {
				fmt.Fprintln(a.out, "frontier:")
				for _, l := range frontier {
					fmt.Fprintf(a.out, "  %s\n", l)
				}
			}
			return nil
		},
	}
}

func (a *app) printSummary(sum network.Summary) {
	counts := sum.Constraints
	health := styleOK.Render("consistent")
	if !sum.Consistent {
		health = styleBad.Render("inconsistent")
	}
	fmt.Fprintf(a.out, "db:          %s\n", a.cfg.DB)
	fmt.Fprintf(a.out, "instants:    %d\n", sum.Instants)
	fmt.Fprintf(a.out, "constraints: %d applied, %d implied, %d rejected\n",
		counts[model.StatusApplied], counts[model.StatusImplied], counts[model.StatusRejected])
	fmt.Fprintf(a.out, "version:     %d\n", sum.Version)
	fmt.Fprintf(a.out, "health:      %s\n", health)
	if sum.Reference != "" {
		fmt.Fprintf(a.out, "reference:   %s\n", sum.Reference)
	}
}
