package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFrontierCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "frontier [instant]",
		Short: "Show the instants that may occur next",
		Long: `Without an argument, list the instants nothing is known to precede.
With one, tell whether that instant may occur next and which instants
necessarily come before it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.network()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				f := n.Frontier()
				if a.cfg.JSON {
					a.printJSON(map[string]any{"frontier": f})
					return nil
				}
				if len(f) == 0 {
					fmt.Fprintln(a.out, "no instants")
					return nil
				}
				fmt.Fprintln(a.out, "frontier:")
				for _, l := range f {
					fmt.Fprintf(a.out, "  %s\n", l)
				}
				return nil
			}

			label := args[0]
			status, err := n.FrontierStatus(label)
			if err != nil {
				return err
			}
			blockedBy := make([]string, len(status.BlockedBy))
			for i, id := range status.BlockedBy {
				blockedBy[i] = n.Label(id)
			}
			if a.cfg.JSON {
				a.printJSON(map[string]any{
					"instant":    label,
					"ready":      status.Ready,
					"frontier":   n.Frontier(),
					"blocked_by": blockedBy,
				})
				return nil
			}
			if status.Ready {
				fmt.Fprintf(a.out, "%s %s may occur next\n", styleOK.Render("READY"), label)
			} else {
				fmt.Fprintf(a.out, "%s %s\n", styleWarn.Render("BLOCKED"), label)
				for _, b := range blockedBy {
					fmt.Fprintf(a.out, "  after %s\n", b)
				}
			}
			return nil
		},
	}
}
