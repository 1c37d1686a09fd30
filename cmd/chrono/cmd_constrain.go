package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/XopheD/chronologic/pkg/graph"
)

func newConstrainCmd(a *app) *cobra.Command {
	var lo, hi string
	cmd := &cobra.Command{
		Use:   "constrain <from> <to> [--min D] [--max D]",
		Short: "Assert that <to> - <from> lies within [min, max]",
		Long: `Assert that <to> occurs between --min and --max after <from>.
Unknown instants are registered first. A constraint that contradicts the
network is recorded as rejected and leaves the network untouched.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			iv, err := boundsFlags(lo, hi)
			if err != nil {
				return err
			}
			n, err := a.network()
			if err != nil {
				return err
			}
			from, to := args[0], args[1]
			for _, l := range args {
				if _, err := n.AddInstant(l); err != nil {
					return err
				}
			}

			out, cerr := n.Constrain(from, to, iv)
			if cerr != nil && !errors.Is(cerr, graph.ErrInconsistent) {
				return cerr
			}
			status := "applied"
			switch {
			case cerr != nil:
				status = "rejected"
			case out == graph.Unchanged:
				status = "implied"
			}
			bound, err := n.Bound(from, to)
			if err != nil {
				return err
			}

			if a.cfg.JSON {
				result := map[string]any{
					"from":     from,
					"to":       to,
					"interval": iv.String(),
					"status":   status,
					"bound":    bound.String(),
					"version":  n.Graph().Version(),
				}
				if cerr != nil {
					result["error"] = cerr.Error()
				}
				a.printJSON(result)
			} else {
				fmt.Fprintf(a.out, "%s %s - %s in %v\n", statusStyle(status).Render(status), to, from, iv)
				fmt.Fprintf(a.out, "  now %s - %s in %v\n", to, from, bound)
			}
			return cerr
		},
	}
	cmd.Flags().StringVar(&lo, "min", "", "least delay from <from> to <to> (default -inf)")
	cmd.Flags().StringVar(&hi, "max", "", "greatest delay from <from> to <to> (default +inf)")
	return cmd
}

func newBoundCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bound <from> <to>",
		Short: "Show the tightest known interval for <to> - <from>",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.network()
			if err != nil {
				return err
			}
			from, to := args[0], args[1]
			b, err := n.Bound(from, to)
			if err != nil {
				return err
			}
			i, _ := n.Instant(from)
			j, _ := n.Instant(to)
			order, err := n.Graph().Compare(i, j)
			if err != nil {
				return err
			}
			distinct, err := n.Graph().Distinct(i, j)
			if err != nil {
				return err
			}

			if a.cfg.JSON {
				a.printJSON(map[string]any{
					"from":     from,
					"to":       to,
					"bound":    b.String(),
					"lo":       b.Lo(),
					"hi":       b.Hi(),
					"order":    order.String(),
					"distinct": distinct,
				})
				return nil
			}
			fmt.Fprintf(a.out, "%s - %s in %v\n", to, from, b)
			switch order {
			case graph.Unordered:
				fmt.Fprintln(a.out, styleMuted.Render("  either may come first"))
			case graph.Simultaneous:
				fmt.Fprintf(a.out, "  %s and %s are simultaneous\n", from, to)
			default:
				fmt.Fprintf(a.out, "  %s %s %s\n", from, order, to)
			}
			return nil
		},
	}
}
