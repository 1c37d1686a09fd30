package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/XopheD/chronologic/pkg/agenda"
)

func newCheckCmd(a *app) *cobra.Command {
	var ref string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the network is consistent and every instant has a date",
		Long: `Check that the constraint network is consistent and that, with the
recorded restrictions applied, every instant still has a possible date.
Exits with status 2 when either check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := a.network()
			if err != nil {
				return err
			}
			g := n.Graph()
			var empty []string
			if g.Len() > 0 && g.IsConsistent() {
				ag, err := n.Agenda(a.reference(ref))
				if err != nil {
					return err
				}
				ids, err := ag.Empty()
				if err != nil {
					return err
				}
				for _, id := range ids {
					empty = append(empty, n.Label(id))
				}
			}

			if a.cfg.JSON {
				a.printJSON(map[string]any{
					"consistent": g.IsConsistent(),
					"instants":   g.Len(),
					"empty":      empty,
				})
			} else {
				switch {
				case !g.IsConsistent():
					fmt.Fprintf(a.out, "%s %v\n", styleBad.Render("INCONSISTENT"), g.Err())
				case len(empty) > 0:
					fmt.Fprintf(a.out, "%s no possible date for %s\n",
						styleBad.Render("OVER-RESTRICTED"), strings.Join(empty, ", "))
				default:
					fmt.Fprintf(a.out, "%s %d instant(s)\n", styleOK.Render("CONSISTENT"), g.Len())
				}
			}

			if err := g.Err(); err != nil {
				return err
			}
			if len(empty) > 0 {
				return fmt.Errorf("%w: %s", agenda.ErrEmptySlot, strings.Join(empty, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&ref, "ref", "", "reference instant for restrictions")
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Replay the log incrementally and globally and compare the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := a.network()
			if err != nil {
				return err
			}
			v, err := n.Verify()
			if err != nil {
				return err
			}
			if a.cfg.JSON {
				a.printJSON(map[string]any{"ok": v.OK(), "verification": v})
			} else if v.OK() {
				fmt.Fprintf(a.out, "%s %d constraint(s) over %d instant(s) propagate identically\n",
					styleOK.Render("OK"), v.Constraints, v.Instants)
			} else {
				fmt.Fprintf(a.out, "%s %d cell(s) differ\n", styleBad.Render("MISMATCH"), len(v.Mismatches))
				for _, m := range v.Mismatches {
					fmt.Fprintf(a.out, "  D[%s][%s]: incremental %v, global %v\n",
						m.From, m.To, m.Incremental, m.Global)
				}
			}
			if !v.OK() {
				return fmt.Errorf("verify: %d cell(s) differ", len(v.Mismatches))
			}
			return nil
		},
	}
}
