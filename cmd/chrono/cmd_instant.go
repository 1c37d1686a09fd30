package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInstantCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instant",
		Short: "Register and list instants",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <label>...",
			Short: "Register instants (existing labels are kept)",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := a.network()
				if err != nil {
					return err
				}
				type added struct {
					ID    int    `json:"id"`
					Label string `json:"label"`
				}
				var out []added
				for _, label := range args {
					id, err := n.AddInstant(label)
					if err != nil {
						return err
					}
					out = append(out, added{ID: int(id), Label: label})
				}
				if a.cfg.JSON {
					a.printJSON(map[string]any{"instants": out})
					return nil
				}
				for _, in := range out {
					fmt.Fprintf(a.out, "t%d %s\n", in.ID, styleLabel.Render(in.Label))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List instants in registration order",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				n, err := a.network()
				if err != nil {
					return err
				}
				labels := n.Labels()
				if a.cfg.JSON {
					a.printJSON(map[string]any{"instants": labels, "count": len(labels)})
					return nil
				}
				if len(labels) == 0 {
					fmt.Fprintln(a.out, "no instants")
					return nil
				}
				ref := n.Reference()
				for i, l := range labels {
					marker := ""
					if l == ref {
						marker = styleMuted.Render(" (reference)")
					}
					fmt.Fprintf(a.out, "  t%-3d %s%s\n", i, l, marker)
				}
				return nil
			},
		},
	)
	return cmd
}
