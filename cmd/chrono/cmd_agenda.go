package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/XopheD/chronologic/pkg/graph"
	"github.com/XopheD/chronologic/pkg/model"
)

type slotInfo struct {
	Instant string `json:"instant"`
	Slot    string `json:"slot"`
	Empty   bool   `json:"empty,omitempty"`
}

func newAgendaCmd(a *app) *cobra.Command {
	var ref string
	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Show the possible dates of every instant",
		Long: `Show, for every instant, the dates it may take relative to the
reference instant (date 0), with recorded restrictions applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := a.network()
			if err != nil {
				return err
			}
			ag, err := n.Agenda(a.reference(ref))
			if err != nil {
				return err
			}
			slots, err := ag.Slots()
			if err != nil {
				return err
			}
			start, err := ag.Startline()
			if err != nil {
				return err
			}
			end, err := ag.Deadline()
			if err != nil {
				return err
			}
			refLabel := n.Label(ag.Reference())

			infos := make([]slotInfo, len(slots))
			for i, s := range slots {
				infos[i] = slotInfo{
					Instant: n.Label(graph.InstantID(i)),
					Slot:    s.String(),
					Empty:   s.IsEmpty(),
				}
			}

			if a.cfg.JSON {
				a.printJSON(map[string]any{
					"reference": refLabel,
					"startline": start,
					"deadline":  end,
					"slots":     infos,
				})
				return nil
			}
			fmt.Fprintf(a.out, "agenda from %s\n", styleLabel.Render(refLabel))
			for _, in := range infos {
				slot := in.Slot
				if in.Empty {
					slot = styleBad.Render("no possible date")
				}
				fmt.Fprintf(a.out, "  %-16s %s\n", in.Instant, slot)
			}
			fmt.Fprintf(a.out, "startline %v, deadline %v\n", start, end)
			return nil
		},
	}
	cmd.Flags().StringVar(&ref, "ref", "", "reference instant (date 0)")
	return cmd
}

func newRestrictCmd(a *app) *cobra.Command {
	var (
		lo, hi  string
		exclude bool
	)
	cmd := &cobra.Command{
		Use:   "restrict <instant> [--min D] [--max D] [--exclude]",
		Short: "Narrow the dates an instant may take in agendas",
		Long: `Keep only the dates within [min, max] for an instant, or with
--exclude remove them. Dates are relative to the agenda reference.
Restrictions accumulate and never change the constraint network.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			iv, err := boundsFlags(lo, hi)
			if err != nil {
				return err
			}
			n, err := a.network()
			if err != nil {
				return err
			}
			mode := model.ModeRetain
			if exclude {
				mode = model.ModeExclude
			}
			if err := n.Restrict(args[0], iv, mode); err != nil {
				return err
			}
			if a.cfg.JSON {
				a.printJSON(map[string]any{"instant": args[0], "interval": iv.String(), "mode": mode})
				return nil
			}
			fmt.Fprintf(a.out, "restricted %s: %s %v\n", args[0], mode, iv)
			return nil
		},
	}
	cmd.Flags().StringVar(&lo, "min", "", "earliest date (default -inf)")
	cmd.Flags().StringVar(&hi, "max", "", "latest date (default +inf)")
	cmd.Flags().BoolVar(&exclude, "exclude", false, "remove the dates instead of keeping them")
	return cmd
}

func newReferenceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reference [instant]",
		Short: "Show or set the default agenda reference",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.network()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if err := n.SetReference(args[0]); err != nil {
					return err
				}
			}
			if a.cfg.JSON {
				a.printJSON(map[string]string{"reference": n.Reference()})
				return nil
			}
			if r := n.Reference(); r != "" {
				fmt.Fprintln(a.out, r)
			} else {
				fmt.Fprintln(a.out, "no reference")
			}
			return nil
		},
	}
}
