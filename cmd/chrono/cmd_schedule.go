package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/XopheD/chronologic/pkg/graph"
	"github.com/XopheD/chronologic/pkg/network"
	"github.com/XopheD/chronologic/pkg/timeset"
)

func newScheduleCmd(a *app) *cobra.Command {
	var (
		startline, deadline string
		fix                 []string
	)
	cmd := &cobra.Command{
		Use:   "schedule [--startline D] [--deadline D] [--fix label=D]...",
		Short: "Explore absolute dates for every instant",
		Long: `Give every instant the set of absolute dates it may take once all
instants occur within [startline, deadline] and the --fix'ed instants
occur exactly at their date. Nothing is recorded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var opts network.ScheduleOptions
			if startline != "" {
				d, err := timeset.ParseDuration(startline)
				if err != nil {
					return err
				}
				opts.Startline = &d
			}
			if deadline != "" {
				d, err := timeset.ParseDuration(deadline)
				if err != nil {
					return err
				}
				opts.Deadline = &d
			}
			if len(fix) > 0 {
				opts.Fix = make(map[string]timeset.Duration, len(fix))
				for _, f := range fix {
					label, at, ok := strings.Cut(f, "=")
					if !ok || label == "" {
						return fmt.Errorf("--fix %q: want label=duration", f)
					}
					d, err := timeset.ParseDuration(at)
					if err != nil {
						return fmt.Errorf("--fix %q: %w", f, err)
					}
					opts.Fix[label] = d
				}
			}

			n, err := a.network()
			if err != nil {
				return err
			}
			s, err := n.Schedule(opts)
			if err != nil {
				return err
			}
			slots := s.Slots()
			infos := make([]slotInfo, len(slots))
			for i, slot := range slots {
				infos[i] = slotInfo{
					Instant: n.Label(graph.InstantID(i)),
					Slot:    slot.String(),
					Empty:   slot.IsEmpty(),
				}
			}
			if a.cfg.JSON {
				a.printJSON(map[string]any{
					"startline": s.Startline(),
					"deadline":  s.Deadline(),
					"slots":     infos,
				})
				return nil
			}
			for _, in := range infos {
				fmt.Fprintf(a.out, "  %-16s %s\n", in.Instant, in.Slot)
			}
			fmt.Fprintf(a.out, "startline %v, deadline %v\n", s.Startline(), s.Deadline())
			return nil
		},
	}
	cmd.Flags().StringVar(&startline, "startline", "", "no instant occurs before this date")
	cmd.Flags().StringVar(&deadline, "deadline", "", "no instant occurs after this date")
	cmd.Flags().StringArrayVar(&fix, "fix", nil, "pin an instant: label=duration (repeatable)")
	return cmd
}
