package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/XopheD/chronologic/pkg/network"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <plan.toml>",
		Short: "Add the instants, constraints and restrictions of a TOML plan",
		Long: `Add a TOML plan to the network:

  reference = "start"

  [[constraint]]
  from = "start"
  to = "boil"
  min = "8m"
  max = "12m"

  [[restrict]]
  instant = "boil"
  min = "0s"
  max = "10m"
  mode = "retain"   # or "exclude"

Constraints that contradict the network are recorded as rejected and
counted; the import goes on.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := network.LoadPlan(args[0])
			if err != nil {
				return err
			}
			n, err := a.network()
			if err != nil {
				return err
			}
			res, err := n.Import(plan)
			if err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			if a.cfg.JSON {
				a.printJSON(res)
				return nil
			}
			fmt.Fprintf(a.out, "imported %s: %d new instant(s), %d applied, %d implied, %d rejected, %d restriction(s)\n",
				args[0], res.Instants, res.Applied, res.Implied, res.Rejected, res.Restrictions)
			if res.Rejected > 0 {
				fmt.Fprintln(a.out, styleWarn.Render("  see `chrono log --status rejected`"))
			}
			return nil
		},
	}
}
