package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/XopheD/chronologic/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the network status whenever the database changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if debounce <= 0 {
				debounce = a.cfg.Watch.Debounce
			}
			if _, err := a.network(); err != nil {
				return err
			}
			w, err := watch.New(a.cfg.DB, debounce, a.log.Named("watch"))
			if err != nil {
				return fmt.Errorf("watch: %w", err)
			}
			if err := w.Start(); err != nil {
				return fmt.Errorf("watch %s: %w", a.cfg.DB, err)
			}
			defer w.Stop()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(a.err, "watching %s (ctrl-c to stop)\n", a.cfg.DB)
			if err := a.printWatchLine(); err != nil {
				return err
			}
			for {
				select {
				case <-ctx.Done():
					fmt.Fprintln(a.err, "\nstopped")
					return nil
				case _, ok := <-w.Changes:
					if !ok {
						return nil
					}
					// another process wrote: rebuild from the log
					if _, err := a.reopen(); err != nil {
						a.log.Warn("rebuild failed", zap.Error(err))
						continue
					}
					if err := a.printWatchLine(); err != nil {
						a.log.Warn("status failed", zap.Error(err))
					}
				}
			}
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "quiet period before reporting (default from config)")
	return cmd
}

// printWatchLine prints one line per change; with --json one JSON object.
func (a *app) printWatchLine() error {
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
		b, _ := json.Marshal(map[string]any{"summary": sum, "frontier": frontier})
		fmt.Fprintln(a.out, string(b))
		return nil
	}
	fmt.Fprintf(a.out, "[v=%d] %d instant(s), frontier: %s\n",
		sum.Version, sum.Instants, strings.Join(frontier, ", "))
	return nil
}
