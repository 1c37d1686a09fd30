package main

import (
	"errors"
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

// starterConfig is written by `chrono init` when no config file exists.
type starterConfig struct {
	DB        string `toml:"db"`
	Reference string `toml:"reference,omitempty"`
	Log       struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
}

func newInitCmd(a *app) *cobra.Command {
	var (
		ref        string
		configFile string
		skipConfig bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and a starter .chrono.toml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := a.network()
			if err != nil {
				return err
			}
			if ref != "" {
				if _, err := n.AddInstant(ref); err != nil {
					return err
				}
				if err := n.SetReference(ref); err != nil {
					return err
				}
			}

			wrote := false
			if !skipConfig {
				wrote, err = writeStarterConfig(configFile, a.cfg.DB, ref)
				if err != nil {
					return fmt.Errorf("init: %w", err)
				}
			}

			if a.cfg.JSON {
				result := map[string]any{
					"db":        a.cfg.DB,
					"instants":  n.Graph().Len(),
					"reference": n.Reference(),
				}
				if wrote {
					result["config"] = configFile
				}
				a.printJSON(result)
				return nil
			}
			fmt.Fprintf(a.out, "initialized chrono (db: %s)\n", a.cfg.DB)
			if l := n.Graph().Len(); l > 0 {
				fmt.Fprintf(a.out, "  %d existing instant(s)\n", l)
			}
			if r := n.Reference(); r != "" {
				fmt.Fprintf(a.out, "  reference: %s\n", r)
			}
			if wrote {
				fmt.Fprintf(a.out, "  wrote %s\n", configFile)
			}
			fmt.Fprintln(a.out)
			fmt.Fprintln(a.out, "next steps:")
			fmt.Fprintln(a.out, "  chrono instant add start end")
			fmt.Fprintln(a.out, "  chrono constrain start end --min 1h --max 2h")
			fmt.Fprintln(a.out, "  chrono agenda")
			return nil
		},
	}
	cmd.Flags().StringVar(&ref, "ref", "", "register this instant and make it the agenda reference")
	cmd.Flags().StringVar(&configFile, "config-file", ".chrono.toml", "starter config file to write")
	cmd.Flags().BoolVar(&skipConfig, "skip-config", false, "don't write a config file")
	return cmd
}

// writeStarterConfig writes path unless it already exists. It reports
// whether it wrote anything.
func writeStarterConfig(path, db, ref string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	var c starterConfig
	c.DB, c.Reference = db, ref
	c.Log.Level, c.Log.Format = "warn", "console"
	data, err := toml.Marshal(c)
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}
