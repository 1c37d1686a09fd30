package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/XopheD/chronologic/internal/config"
)

// newRootCmd builds the command tree. The returned app must be closed once
// the command ran.
func newRootCmd(stdout, stderr io.Writer) (*cobra.Command, *app) {
	a := &app{v: viper.New(), out: stdout, err: stderr}

	root := &cobra.Command{
		Use:   "chrono",
		Short: "Simple temporal networks on the command line",
		Long: `chrono records time constraints between labelled instants
("boil happens 8 to 12 minutes after start") in a SQLite database,
propagates them, and answers questions about the result.

Durations accept Go notation (90m, -1h30m), a bare number of nanoseconds,
or +inf/-inf. A missing --min is -inf and a missing --max is +inf.

Exit codes:
  0  success
  1  error
  2  inconsistent constraints or an instant left with no possible date`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.initConfig(cmd); err != nil {
				return err
			}
			return a.load()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default .chrono.toml)")
	pf.String("db", config.DefaultDB, "SQLite database path (env CHRONO_DB)")
	pf.Bool("json", false, "JSON output")
	pf.String("log-level", "warn", "log level: debug, info, warn, error")
	_ = a.v.BindPFlag("db", pf.Lookup("db"))
	_ = a.v.BindPFlag("json", pf.Lookup("json"))
	_ = a.v.BindPFlag("log.level", pf.Lookup("log-level"))

	root.AddCommand(
		newInitCmd(a),
		newInstantCmd(a),
		newConstrainCmd(a),
		newBoundCmd(a),
		newAgendaCmd(a),
		newRestrictCmd(a),
		newScheduleCmd(a),
		newReferenceCmd(a),
		newCheckCmd(a),
		newVerifyCmd(a),
		newFrontierCmd(a),
		newLogCmd(a),
		newImportCmd(a),
		newStatusCmd(a),
		newWatchCmd(a),
		newVersionCmd(a),
	)
	return root, a
}

func (a *app) initConfig(cmd *cobra.Command) error {
	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
	} else {
		a.v.SetConfigName(".chrono")
		a.v.SetConfigType("toml")
		a.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home)
		}
	}

	a.v.SetEnvPrefix("CHRONO")
	a.v.SetEnvKeyReplacer(config.EnvKeyReplacer)
	a.v.AutomaticEnv()

	// a missing config file is fine; defaults apply
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the chrono version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.JSON {
				a.printJSON(map[string]string{"version": version})
				return nil
			}
			fmt.Fprintln(a.out, "chrono", version)
			return nil
		},
	}
}
