package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/XopheD/chronologic/internal/config"
	"github.com/XopheD/chronologic/internal/observability"
	"github.com/XopheD/chronologic/pkg/network"
	"github.com/XopheD/chronologic/pkg/store"
	"github.com/XopheD/chronologic/pkg/timeset"
)

// app holds shared state for all CLI subcommands.
type app struct {
	v   *viper.Viper
	cfg config.Config
	log *zap.Logger
	out io.Writer
	err io.Writer
	net *network.Network
}

// load resolves the configuration and the logger. It runs before every
// subcommand.
func (a *app) load() error {
	cfg, err := config.LoadFrom(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	observability.InitializeLogger(cfg.Log)
	a.log = observability.GetLogger()
	return nil
}

// network opens the database on first use and rebuilds the network from it.
func (a *app) network() (*network.Network, error) {
	if a.net != nil {
		return a.net, nil
	}
	dbPath := a.cfg.DB
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cannot create %s: %w", dir, err)
		}
	}
	s, err := store.New(dbPath, store.WithLogger(a.log.Named("store")))
	if err != nil {
		return nil, fmt.Errorf("cannot open database %q: %w", dbPath, err)
	}
	n, err := network.Open(s, a.log.Named("network"))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("cannot rebuild network from %q: %w", dbPath, err)
	}
	a.net = n
	return n, nil
}

// reopen drops the current network so the next call rebuilds it.
func (a *app) reopen() (*network.Network, error) {
	a.Close()
	return a.network()
}

// Close releases the database connection.
func (a *app) Close() {
	if a.net != nil {
		a.net.Close()
		a.net = nil
	}
}

// reference picks the agenda reference: the flag, then the configuration,
// then whatever the network stores.
func (a *app) reference(flagVal string) string {
	if flagVal != "" {
		return flagVal
	}
	return a.cfg.Reference
}

// printJSON writes v as indented JSON.
func (a *app) printJSON(v any) {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// boundsFlags reads --min/--max into an interval. A missing bound is open.
func boundsFlags(lo, hi string) (timeset.Interval, error) {
	if lo == "" {
		lo = "-inf"
	}
	if hi == "" {
		hi = "+inf"
	}
	return timeset.ParseInterval(lo, hi)
}
