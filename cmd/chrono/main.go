// Command chrono maintains a network of time constraints between labelled
// instants and answers questions about it: tightest bounds, agendas,
// consistency and what may happen next.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/XopheD/chronologic/internal/observability"
	"github.com/XopheD/chronologic/pkg/agenda"
	"github.com/XopheD/chronologic/pkg/graph"
)

const version = "0.4.0"

// Exit codes.
const (
	exitOK           = 0
	exitError        = 1
	exitInconsistent = 2
)

func main() {
	code := run(os.Args[1:], os.Stdout, os.Stderr)
	observability.Sync()
	os.Exit(code)
}

// run executes one command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	root, a := newRootCmd(stdout, stderr)
	defer a.Close()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "chrono: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, graph.ErrInconsistent), errors.Is(err, agenda.ErrEmptySlot):
		return exitInconsistent
	}
	return exitError
}
