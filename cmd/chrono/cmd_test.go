package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XopheD/chronologic/pkg/agenda"
	"github.com/XopheD/chronologic/pkg/graph"
	"github.com/XopheD/chronologic/pkg/timeset"
)

// chrono runs one command line against db and returns stdout and the exit
// code.
func chrono(t *testing.T, db string, args ...string) (string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(append(args, "--db", db), &out, &errOut)
	if code != exitOK {
		t.Logf("chrono %v: exit %d: %s", args, code, errOut.String())
	}
	return out.String(), code
}

func mustChrono(t *testing.T, db string, args ...string) string {
	t.Helper()
	out, code := chrono(t, db, args...)
	require.Equal(t, exitOK, code, "chrono %v", args)
	return out
}

func newTestDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "chrono.db")
}

// --- helpers ---

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{errors.New("boom"), exitError},
		{fmt.Errorf("wrapped: %w", graph.ErrInconsistent), exitInconsistent},
		{&graph.InconsistencyError{Instant: 1, Excess: timeset.Ticks(3)}, exitInconsistent},
		{fmt.Errorf("%w: end", agenda.ErrEmptySlot), exitInconsistent},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestBoundsFlags(t *testing.T) {
	iv, err := boundsFlags("", "")
	require.NoError(t, err)
	assert.True(t, iv.IsUnbounded())

	iv, err = boundsFlags("1h", "")
	require.NoError(t, err)
	assert.Equal(t, "[1h0m0s,+inf]", iv.String())

	_, err = boundsFlags("soon", "")
	assert.Error(t, err)
}

// --- commands ---

func TestInit(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "sub", "chrono.db")
	cfgFile := filepath.Join(dir, ".chrono.toml")

	out := mustChrono(t, db, "init", "--ref", "start", "--config-file", cfgFile)
	assert.Contains(t, out, "initialized chrono")
	assert.Contains(t, out, "reference: start")

	data, err := os.ReadFile(cfgFile)
	require.NoError(t, err)
	assert.Regexp(t, `reference = ['"]start['"]`, string(data))

	// a second init keeps the existing file
	out = mustChrono(t, db, "init", "--config-file", cfgFile)
	assert.NotContains(t, out, "wrote")
	assert.Contains(t, out, "1 existing instant(s)")
}

func TestConstrainAndBound(t *testing.T) {
	db := newTestDB(t)
	mustChrono(t, db, "instant", "add", "a", "b", "c")

	out := mustChrono(t, db, "constrain", "a", "b", "--min", "1h", "--max", "5h")
	assert.Contains(t, out, "applied")
	mustChrono(t, db, "constrain", "b", "c", "--min", "1h", "--max", "5h")

	out = mustChrono(t, db, "bound", "a", "c")
	assert.Contains(t, out, "c - a in [2h0m0s,10h0m0s]")
	assert.Contains(t, out, "a before c")

	out = mustChrono(t, db, "constrain", "a", "c", "--max", "20h")
	assert.Contains(t, out, "implied")

	out = mustChrono(t, db, "instant", "list")
	assert.Contains(t, out, "t2")
	assert.Contains(t, out, "(reference)")
}

func TestConstrainInconsistentExitsTwo(t *testing.T) {
	db := newTestDB(t)
	mustChrono(t, db, "constrain", "a", "b", "--min", "1h", "--max", "5h")

	out, code := chrono(t, db, "constrain", "b", "a", "--min", "1h")
	assert.Equal(t, exitInconsistent, code)
	assert.Contains(t, out, "rejected")

	// the network still works and the rejection is logged
	out = mustChrono(t, db, "check")
	assert.Contains(t, out, "CONSISTENT")
	out = mustChrono(t, db, "log", "--status", "rejected")
	assert.Contains(t, out, "a - b in [1h0m0s,+inf]")
}

func TestUnknownInstantExitsOne(t *testing.T) {
	db := newTestDB(t)
	mustChrono(t, db, "instant", "add", "a")
	_, code := chrono(t, db, "bound", "a", "nope")
	assert.Equal(t, exitError, code)
}

func TestBoundJSON(t *testing.T) {
	db := newTestDB(t)
	mustChrono(t, db, "constrain", "a", "b", "--min=-2h", "--max", "3h")

	out := mustChrono(t, db, "bound", "b", "a", "--json")
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "[-3h0m0s,2h0m0s]", got["bound"])
	assert.Equal(t, "unordered", got["order"])
	assert.Equal(t, false, got["distinct"])
}

func TestAgendaRestrictAndCheck(t *testing.T) {
	db := newTestDB(t)
	mustChrono(t, db, "constrain", "start", "end", "--min", "0s", "--max", "10h")
	mustChrono(t, db, "restrict", "end", "--min", "2h", "--max", "3h", "--exclude")

	out := mustChrono(t, db, "agenda")
	assert.Contains(t, out, "agenda from start")
	assert.Contains(t, out, "[0s,1h59m59.999999999s]U[3h0m0.000000001s,10h0m0s]")

	out = mustChrono(t, db, "agenda", "--json")
	var got struct {
		Reference string     `json:"reference"`
		Slots     []slotInfo `json:"slots"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "start", got.Reference)
	require.Len(t, got.Slots, 2)
	assert.Equal(t, "[0s,0s]", got.Slots[0].Slot)

	mustChrono(t, db, "restrict", "end", "--min", "11h")
	out, code := chrono(t, db, "check")
	assert.Equal(t, exitInconsistent, code)
	assert.Contains(t, out, "no possible date for end")
}

func TestReference(t *testing.T) {
	db := newTestDB(t)
	mustChrono(t, db, "constrain", "start", "end", "--min", "1h", "--max", "1h")
	assert.Equal(t, "start\n", mustChrono(t, db, "reference"))
	mustChrono(t, db, "reference", "end")

	out := mustChrono(t, db, "agenda")
	assert.Contains(t, out, "agenda from end")
	assert.Contains(t, out, "[-1h0m0s,-1h0m0s]")

	out = mustChrono(t, db, "agenda", "--ref", "start")
	assert.Contains(t, out, "agenda from start")
}

func TestScheduleCommand(t *testing.T) {
	db := newTestDB(t)
	mustChrono(t, db, "constrain", "a", "b", "--min", "10h", "--max", "24h")

	out := mustChrono(t, db, "schedule", "--startline", "0s", "--deadline", "48h")
	assert.Contains(t, out, "[0s,38h0m0s]")
	assert.Contains(t, out, "[10h0m0s,48h0m0s]")

	out = mustChrono(t, db, "schedule", "--fix", "a=2h")
	assert.Contains(t, out, "[12h0m0s,26h0m0s]")

	_, code := chrono(t, db, "schedule", "--fix", "a=2h", "--deadline", "5h")
	assert.Equal(t, exitInconsistent, code)
}

func TestFrontierCommand(t *testing.T) {
	db := newTestDB(t)
	mustChrono(t, db, "constrain", "wake", "coffee", "--min", "5m")
	mustChrono(t, db, "instant", "add", "mail")

	out := mustChrono(t, db, "frontier")
	assert.Contains(t, out, "wake")
	assert.Contains(t, out, "mail")
	assert.NotContains(t, out, "coffee")

	out = mustChrono(t, db, "frontier", "coffee")
	assert.Contains(t, out, "BLOCKED")
	assert.Contains(t, out, "after wake")
}

func TestVerifyCommand(t *testing.T) {
	db := newTestDB(t)
	mustChrono(t, db, "constrain", "a", "b", "--min", "1h", "--max", "5h")
	mustChrono(t, db, "constrain", "b", "c", "--min", "2h", "--max", "3h")
	mustChrono(t, db, "constrain", "a", "c", "--max", "6h")

	out := mustChrono(t, db, "verify")
	assert.Contains(t, out, "OK 3 constraint(s) over 3 instant(s)")
}

func TestImportCommand(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "chrono.db")
	plan := filepath.Join(dir, "plan.toml")
	require.NoError(t, os.WriteFile(plan, []byte(`
reference = "start"

[[constraint]]
from = "start"
to = "boil"
min = "8m"
max = "12m"

[[constraint]]
from = "boil"
to = "start"
min = "1m"

[[restrict]]
instant = "boil"
max = "10m"
`), 0o644))

	out := mustChrono(t, db, "import", plan)
	assert.Contains(t, out, "2 new instant(s), 1 applied, 0 implied, 1 rejected, 1 restriction(s)")

	out = mustChrono(t, db, "agenda")
	assert.Contains(t, out, "[8m0s,10m0s]")

	out = mustChrono(t, db, "status", "--json")
	var got struct {
		Summary struct {
			Instants    int              `json:"instants"`
			Constraints map[string]int64 `json:"constraints"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 2, got.Summary.Instants)
	assert.Equal(t, int64(1), got.Summary.Constraints["rejected"])
}

func TestStatusAndVersion(t *testing.T) {
	db := newTestDB(t)
	mustChrono(t, db, "constrain", "a", "b", "--min", "1h")

	out := mustChrono(t, db, "status")
	assert.Contains(t, out, "instants:    2")
	assert.Contains(t, out, "1 applied, 0 implied, 0 rejected")
	assert.Contains(t, out, "frontier:\n  a\n")

	out = mustChrono(t, db, "version")
	assert.Equal(t, "chrono "+version+"\n", out)
}
