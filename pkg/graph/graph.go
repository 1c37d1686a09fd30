// Package graph implements a Simple Temporal Network: instants linked by
// duration constraints, kept closed under the (max,+) semiring.
//
// The network is a dense matrix D where D[i][j] is the tightest known lower
// bound on t_j − t_i. The upper bound on t_j − t_i is −D[j][i] and is never
// stored separately. The diagonal is 0 while the network is consistent; a
// positive diagonal cell means some instant would have to occur strictly
// after itself, and that state is terminal.
//
// A Graph is not goroutine-safe. Wrap it in Shared when several goroutines
// need it.
package graph

import (
	"fmt"
	"strings"

	"github.com/XopheD/chronologic/pkg/clock"
	"github.com/XopheD/chronologic/pkg/timeset"
)

// InstantID identifies an instant. Ids are dense: 0..Len()-1, in order of
// registration.
type InstantID int

// Constraint asserts t_To − t_From ∈ Within.
type Constraint struct {
	From   InstantID
	To     InstantID
	Within timeset.Interval
}

func (k Constraint) String() string {
	return fmt.Sprintf("t%d - t%d in %v", k.To, k.From, k.Within)
}

// Graph is a growable (max,+) matrix of durations.
//
// Cells live in one flat slice laid out so that registering instant n only
// appends 2n+1 cells at the end:
//
//	 0 |  3 |  8 | 15
//	 1 |  2 |  7 | 14
//	 4 |  5 |  6 | 13
//	 9 | 10 | 11 | 12
type Graph struct {
	n       int
	cells   []timeset.Duration
	version clock.Clock
	broken  *InconsistencyError

	// cells overwritten since the outermost atomic call began
	journal    []undo
	journaling bool
}

type undo struct {
	at  int
	old timeset.Duration
}

// New returns an empty graph.
func New() *Graph { return &Graph{} }

// WithSize returns a graph with n unconstrained instants.
func WithSize(n int) *Graph {
	g := &Graph{cells: make([]timeset.Duration, 0, n*n)}
	for range n {
		g.AddInstant()
	}
	return g
}

func idx(i, j int) int {
	if i >= j {
		return i*i + j
	}
	return j*j + 2*j - i
}

func (g *Graph) lower(i, j int) timeset.Duration { return g.cells[idx(i, j)] }

func (g *Graph) setLower(i, j int, d timeset.Duration) {
	k := idx(i, j)
	if g.journaling {
		g.journal = append(g.journal, undo{at: k, old: g.cells[k]})
	}
	g.cells[k] = d
}

// AddInstant registers a new instant, unconstrained with respect to every
// other one, and returns its id.
func (g *Graph) AddInstant() InstantID {
	n := g.n
	for range 2*n + 1 {
		g.cells = append(g.cells, timeset.NegInf)
	}
	g.n++
	g.setLower(n, n, timeset.Ticks(0))
	g.version.Tick()
	return InstantID(n)
}

// Len returns the number of instants.
func (g *Graph) Len() int { return g.n }

// Version returns the logical version of the matrix. It moves on every
// successful mutation, so a view computed at an older version is stale.
func (g *Graph) Version() uint64 { return g.version.Value() }

// Observe moves the version past v. A graph rebuilt from a log that
// recorded versions up to v uses it so that its versions keep increasing
// across rebuilds.
func (g *Graph) Observe(v uint64) { g.version.Receive(v) }

// IsConsistent reports whether no diagonal cell exceeds 0.
func (g *Graph) IsConsistent() bool { return g.broken == nil }

// Err returns the inconsistency that broke the graph, or nil.
func (g *Graph) Err() error {
	if g.broken == nil {
		return nil
	}
	return g.broken
}

func (g *Graph) check(ids ...InstantID) error {
	for _, i := range ids {
		if i < 0 || int(i) >= g.n {
			return fmt.Errorf("%w: t%d (graph has %d instants)", ErrInvalidInstant, i, g.n)
		}
	}
	return nil
}

// Bound returns the tightest known interval for t_j − t_i,
// [D[i][j], −D[j][i]].
func (g *Graph) Bound(i, j InstantID) (timeset.Interval, error) {
	if err := g.check(i, j); err != nil {
		return timeset.Empty(), err
	}
	return g.bound(int(i), int(j)), nil
}

func (g *Graph) bound(i, j int) timeset.Interval {
	return timeset.NewInterval(g.lower(i, j), g.lower(j, i).Neg())
}

// Lower returns the raw matrix cell D[i][j].
func (g *Graph) Lower(i, j InstantID) (timeset.Duration, error) {
	if err := g.check(i, j); err != nil {
		return timeset.Duration{}, err
	}
	return g.lower(int(i), int(j)), nil
}

// Matrix returns a dense copy of D, row by row.
func (g *Graph) Matrix() [][]timeset.Duration {
	m := make([][]timeset.Duration, g.n)
	for i := range m {
		m[i] = make([]timeset.Duration, g.n)
		for j := range m[i] {
			m[i][j] = g.lower(i, j)
		}
	}
	return m
}

// Clone returns an independent copy, version and inconsistency included.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		n:     g.n,
		cells: make([]timeset.Duration, len(g.cells)),
	}
	copy(c.cells, g.cells)
	c.version.Set(g.Version())
	if g.broken != nil {
		b := *g.broken
		c.broken = &b
	}
	return c
}

// Reset drops every constraint but keeps the instants. It is the only way
// out of the inconsistent state.
func (g *Graph) Reset() {
	for i := range g.cells {
		g.cells[i] = timeset.NegInf
	}
	for i := range g.n {
		g.setLower(i, i, timeset.Ticks(0))
	}
	g.broken = nil
	g.version.Tick()
}

func (g *Graph) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[graph with %d instants]\n", g.n)
	count := 0
	for k := range g.Constraints() {
		fmt.Fprintf(&b, "   %v\n", k)
		count++
	}
	fmt.Fprintf(&b, "[with %d constraints]\n", count)
	return b.String()
}
