package graph

import (
	"errors"

	"github.com/XopheD/chronologic/pkg/timeset"
)

// compose is the (max,+) product of two lower bounds. −∞ (no bound) absorbs
// everything, so the undefined sum +∞ + −∞ is never evaluated.
//
// ok is false when two finite bounds summed past the largest duration. A sum
// below the smallest one saturates to −∞, which only drops a bound, and
// stays ok.
func compose(a, b timeset.Duration) (d timeset.Duration, ok bool) {
	switch {
	case a.IsNegInf() || b.IsNegInf():
		return timeset.NegInf, true
	case a.IsPosInf() || b.IsPosInf():
		return timeset.PosInf, true
	}
	d, ok = a.AddChecked(b)
	return d, ok || d.IsNegInf()
}

// raise sets D[i][j] to v, the composition of a path from i to j, if v is
// tighter. A path bound that overflowed is a positive cycle on the diagonal
// and out of range elsewhere.
func (g *Graph) raise(i, j int, v timeset.Duration, ok bool) error {
	if !ok {
		if i == j {
			return g.fail(i, timeset.PosInf)
		}
		return &RangeError{From: InstantID(i), To: InstantID(j)}
	}
	if g.lower(i, j).Less(v) {
		g.setLower(i, j, v)
	}
	return nil
}

// atomic runs fn and, if it fails with ErrOutOfRange, restores every cell
// and the version to their state before fn. Nested calls join the
// outermost one.
func (g *Graph) atomic(fn func() error) error {
	if g.journaling {
		return fn()
	}
	g.journaling = true
	v := g.version.Value()
	err := fn()
	g.journaling = false
	if errors.Is(err, ErrOutOfRange) {
		for k := len(g.journal) - 1; k >= 0; k-- {
			g.cells[g.journal[k].at] = g.journal[k].old
		}
		g.version.Set(v)
	}
	g.journal = g.journal[:0]
	return err
}

func (g *Graph) fail(i int, excess timeset.Duration) error {
	g.broken = &InconsistencyError{Instant: InstantID(i), Excess: excess}
	g.setLower(i, i, excess)
	return g.broken
}

// firstPositiveDiagonal returns the first instant whose diagonal cell
// exceeds 0, or -1.
func (g *Graph) firstPositiveDiagonal() int {
	for i := range g.n {
		if g.lower(i, i).Sign() > 0 {
			return i
		}
	}
	return -1
}

// AddConstraint asserts t_j − t_i ∈ iv and propagates it incrementally.
//
// The graph must be closed (every earlier change propagated) for the
// incremental pass to reach the same fixed point as PropagateAll; that holds
// unless Tighten was called without a following PropagateAll.
//
// On ErrInconsistent the graph is left inconsistent and every later
// mutation fails with the same error until Reset. On ErrOutOfRange (a
// derived bound beyond the largest Duration) the graph is left exactly as
// it was.
func (g *Graph) AddConstraint(i, j InstantID, iv timeset.Interval) (Outcome, error) {
	if err := g.check(i, j); err != nil {
		return Unchanged, err
	}
	if g.broken != nil {
		return Unchanged, g.broken
	}
	out := Unchanged
	err := g.atomic(func() error {
		var err error
		out, err = g.addConstraint(int(i), int(j), iv)
		return err
	})
	if err != nil {
		return Unchanged, err
	}
	return out, nil
}

func (g *Graph) addConstraint(p, q int, iv timeset.Interval) (Outcome, error) {
	if iv.IsEmpty() {
		return Unchanged, g.fail(p, timeset.PosInf)
	}

	lo, mhi := iv.Lo(), iv.Hi().Neg()
	ij, ji := g.lower(p, q), g.lower(q, p)

	// a bound falling outside the current one closes a positive cycle
	// through i and j without any propagation; an overflowed sum is +∞
	if e, _ := compose(lo, ji); e.Sign() > 0 {
		return Unchanged, g.fail(p, e)
	}
	if e, _ := compose(ij, mhi); e.Sign() > 0 {
		return Unchanged, g.fail(p, e)
	}

	raiseIJ, raiseJI := ij.Less(lo), ji.Less(mhi)
	if !raiseIJ && !raiseJI {
		return Unchanged, nil
	}
	if raiseIJ {
		g.setLower(p, q, lo)
		if err := g.propagateEdge(p, q); err != nil {
			return Unchanged, err
		}
	}
	if raiseJI && g.lower(q, p).Less(mhi) {
		g.setLower(q, p, mhi)
		if err := g.propagateEdge(q, p); err != nil {
			return Unchanged, err
		}
	}
	g.version.Tick()
	return Propagated, nil
}

// propagateEdge pushes a freshly raised D[p][q] through every pair:
// D[i][j] = max(D[i][j], D[i][p] + D[p][q] + D[q][j]). Column p and row q are
// snapshotted first so the pass only follows paths using the edge once.
func (g *Graph) propagateEdge(p, q int) error {
	n := g.n
	col := make([]timeset.Duration, n)
	row := make([]timeset.Duration, n)
	for k := range n {
		col[k] = g.lower(k, p)
		row[k] = g.lower(q, k)
	}
	pq := g.lower(p, q)
	for i := range n {
		ip, ok := compose(col[i], pq)
		if !ok {
			// the new bound on t_q − t_i itself
			return g.raise(i, q, ip, false)
		}
		if ip.IsNegInf() {
			continue
		}
		for j := range n {
			v, ok := compose(ip, row[j])
			if err := g.raise(i, j, v, ok); err != nil {
				return err
			}
		}
	}
	if i := g.firstPositiveDiagonal(); i >= 0 {
		return g.fail(i, g.lower(i, i))
	}
	return nil
}

// PropagateAll closes the whole matrix with the (max,+) Floyd–Warshall
// recurrence, k outermost and in place. It stops at the first positive
// diagonal cell. On ErrOutOfRange the matrix is restored.
func (g *Graph) PropagateAll() error {
	if g.broken != nil {
		return g.broken
	}
	return g.atomic(g.propagateAll)
}

func (g *Graph) propagateAll() error {
	n := g.n
	for k := range n {
		for i := range n {
			ik := g.lower(i, k)
			if ik.IsNegInf() {
				continue
			}
			for j := range n {
				v, ok := compose(ik, g.lower(k, j))
				if err := g.raise(i, j, v, ok); err != nil {
					return err
				}
			}
			if d := g.lower(i, i); d.Sign() > 0 {
				return g.fail(i, d)
			}
		}
	}
	g.version.Tick()
	return nil
}

// Tighten raises D[i][j] and D[j][i] to match iv without propagating. The
// graph is no longer closed until PropagateAll runs; Bound then reports only
// the asserted edges.
func (g *Graph) Tighten(i, j InstantID, iv timeset.Interval) error {
	if err := g.check(i, j); err != nil {
		return err
	}
	if g.broken != nil {
		return g.broken
	}
	p, q := int(i), int(j)
	if iv.IsEmpty() {
		return g.fail(p, timeset.PosInf)
	}
	changed := false
	if lo := iv.Lo(); g.lower(p, q).Less(lo) {
		g.setLower(p, q, lo)
		changed = true
	}
	if mhi := iv.Hi().Neg(); g.lower(q, p).Less(mhi) {
		g.setLower(q, p, mhi)
		changed = true
	}
	if d := g.lower(p, p); d.Sign() > 0 {
		return g.fail(p, d)
	}
	if changed {
		g.version.Tick()
	}
	return nil
}

// Extend bulk-loads constraints: every edge is tightened first, then one
// global propagation closes the matrix. Unlike AddConstraint there is no
// per-constraint feedback; an inconsistent batch leaves the graph
// inconsistent, and a batch whose closure is out of range leaves it as it
// was.
func (g *Graph) Extend(cs []Constraint) error {
	for _, k := range cs {
		if err := g.check(k.From, k.To); err != nil {
			return err
		}
	}
	if len(cs) == 0 {
		return g.Err()
	}
	return g.atomic(func() error {
		for _, k := range cs {
			if err := g.Tighten(k.From, k.To, k.Within); err != nil {
				return err
			}
		}
		return g.PropagateAll()
	})
}

// Merge absorbs the constraints of other: g grows to other's size, takes
// the cell-wise maximum of both matrices, and is closed again. other is not
// modified. On ErrOutOfRange only the growth remains.
func (g *Graph) Merge(other *Graph) error {
	if g.broken != nil {
		return g.broken
	}
	if other.broken != nil {
		return other.broken
	}
	for g.n < other.n {
		g.AddInstant()
	}
	return g.atomic(func() error {
		for i := range other.n {
			for j := range other.n {
				if v := other.lower(i, j); g.lower(i, j).Less(v) {
					g.setLower(i, j, v)
				}
			}
		}
		g.version.Receive(other.Version())
		return g.PropagateAll()
	})
}
