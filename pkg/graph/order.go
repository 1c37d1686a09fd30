package graph

import (
	"iter"

	"github.com/XopheD/chronologic/pkg/timeset"
)

// Order is the necessary ordering between two instants.
type Order int

const (
	// Unordered: the constraints allow either instant to come first.
	Unordered Order = iota
	// Before: the first instant occurs strictly before the second.
	Before
	// After: the first instant occurs strictly after the second.
	After
	// Simultaneous: both instants occur at the same date.
	Simultaneous
)

func (o Order) String() string {
	switch o {
	case Before:
		return "before"
	case After:
		return "after"
	case Simultaneous:
		return "simultaneous"
	}
	return "unordered"
}

// Compare returns how t_i is necessarily placed with respect to t_j.
func (g *Graph) Compare(i, j InstantID) (Order, error) {
	if err := g.check(i, j); err != nil {
		return Unordered, err
	}
	ij, ji := g.lower(int(i), int(j)), g.lower(int(j), int(i))
	switch {
	case ij.Sign() > 0:
		return Before, nil
	case ji.Sign() > 0:
		return After, nil
	case ij.Sign() == 0 && ji.Sign() == 0:
		return Simultaneous, nil
	}
	return Unordered, nil
}

// Distinct reports whether t_i and t_j can never coincide.
func (g *Graph) Distinct(i, j InstantID) (bool, error) {
	b, err := g.Bound(i, j)
	if err != nil {
		return false, err
	}
	return !b.Contains(timeset.Ticks(0)), nil
}

// Constraints yields every non-trivial bound of the graph once, from the
// lower id to the higher one. Bounds equal to [−∞, +∞] are skipped.
func (g *Graph) Constraints() iter.Seq[Constraint] {
	return func(yield func(Constraint) bool) {
		for j := range g.n {
			for i := range j {
				b := g.bound(i, j)
				if b.IsUnbounded() {
					continue
				}
				if !yield(Constraint{From: InstantID(i), To: InstantID(j), Within: b}) {
					return
				}
			}
		}
	}
}

// ConstraintsFrom yields the non-trivial bounds t_j − t_i for every j ≠ i.
// It yields nothing for an unknown instant.
func (g *Graph) ConstraintsFrom(i InstantID) iter.Seq[Constraint] {
	return func(yield func(Constraint) bool) {
		if g.check(i) != nil {
			return
		}
		for j := range g.n {
			if j == int(i) {
				continue
			}
			b := g.bound(int(i), j)
			if b.IsUnbounded() {
				continue
			}
			if !yield(Constraint{From: i, To: InstantID(j), Within: b}) {
				return
			}
		}
	}
}
