// Package agenda derives feasible windows from a constraint graph.
//
// An Agenda anchors the graph at a reference instant (date 0) and answers,
// for every other instant, the set of dates it may take: the bound from the
// reference, narrowed by any domain the caller asserted for that instant.
// Slots are computed on demand and cached until the graph or the asserted
// domains change.
//
// A Scheduler goes one step further and propagates restrictions on one
// instant to the others through the graph bounds.
//
// Neither type is goroutine-safe; use them under graph.Shared.Update when
// the graph is shared.
package agenda

import (
	"errors"
	"fmt"

	"github.com/XopheD/chronologic/pkg/clock"
	"github.com/XopheD/chronologic/pkg/graph"
	"github.com/XopheD/chronologic/pkg/timeset"
)

// ErrEmptySlot is returned when a scheduler restriction would leave an
// instant with no possible date. The scheduler is left unchanged.
var ErrEmptySlot = errors.New("restriction leaves no possible date")

// Agenda is a lazily computed view of a graph from a reference instant.
type Agenda struct {
	g   *graph.Graph
	ref graph.InstantID

	domains  map[graph.InstantID]timeset.Set
	restrict clock.Clock

	slots      []timeset.Set
	cached     []bool
	seenGraph  uint64
	seenDomain uint64
}

// New returns an agenda over g anchored at ref.
func New(g *graph.Graph, ref graph.InstantID) (*Agenda, error) {
	if _, err := g.Lower(ref, ref); err != nil {
		return nil, fmt.Errorf("agenda reference: %w", err)
	}
	return &Agenda{
		g:       g,
		ref:     ref,
		domains: make(map[graph.InstantID]timeset.Set),
	}, nil
}

// Reference returns the instant taken as date 0.
func (a *Agenda) Reference() graph.InstantID { return a.ref }

// IsConsistent delegates to the graph.
func (a *Agenda) IsConsistent() bool { return a.g.IsConsistent() }

func (a *Agenda) refresh() {
	n := a.g.Len()
	if a.seenGraph == a.g.Version() && !a.restrict.Stale(a.seenDomain) && len(a.slots) == n {
		return
	}
	a.slots = make([]timeset.Set, n)
	a.cached = make([]bool, n)
	a.seenGraph = a.g.Version()
	a.seenDomain = a.restrict.Value()
}

// Slot returns the dates instant i may take: bound(ref, i) ∩ domain(i).
func (a *Agenda) Slot(i graph.InstantID) (timeset.Set, error) {
	if err := a.g.Err(); err != nil {
		return timeset.EmptySet(), err
	}
	b, err := a.g.Bound(a.ref, i)
	if err != nil {
		return timeset.EmptySet(), err
	}
	a.refresh()
	if a.cached[i] {
		return a.slots[i], nil
	}
	slot := timeset.SetOf(b)
	if d, ok := a.domains[i]; ok {
		slot = timeset.Collect(timeset.IntersectSeq(b.Seq(), d.Seq()))
	}
	a.slots[i], a.cached[i] = slot, true
	return slot, nil
}

// Slots returns every slot, indexed by instant id.
func (a *Agenda) Slots() ([]timeset.Set, error) {
	out := make([]timeset.Set, a.g.Len())
	for i := range out {
		s, err := a.Slot(graph.InstantID(i))
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (a *Agenda) domain(i graph.InstantID) timeset.Set {
	if d, ok := a.domains[i]; ok {
		return d
	}
	return timeset.All()
}

// Restrict narrows the asserted domain of i to domain(i) ∩ s.
func (a *Agenda) Restrict(i graph.InstantID, s timeset.Set) error {
	if _, err := a.g.Lower(i, i); err != nil {
		return err
	}
	a.domains[i] = a.domain(i).Intersect(s)
	a.restrict.Tick()
	return nil
}

// Exclude removes s from the asserted domain of i.
func (a *Agenda) Exclude(i graph.InstantID, s timeset.Set) error {
	if _, err := a.g.Lower(i, i); err != nil {
		return err
	}
	a.domains[i] = a.domain(i).Exclude(s)
	a.restrict.Tick()
	return nil
}

// Startline returns the earliest date of any slot, +∞ when every slot is
// empty.
func (a *Agenda) Startline() (timeset.Duration, error) {
	slots, err := a.Slots()
	if err != nil {
		return timeset.Duration{}, err
	}
	start := timeset.PosInf
	for _, s := range slots {
		start = timeset.Min(start, s.Lo())
	}
	return start, nil
}

// Deadline returns the latest date of any slot, −∞ when every slot is
// empty.
func (a *Agenda) Deadline() (timeset.Duration, error) {
	slots, err := a.Slots()
	if err != nil {
		return timeset.Duration{}, err
	}
	end := timeset.NegInf
	for _, s := range slots {
		end = timeset.Max(end, s.Hi())
	}
	return end, nil
}

// Empty returns the instants left with no possible date.
func (a *Agenda) Empty() ([]graph.InstantID, error) {
	slots, err := a.Slots()
	if err != nil {
		return nil, err
	}
	var out []graph.InstantID
	for i, s := range slots {
		if s.IsEmpty() {
			out = append(out, graph.InstantID(i))
		}
	}
	return out, nil
}
