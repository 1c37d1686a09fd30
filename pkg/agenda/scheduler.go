package agenda

import (
	"fmt"
	"slices"
	"strings"

	"github.com/XopheD/chronologic/pkg/graph"
	"github.com/XopheD/chronologic/pkg/timeset"
)

// Scheduler keeps one slot per instant, initially every date, and
// propagates each restriction through the graph: narrowing slot i narrows
// every slot j to slot[j] ∩ (slot[i] ⊕ bound(i, j)).
//
// Several schedulers can explore different choices over the same graph.
// When the graph changes under a scheduler, the slots it holds are narrowed
// again through the new bounds on next use.
type Scheduler struct {
	g     *graph.Graph
	slots []timeset.Set
	seen  uint64
}

func NewScheduler(g *graph.Graph) *Scheduler {
	s := &Scheduler{g: g, seen: g.Version()}
	s.grow()
	return s
}

// grow gives instants registered after the scheduler was built an
// unrestricted slot.
func (s *Scheduler) grow() {
	for len(s.slots) < s.g.Len() {
		s.slots = append(s.slots, timeset.All())
	}
}

// sync brings the slots up to date with the graph: every restricted slot is
// pushed again through the current bounds. A slot may come out empty when
// the new constraints rule out the dates chosen so far.
func (s *Scheduler) sync() {
	s.grow()
	if s.seen == s.g.Version() || !s.g.IsConsistent() {
		return
	}
	s.seen = s.g.Version()
	from := slices.Clone(s.slots)
	for i, slot := range from {
		if slot.IsAll() {
			continue
		}
		for k := range s.g.ConstraintsFrom(graph.InstantID(i)) {
			j := k.To
			s.slots[j] = timeset.Collect(timeset.IntersectSeq(s.slots[j].Seq(), timeset.ShiftSeq(slot.Seq(), k.Within)))
		}
	}
}

func (s *Scheduler) Slot(i graph.InstantID) (timeset.Set, error) {
	if _, err := s.g.Lower(i, i); err != nil {
		return timeset.EmptySet(), err
	}
	s.sync()
	return s.slots[i], nil
}

// Slots returns a copy of every slot, indexed by instant id.
func (s *Scheduler) Slots() []timeset.Set {
	s.sync()
	return slices.Clone(s.slots)
}

// Retain keeps only the dates of s in the slot of i and propagates. It
// fails with ErrEmptySlot, leaving every slot untouched, if any slot would
// become empty.
func (s *Scheduler) Retain(i graph.InstantID, keep timeset.Set) (graph.Outcome, error) {
	if _, err := s.g.Lower(i, i); err != nil {
		return graph.Unchanged, err
	}
	if err := s.g.Err(); err != nil {
		return graph.Unchanged, err
	}
	s.sync()

	next := s.slots[i].Intersect(keep)
	switch {
	case next.Equal(s.slots[i]):
		return graph.Unchanged, nil
	case next.IsEmpty():
		return graph.Unchanged, fmt.Errorf("%w: t%d", ErrEmptySlot, i)
	}

	updated := slices.Clone(s.slots)
	updated[i] = next
	for k := range s.g.ConstraintsFrom(i) {
		j := k.To
		reach := timeset.IntersectSeq(updated[j].Seq(), timeset.ShiftSeq(next.Seq(), k.Within))
		if timeset.IsEmptySeq(reach) {
			return graph.Unchanged, fmt.Errorf("%w: t%d through t%d", ErrEmptySlot, j, i)
		}
		updated[j] = timeset.Collect(reach)
	}
	s.slots = updated
	return graph.Propagated, nil
}

// Remove drops the dates of s from the slot of i; see Retain.
func (s *Scheduler) Remove(i graph.InstantID, drop timeset.Set) (graph.Outcome, error) {
	return s.Retain(i, drop.Complement())
}

// SetStartline forces every instant to occur at or after t.
func (s *Scheduler) SetStartline(t timeset.Duration) (graph.Outcome, error) {
	s.sync()
	for i, slot := range s.slots {
		if slot.Hi().Less(t) {
			return graph.Unchanged, fmt.Errorf("%w: t%d ends before %v", ErrEmptySlot, i, t)
		}
	}
	return s.retainAll(timeset.SetOf(timeset.AtLeast(t)))
}

// SetDeadline forces every instant to occur at or before t.
func (s *Scheduler) SetDeadline(t timeset.Duration) (graph.Outcome, error) {
	s.sync()
	for i, slot := range s.slots {
		if t.Less(slot.Lo()) {
			return graph.Unchanged, fmt.Errorf("%w: t%d starts after %v", ErrEmptySlot, i, t)
		}
	}
	return s.retainAll(timeset.SetOf(timeset.AtMost(t)))
}

func (s *Scheduler) retainAll(keep timeset.Set) (graph.Outcome, error) {
	saved := slices.Clone(s.slots)
	result := graph.Unchanged
	for i := range s.slots {
		out, err := s.Retain(graph.InstantID(i), keep)
		if err != nil {
			s.slots = saved
			return graph.Unchanged, err
		}
		if out == graph.Propagated {
			result = graph.Propagated
		}
	}
	return result, nil
}

// Startline returns the earliest date any instant may take.
func (s *Scheduler) Startline() timeset.Duration {
	start := timeset.PosInf
	for _, slot := range s.Slots() {
		start = timeset.Min(start, slot.Lo())
	}
	return start
}

// Deadline returns the latest date any instant may take.
func (s *Scheduler) Deadline() timeset.Duration {
	end := timeset.NegInf
	for _, slot := range s.Slots() {
		end = timeset.Max(end, slot.Hi())
	}
	return end
}

func (s *Scheduler) String() string {
	var b strings.Builder
	for i, slot := range s.Slots() {
		fmt.Fprintf(&b, "t%d in %v\n", i, slot)
	}
	return b.String()
}
