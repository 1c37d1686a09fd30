package agenda

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XopheD/chronologic/pkg/graph"
	"github.com/XopheD/chronologic/pkg/timeset"
)

func span(lo, hi int64) timeset.Interval {
	return timeset.NewInterval(timeset.Ticks(lo), timeset.Ticks(hi))
}

func h(n int) timeset.Duration { return timeset.FromStd(time.Duration(n) * time.Hour) }

func hours(lo, hi int) timeset.Interval { return timeset.NewInterval(h(lo), h(hi)) }

func TestSlotFromReference(t *testing.T) {
	g := graph.WithSize(2)
	_, err := g.AddConstraint(0, 1, span(3, 3))
	require.NoError(t, err)

	a, err := New(g, 0)
	require.NoError(t, err)
	slot, err := a.Slot(1)
	require.NoError(t, err)
	assert.Equal(t, []timeset.Interval{span(3, 3)}, slot.Intervals())

	slot, err = a.Slot(0)
	require.NoError(t, err)
	assert.Equal(t, []timeset.Interval{span(0, 0)}, slot.Intervals())
	assert.True(t, a.IsConsistent())
}

func TestSlotFollowsGraphChanges(t *testing.T) {
	g := graph.WithSize(3)
	a, err := New(g, 0)
	require.NoError(t, err)

	slot, err := a.Slot(2)
	require.NoError(t, err)
	assert.True(t, slot.IsAll())

	_, err = g.AddConstraint(0, 1, span(1, 5))
	require.NoError(t, err)
	_, err = g.AddConstraint(1, 2, span(1, 5))
	require.NoError(t, err)
	slot, err = a.Slot(2)
	require.NoError(t, err)
	assert.Equal(t, []timeset.Interval{span(2, 10)}, slot.Intervals())

	// an instant registered after the agenda is visible too
	g.AddInstant()
	slot, err = a.Slot(3)
	require.NoError(t, err)
	assert.True(t, slot.IsAll())
}

func TestRestrictAndExclude(t *testing.T) {
	g := graph.WithSize(2)
	_, err := g.AddConstraint(0, 1, span(0, 10))
	require.NoError(t, err)
	a, err := New(g, 0)
	require.NoError(t, err)

	require.NoError(t, a.Restrict(1, timeset.SetOf(span(-5, 4), span(8, 20))))
	require.NoError(t, a.Exclude(1, timeset.SetOf(span(2, 3))))
	slot, err := a.Slot(1)
	require.NoError(t, err)
	assert.Equal(t, []timeset.Interval{span(0, 1), span(4, 4), span(8, 10)}, slot.Intervals())

	start, err := a.Startline()
	require.NoError(t, err)
	assert.Equal(t, timeset.Ticks(0), start)
	end, err := a.Deadline()
	require.NoError(t, err)
	assert.Equal(t, timeset.Ticks(10), end)

	require.NoError(t, a.Restrict(1, timeset.SetOf(span(50, 60))))
	empty, err := a.Empty()
	require.NoError(t, err)
	assert.Equal(t, []graph.InstantID{1}, empty)
}

func TestAgendaErrors(t *testing.T) {
	g := graph.WithSize(2)
	_, err := New(g, 5)
	assert.ErrorIs(t, err, graph.ErrInvalidInstant)

	a, err := New(g, 0)
	require.NoError(t, err)
	_, err = a.Slot(9)
	assert.ErrorIs(t, err, graph.ErrInvalidInstant)
	assert.ErrorIs(t, a.Restrict(9, timeset.All()), graph.ErrInvalidInstant)

	_, err = g.AddConstraint(0, 1, timeset.Empty())
	require.ErrorIs(t, err, graph.ErrInconsistent)
	assert.False(t, a.IsConsistent())
	_, err = a.Slot(1)
	assert.ErrorIs(t, err, graph.ErrInconsistent)
}

func planGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.WithSize(3)
	for _, k := range []graph.Constraint{
		{From: 0, To: 1, Within: hours(0, 5)},
		{From: 1, To: 2, Within: hours(7, 10)},
		{From: 0, To: 2, Within: hours(10, 25)},
	} {
		_, err := g.AddConstraint(k.From, k.To, k.Within)
		require.NoError(t, err)
	}
	return g
}

func TestSchedulerStartlineAndDeadline(t *testing.T) {
	s := NewScheduler(planGraph(t))

	out, err := s.SetStartline(h(0))
	require.NoError(t, err)
	assert.Equal(t, graph.Propagated, out)
	out, err = s.SetDeadline(h(48))
	require.NoError(t, err)
	assert.Equal(t, graph.Propagated, out)

	want := []timeset.Interval{hours(0, 38), hours(0, 41), hours(10, 48)}
	for i, iv := range want {
		slot, err := s.Slot(graph.InstantID(i))
		require.NoError(t, err)
		assert.Equal(t, []timeset.Interval{iv}, slot.Intervals(), "t%d", i)
	}
	assert.Equal(t, h(0), s.Startline())
	assert.Equal(t, h(48), s.Deadline())

	out, err = s.SetStartline(h(0))
	require.NoError(t, err)
	assert.Equal(t, graph.Unchanged, out)

	_, err = s.SetDeadline(h(-1))
	assert.ErrorIs(t, err, ErrEmptySlot)
}

func TestSchedulerRetainPropagates(t *testing.T) {
	s := NewScheduler(planGraph(t))
	out, err := s.Retain(0, timeset.SetOf(timeset.Point(h(0))))
	require.NoError(t, err)
	assert.Equal(t, graph.Propagated, out)

	slot, _ := s.Slot(1)
	assert.Equal(t, []timeset.Interval{hours(0, 5)}, slot.Intervals())
	slot, _ = s.Slot(2)
	assert.Equal(t, []timeset.Interval{hours(10, 15)}, slot.Intervals())
	assert.Equal(t, "t0 in [0s,0s]\nt1 in [0s,5h0m0s]\nt2 in [10h0m0s,15h0m0s]\n", s.String())
}

func TestSchedulerEmptySlotLeavesStateUnchanged(t *testing.T) {
	s := NewScheduler(planGraph(t))
	_, err := s.Retain(0, timeset.SetOf(hours(0, 1)))
	require.NoError(t, err)
	before := s.Slots()

	_, err = s.Retain(0, timeset.SetOf(hours(2, 3)))
	assert.ErrorIs(t, err, ErrEmptySlot)
	after := s.Slots()
	for i := range before {
		assert.True(t, before[i].Equal(after[i]), "t%d changed: %v -> %v", i, before[i], after[i])
	}
}

func TestSchedulerRemove(t *testing.T) {
	s := NewScheduler(graph.WithSize(1))
	_, err := s.Remove(0, timeset.SetOf(span(1, 2)))
	require.NoError(t, err)
	slot, _ := s.Slot(0)
	assert.Equal(t, []timeset.Interval{timeset.AtMost(timeset.Ticks(0)), timeset.AtLeast(timeset.Ticks(3))}, slot.Intervals())
}

func TestSchedulerFollowsGraphChanges(t *testing.T) {
	g := planGraph(t)
	s := NewScheduler(g)
	_, err := s.Retain(0, timeset.SetOf(timeset.Point(h(0))))
	require.NoError(t, err)

	_, err = g.AddConstraint(0, 1, hours(2, 3))
	require.NoError(t, err)
	slot, err := s.Slot(1)
	require.NoError(t, err)
	assert.Equal(t, []timeset.Interval{hours(2, 3)}, slot.Intervals())
	slot, err = s.Slot(2)
	require.NoError(t, err)
	assert.Equal(t, []timeset.Interval{hours(10, 13)}, slot.Intervals())

	id := g.AddInstant()
	slot, err = s.Slot(id)
	require.NoError(t, err)
	assert.True(t, slot.IsAll())
}

func TestSchedulerGraphChangeEmptiesSlot(t *testing.T) {
	g := planGraph(t)
	s := NewScheduler(g)
	_, err := s.Retain(0, timeset.SetOf(timeset.Point(h(0))))
	require.NoError(t, err)
	_, err = s.Retain(1, timeset.SetOf(hours(0, 1)))
	require.NoError(t, err)

	// consistent for the graph, but not with the dates already chosen
	_, err = g.AddConstraint(0, 1, hours(4, 5))
	require.NoError(t, err)
	slot, err := s.Slot(1)
	require.NoError(t, err)
	assert.True(t, slot.IsEmpty())
}
