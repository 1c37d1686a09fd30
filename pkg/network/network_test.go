package network

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/XopheD/chronologic/pkg/graph"
	"github.com/XopheD/chronologic/pkg/model"
	"github.com/XopheD/chronologic/pkg/store"
	"github.com/XopheD/chronologic/pkg/timeset"
)

func span(lo, hi int64) timeset.Interval {
	return timeset.NewInterval(timeset.Ticks(lo), timeset.Ticks(hi))
}

func hours(lo, hi int) timeset.Interval {
	return timeset.NewInterval(
		timeset.FromStd(time.Duration(lo)*time.Hour),
		timeset.FromStd(time.Duration(hi)*time.Hour),
	)
}

func openTestNetwork(t *testing.T, path string) *Network {
	t.Helper()
	s, err := store.New(path)
	require.NoError(t, err)
	n, err := Open(s, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { n.Close() })
	return n
}

func newTestNetwork(t *testing.T, labels ...string) *Network {
	t.Helper()
	n := openTestNetwork(t, filepath.Join(t.TempDir(), "net.db"))
	for _, l := range labels {
		_, err := n.AddInstant(l)
		require.NoError(t, err)
	}
	return n
}

func TestAddInstantIdempotent(t *testing.T) {
	n := newTestNetwork(t, "a", "b")
	id, err := n.AddInstant("a")
	require.NoError(t, err)
	assert.Equal(t, graph.InstantID(0), id)
	assert.Equal(t, []string{"a", "b"}, n.Labels())
	assert.Equal(t, "b", n.Label(1))
	assert.Equal(t, "", n.Label(7))
	assert.Equal(t, 2, n.Graph().Len())
}

func TestConstrainPropagatesAndLogs(t *testing.T) {
	n := newTestNetwork(t, "a", "b", "c")

	out, err := n.Constrain("a", "b", span(1, 5))
	require.NoError(t, err)
	assert.Equal(t, graph.Propagated, out)
	out, err = n.Constrain("b", "c", span(1, 5))
	require.NoError(t, err)
	assert.Equal(t, graph.Propagated, out)

	b, err := n.Bound("a", "c")
	require.NoError(t, err)
	assert.Equal(t, span(2, 10), b)

	// already entailed
	v := n.Graph().Version()
	out, err = n.Constrain("a", "c", span(0, 20))
	require.NoError(t, err)
	assert.Equal(t, graph.Unchanged, out)
	assert.Equal(t, v, n.Graph().Version())

	logged, err := n.Log(0, 0)
	require.NoError(t, err)
	require.Len(t, logged, 3)
	assert.Equal(t, model.StatusApplied, logged[0].Status)
	assert.Equal(t, model.StatusImplied, logged[2].Status)
	assert.Equal(t, "a", logged[2].FromLabel)
	assert.Equal(t, "c", logged[2].ToLabel)
	assert.Less(t, logged[0].Version, logged[1].Version)
}

func TestRejectedConstraintKeepsNetworkUsable(t *testing.T) {
	n := newTestNetwork(t, "a", "b", "c")
	_, err := n.Constrain("a", "b", span(1, 5))
	require.NoError(t, err)
	_, err = n.Constrain("b", "c", span(1, 5))
	require.NoError(t, err)
	before := n.Graph().Version()

	_, err = n.Constrain("c", "a", span(0, 100))
	require.ErrorIs(t, err, graph.ErrInconsistent)

	assert.True(t, n.Graph().IsConsistent())
	assert.Greater(t, n.Graph().Version(), before)
	b, err := n.Bound("a", "c")
	require.NoError(t, err)
	assert.Equal(t, span(2, 10), b)

	logged, err := n.Log(0, 0)
	require.NoError(t, err)
	require.Len(t, logged, 3)
	assert.Equal(t, model.StatusRejected, logged[2].Status)

	sum, err := n.Summary()
	require.NoError(t, err)
	assert.Equal(t, int64(2), sum.Constraints[model.StatusApplied])
	assert.Equal(t, int64(1), sum.Constraints[model.StatusRejected])
	assert.True(t, sum.Consistent)
}

func TestEmptyIntervalRejected(t *testing.T) {
	n := newTestNetwork(t, "a", "b")
	_, err := n.Constrain("a", "b", timeset.Empty())
	require.ErrorIs(t, err, graph.ErrInconsistent)
	assert.True(t, n.Graph().IsConsistent())
}

func TestUnknownInstant(t *testing.T) {
	n := newTestNetwork(t, "a")
	_, err := n.Constrain("a", "nope", span(0, 1))
	require.ErrorIs(t, err, ErrUnknownInstant)
	_, err = n.Bound("nope", "a")
	require.ErrorIs(t, err, ErrUnknownInstant)
	require.ErrorIs(t, n.SetReference("nope"), ErrUnknownInstant)
	require.ErrorIs(t, n.Restrict("nope", span(0, 1), model.ModeRetain), ErrUnknownInstant)
}

func TestReopenReplaysLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.db")

	s, err := store.New(path)
	require.NoError(t, err)
	n, err := Open(s, nil)
	require.NoError(t, err)
	for _, l := range []string{"a", "b", "c"} {
		_, err := n.AddInstant(l)
		require.NoError(t, err)
	}
	_, err = n.Constrain("a", "b", span(1, 5))
	require.NoError(t, err)
	_, err = n.Constrain("b", "c", span(1, 5))
	require.NoError(t, err)
	_, err = n.Constrain("c", "a", span(0, 1))
	require.ErrorIs(t, err, graph.ErrInconsistent)
	last := n.Graph().Version()
	want := n.Graph().Matrix()
	require.NoError(t, n.Close())

	m := openTestNetwork(t, path)
	assert.Equal(t, []string{"a", "b", "c"}, m.Labels())
	assert.Equal(t, want, m.Graph().Matrix())
	assert.GreaterOrEqual(t, m.Graph().Version(), last)

	id, err := m.AddInstant("d")
	require.NoError(t, err)
	assert.Equal(t, graph.InstantID(3), id)
}

func TestNetworksSharingOneLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.db")
	first := openTestNetwork(t, path)
	for _, l := range []string{"a", "b"} {
		_, err := first.AddInstant(l)
		require.NoError(t, err)
	}
	second := openTestNetwork(t, path)

	out, err := first.Constrain("a", "b", span(5, 5))
	require.NoError(t, err)
	assert.Equal(t, graph.Propagated, out)

	// second has not seen [5,5] yet and must not log [0,1] as applied
	_, err = second.Constrain("a", "b", span(0, 1))
	require.ErrorIs(t, err, graph.ErrInconsistent)
	b, err := second.Bound("a", "b")
	require.NoError(t, err)
	assert.Equal(t, span(5, 5), b)

	out, err = second.Constrain("a", "b", span(0, 10))
	require.NoError(t, err)
	assert.Equal(t, graph.Unchanged, out)

	fresh := openTestNetwork(t, path)
	b, err = fresh.Bound("a", "b")
	require.NoError(t, err)
	assert.Equal(t, span(5, 5), b)

	logged, err := fresh.Log(0, 0)
	require.NoError(t, err)
	require.Len(t, logged, 3)
	assert.Equal(t, model.StatusApplied, logged[0].Status)
	assert.Equal(t, model.StatusRejected, logged[1].Status)
	assert.Equal(t, model.StatusImplied, logged[2].Status)
}

func TestOpenRejectsContradictoryLogEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.db")
	s, err := store.New(path)
	require.NoError(t, err)
	a, err := s.AddInstant("a")
	require.NoError(t, err)
	b, err := s.AddInstant("b")
	require.NoError(t, err)
	for _, iv := range []timeset.Interval{span(5, 5), span(0, 1), span(4, 6)} {
		_, err := s.AppendConstraint(&model.Constraint{
			From: a.ID, To: b.ID, Lo: iv.Lo(), Hi: iv.Hi(), Status: model.StatusApplied,
		})
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())

	n := openTestNetwork(t, path)
	bound, err := n.Bound("a", "b")
	require.NoError(t, err)
	assert.Equal(t, span(5, 5), bound)

	logged, err := n.Log(0, 0)
	require.NoError(t, err)
	require.Len(t, logged, 3)
	assert.Equal(t, model.StatusApplied, logged[0].Status)
	assert.Equal(t, model.StatusRejected, logged[1].Status)
	assert.Equal(t, model.StatusApplied, logged[2].Status)

	v, err := n.Verify()
	require.NoError(t, err)
	assert.True(t, v.OK())

	again := openTestNetwork(t, path)
	bound, err = again.Bound("a", "b")
	require.NoError(t, err)
	assert.Equal(t, span(5, 5), bound)
}

func TestConstrainOutOfRange(t *testing.T) {
	n := newTestNetwork(t, "a", "b", "c")
	big := timeset.Point(timeset.Ticks(1 << 62))
	_, err := n.Constrain("a", "b", big)
	require.NoError(t, err)
	_, err = n.Constrain("b", "c", big)
	require.ErrorIs(t, err, graph.ErrOutOfRange)
	assert.True(t, n.Graph().IsConsistent())

	logged, err := n.Log(0, 0)
	require.NoError(t, err)
	assert.Len(t, logged, 1)
}

func TestVerify(t *testing.T) {
	n := newTestNetwork(t, "a", "b", "c", "d")
	for _, k := range []struct {
		from, to string
		iv       timeset.Interval
	}{
		{"a", "b", span(1, 5)},
		{"b", "c", span(2, 3)},
		{"a", "d", span(0, 20)},
		{"d", "c", span(-4, 4)},
		{"a", "c", span(0, 6)},
	} {
		_, err := n.Constrain(k.from, k.to, k.iv)
		require.NoError(t, err)
	}
	v, err := n.Verify()
	require.NoError(t, err)
	assert.True(t, v.OK(), "mismatches: %v", v.Mismatches)
	assert.Equal(t, 4, v.Instants)
	assert.Equal(t, 5, v.Constraints)
}

func TestAgendaAppliesRestrictions(t *testing.T) {
	n := newTestNetwork(t, "start", "end")
	_, err := n.Constrain("start", "end", span(0, 10))
	require.NoError(t, err)
	require.NoError(t, n.Restrict("end", span(2, 3), model.ModeExclude))
	require.NoError(t, n.Restrict("end", span(-5, 8), model.ModeRetain))

	assert.Equal(t, "start", n.Reference())
	a, err := n.Agenda("")
	require.NoError(t, err)
	slot, err := a.Slot(1)
	require.NoError(t, err)
	assert.Equal(t, []timeset.Interval{span(0, 1), span(4, 8)}, slot.Intervals())

	require.NoError(t, n.SetReference("end"))
	assert.Equal(t, "end", n.Reference())
	a, err = n.Agenda("")
	require.NoError(t, err)
	assert.Equal(t, graph.InstantID(1), a.Reference())

	_, err = n.Agenda("nope")
	require.ErrorIs(t, err, ErrUnknownInstant)
}

func TestFrontier(t *testing.T) {
	n := newTestNetwork(t, "wake", "coffee", "mail")
	_, err := n.Constrain("wake", "coffee", span(1, 10))
	require.NoError(t, err)
	assert.Equal(t, []string{"wake", "mail"}, n.Frontier())

	st, err := n.FrontierStatus("coffee")
	require.NoError(t, err)
	assert.False(t, st.Ready)
	assert.Equal(t, []graph.InstantID{0}, st.BlockedBy)

	st, err = n.FrontierStatus("mail")
	require.NoError(t, err)
	assert.True(t, st.Ready)
}

func TestNetworkHours(t *testing.T) {
	n := newTestNetwork(t, "open", "close")
	_, err := n.Constrain("open", "close", hours(8, 10))
	require.NoError(t, err)
	b, err := n.Bound("close", "open")
	require.NoError(t, err)
	assert.Equal(t, hours(-10, -8), b)
}

func TestSchedule(t *testing.T) {
	n := newTestNetwork(t, "a", "b", "c")
	_, err := n.Constrain("a", "b", hours(10, 24))
	require.NoError(t, err)
	_, err = n.Constrain("b", "c", hours(-3, 3))
	require.NoError(t, err)

	zero := timeset.Ticks(0)
	end := timeset.FromStd(48 * time.Hour)
	s, err := n.Schedule(ScheduleOptions{Startline: &zero, Deadline: &end})
	require.NoError(t, err)
	slots := s.Slots()
	require.Len(t, slots, 3)
	assert.Equal(t, []timeset.Interval{hours(0, 38)}, slots[0].Intervals())
	assert.Equal(t, []timeset.Interval{hours(10, 48)}, slots[1].Intervals())

	s, err = n.Schedule(ScheduleOptions{
		Fix: map[string]timeset.Duration{"a": timeset.FromStd(2 * time.Hour)},
	})
	require.NoError(t, err)
	slot, err := s.Slot(1)
	require.NoError(t, err)
	assert.Equal(t, []timeset.Interval{hours(12, 26)}, slot.Intervals())

	_, err = n.Schedule(ScheduleOptions{Fix: map[string]timeset.Duration{"nope": zero}})
	require.ErrorIs(t, err, ErrUnknownInstant)
}

const samplePlan = `
reference = "start"

[[instant]]
label = "start"

[[constraint]]
from = "start"
to = "end"
min = "2h"
max = "4h"

[[constraint]]
from = "end"
to = "start"
min = "0"
max = "+inf"

[[constraint]]
from = "start"
to = "end"
min = "1h"

[[restrict]]
instant = "end"
min = "3h"
max = "10h"
`

func TestImportPlan(t *testing.T) {
	p, err := ParsePlan([]byte(samplePlan))
	require.NoError(t, err)
	require.Len(t, p.Constraints, 3)
	assert.Equal(t, timeset.PosInf, p.Constraints[2].Interval().Hi())

	n := newTestNetwork(t)
	res, err := n.Import(p)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Instants: 2, Applied: 1, Implied: 1, Rejected: 1, Restrictions: 1}, res)
	assert.Equal(t, "start", n.Reference())

	a, err := n.Agenda("")
	require.NoError(t, err)
	slot, err := a.Slot(1)
	require.NoError(t, err)
	assert.Equal(t, []timeset.Interval{hours(3, 4)}, slot.Intervals())
}

func TestParsePlanErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"syntax":       "[[constraint]\n",
		"missing to":   "[[constraint]]\nfrom = \"a\"\n",
		"bad duration": "[[constraint]]\nfrom = \"a\"\nto = \"b\"\nmin = \"soon\"\n",
		"bad mode":     "[[restrict]]\ninstant = \"a\"\nmode = \"sideways\"\n",
		"empty label":  "[[instant]]\nlabel = \"\"\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePlan([]byte(doc))
			require.Error(t, err)
		})
	}
}
