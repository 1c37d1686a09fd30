// Package network ties a constraint graph to its persisted log.
//
// A Network owns one graph.Graph, maps instant labels to graph ids, and
// appends every asserted constraint to the store with its outcome. The
// graph itself is never stored: Open replays the clean log (applied and
// implied constraints) with one global propagation.
//
// Because an inconsistent graph is terminal, a rejected constraint is
// recorded as such and the graph is discarded and rebuilt from the clean
// log, so the network stays usable.
//
// Several processes may share one database. A constraint is only appended
// if the log has not moved since this network replayed it; otherwise the
// network rebuilds and decides again.
package network

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/XopheD/chronologic/pkg/agenda"
	"github.com/XopheD/chronologic/pkg/frontier"
	"github.com/XopheD/chronologic/pkg/graph"
	"github.com/XopheD/chronologic/pkg/model"
	"github.com/XopheD/chronologic/pkg/store"
	"github.com/XopheD/chronologic/pkg/timeset"
)

// ErrUnknownInstant is returned for labels that were never registered.
var ErrUnknownInstant = errors.New("unknown instant")

// appendAttempts bounds how often Constrain rebuilds because another
// process appended first.
const appendAttempts = 5

// Network is a labelled, persisted constraint graph. Not goroutine-safe.
type Network struct {
	store  store.StoreInterface
	log    *zap.Logger
	g      *graph.Graph
	ids    map[string]graph.InstantID
	labels []string
	head   int64 // last log entry the graph accounts for
}

// Open rebuilds the network recorded in s. A nil logger discards logs.
func Open(s store.StoreInterface, log *zap.Logger) (*Network, error) {
	if log == nil {
		log = zap.NewNop()
	}
	n := &Network{store: s, log: log}
	if err := n.rebuild(); err != nil {
		return nil, err
	}
	return n, nil
}

// Close closes the underlying store.
func (n *Network) Close() error { return n.store.Close() }

func (n *Network) rebuild() error {
	// head first, then constraints, then instants: whatever lands in
	// between is at worst replayed without being counted in head, and every
	// instant a listed constraint names is listed
	head, err := n.store.LastConstraintID()
	if err != nil {
		return fmt.Errorf("read log head: %w", err)
	}
	logged, err := n.store.ListReplayable()
	if err != nil {
		return fmt.Errorf("list constraints: %w", err)
	}
	instants, err := n.store.ListInstants()
	if err != nil {
		return fmt.Errorf("list instants: %w", err)
	}
	ids := make(map[string]graph.InstantID, len(instants))
	labels := make([]string, len(instants))
	for i, in := range instants {
		if in.ID != int64(i) {
			return fmt.Errorf("instant %q has id %d, want %d: log is not dense", in.Label, in.ID, i)
		}
		ids[in.Label] = graph.InstantID(i)
		labels[i] = in.Label
	}

	g, err := n.replay(len(instants), logged)
	if err != nil {
		return err
	}
	g.Observe(n.store.MaxVersion())

	n.g, n.ids, n.labels, n.head = g, ids, labels, head
	n.log.Debug("network rebuilt",
		zap.Int("instants", len(instants)),
		zap.Int("constraints", len(logged)),
		zap.Int64("head", head),
		zap.Uint64("version", g.Version()),
	)
	return nil
}

// replay builds a graph of size instants from the clean log. The log holds
// only constraints accepted one by one, so a single Extend normally closes
// it. If it does not (a log written by processes that did not check each
// other), the entries are replayed in order and each one that contradicts
// its predecessors is marked rejected.
func (n *Network) replay(size int, logged []model.Constraint) (*graph.Graph, error) {
	g := graph.WithSize(size)
	err := g.Extend(toGraph(logged))
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, graph.ErrInconsistent) && !errors.Is(err, graph.ErrOutOfRange) {
		return nil, fmt.Errorf("replay constraint log: %w", err)
	}
	n.log.Warn("constraint log does not close, replaying entry by entry", zap.Error(err))

	g = graph.WithSize(size)
	for _, c := range logged {
		k := toGraph([]model.Constraint{c})[0]
		saved := g.Clone()
		_, err := g.AddConstraint(k.From, k.To, k.Within)
		switch {
		case err == nil:
			continue
		case !errors.Is(err, graph.ErrInconsistent) && !errors.Is(err, graph.ErrOutOfRange):
			return nil, fmt.Errorf("replay constraint %d: %w", c.ID, err)
		}
		if serr := n.store.SetConstraintStatus(c.ID, model.StatusRejected); serr != nil {
			return nil, fmt.Errorf("reject constraint %d: %w", c.ID, serr)
		}
		n.log.Warn("logged constraint rejected on replay",
			zap.Int64("id", c.ID),
			zap.String("from", c.FromLabel),
			zap.String("to", c.ToLabel),
			zap.Error(err),
		)
		g = saved
	}
	return g, nil
}

func toGraph(cs []model.Constraint) []graph.Constraint {
	out := make([]graph.Constraint, len(cs))
	for i, c := range cs {
		out[i] = graph.Constraint{From: graph.InstantID(c.From), To: graph.InstantID(c.To), Within: c.Interval()}
	}
	return out
}

// Graph exposes the current graph for read-only queries.
func (n *Network) Graph() *graph.Graph { return n.g }

// Labels returns the instant labels indexed by graph id.
func (n *Network) Labels() []string { return append([]string(nil), n.labels...) }

// Label returns the label of id, or "" for an unknown id.
func (n *Network) Label(id graph.InstantID) string {
	if id < 0 || int(id) >= len(n.labels) {
		return ""
	}
	return n.labels[id]
}

// Instant returns the graph id of label.
func (n *Network) Instant(label string) (graph.InstantID, error) {
	id, ok := n.ids[label]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownInstant, label)
	}
	return id, nil
}

// AddInstant registers label, or returns its id if it already exists.
func (n *Network) AddInstant(label string) (graph.InstantID, error) {
	if id, ok := n.ids[label]; ok {
		return id, nil
	}
	in, err := n.store.AddInstant(label)
	if err != nil {
		return 0, fmt.Errorf("add instant %q: %w", label, err)
	}
	if in.ID != int64(n.g.Len()) {
		// another process registered instants since Open
		if err := n.rebuild(); err != nil {
			return 0, err
		}
		return n.Instant(label)
	}
	id := n.g.AddInstant()
	n.ids[label] = id
	n.labels = append(n.labels, label)
	return id, nil
}

// Constrain asserts t_to − t_from ∈ iv and records the outcome. On
// graph.ErrInconsistent the constraint is logged as rejected, the graph is
// rebuilt without it, and the inconsistency is returned. If another process
// appended to the log since the last rebuild, the network rebuilds and
// decides again against the newer log.
func (n *Network) Constrain(from, to string, iv timeset.Interval) (graph.Outcome, error) {
	i, err := n.Instant(from)
	if err != nil {
		return graph.Unchanged, err
	}
	j, err := n.Instant(to)
	if err != nil {
		return graph.Unchanged, err
	}

	for attempt := 1; ; attempt++ {
		out, err := n.constrain(from, to, i, j, iv)
		if !errors.Is(err, store.ErrStaleLog) || attempt == appendAttempts {
			return out, err
		}
		n.log.Debug("constraint log moved, deciding again", zap.Int("attempt", attempt))
	}
}

func (n *Network) constrain(from, to string, i, j graph.InstantID, iv timeset.Interval) (graph.Outcome, error) {
	out, cerr := n.g.AddConstraint(i, j, iv)
	status := model.StatusApplied
	switch {
	case errors.Is(cerr, graph.ErrInconsistent):
		status = model.StatusRejected
	case cerr != nil:
		return graph.Unchanged, cerr
	case out == graph.Unchanged:
		status = model.StatusImplied
	}

	rec := &model.Constraint{
		From: int64(i), To: int64(j),
		Lo: iv.Lo(), Hi: iv.Hi(),
		Status:  status,
		Version: n.g.Version(),
	}
	id, err := n.store.AppendConstraintAfter(n.head, rec)
	if err != nil {
		// the graph holds a decision the log does not; on ErrStaleLog the
		// rebuild also brings in what the other writer appended
		if rerr := n.rebuild(); rerr != nil {
			return graph.Unchanged, errors.Join(err, rerr)
		}
		if errors.Is(err, store.ErrStaleLog) {
			return graph.Unchanged, err
		}
		return graph.Unchanged, fmt.Errorf("append constraint: %w", err)
	}
	n.head = id

	if cerr != nil {
		n.log.Warn("constraint rejected",
			zap.String("from", from),
			zap.String("to", to),
			zap.Stringer("interval", iv),
			zap.Error(cerr),
		)
		if err := n.rebuild(); err != nil {
			return graph.Unchanged, errors.Join(cerr, err)
		}
		return graph.Unchanged, cerr
	}
	return out, nil
}

// Bound returns the tightest interval known for t_to − t_from.
func (n *Network) Bound(from, to string) (timeset.Interval, error) {
	i, err := n.Instant(from)
	if err != nil {
		return timeset.Empty(), err
	}
	j, err := n.Instant(to)
	if err != nil {
		return timeset.Empty(), err
	}
	return n.g.Bound(i, j)
}

// Reference returns the default agenda reference: the stored one, else the
// first registered instant, else "".
func (n *Network) Reference() string {
	if ref := n.store.GetMeta(store.MetaReference); ref != "" {
		return ref
	}
	if len(n.labels) > 0 {
		return n.labels[0]
	}
	return ""
}

// SetReference makes label the default agenda reference.
func (n *Network) SetReference(label string) error {
	if _, err := n.Instant(label); err != nil {
		return err
	}
	return n.store.SetMeta(store.MetaReference, label)
}

// Restrict records a domain for label: with ModeRetain its dates are kept,
// with ModeExclude they are removed. Dates are relative to the agenda
// reference.
func (n *Network) Restrict(label string, iv timeset.Interval, mode model.RestrictMode) error {
	id, err := n.Instant(label)
	if err != nil {
		return err
	}
	switch mode {
	case model.ModeRetain, model.ModeExclude:
	default:
		return fmt.Errorf("restrict %q: unknown mode %q", label, mode)
	}
	rec := &model.Restriction{InstantID: int64(id), Lo: iv.Lo(), Hi: iv.Hi(), Mode: mode}
	if _, err := n.store.AddRestriction(rec); err != nil {
		return fmt.Errorf("add restriction: %w", err)
	}
	return nil
}

// Agenda builds an agenda anchored at ref (the default reference when ref
// is "") with every recorded restriction applied.
func (n *Network) Agenda(ref string) (*agenda.Agenda, error) {
	if ref == "" {
		ref = n.Reference()
	}
	r, err := n.Instant(ref)
	if err != nil {
		return nil, err
	}
	a, err := agenda.New(n.g, r)
	if err != nil {
		return nil, err
	}
	rs, err := n.store.ListRestrictions()
	if err != nil {
		return nil, fmt.Errorf("list restrictions: %w", err)
	}
	for _, rec := range rs {
		id := graph.InstantID(rec.InstantID)
		s := timeset.SetOf(rec.Interval())
		if rec.Mode == model.ModeExclude {
			err = a.Exclude(id, s)
		} else {
			err = a.Restrict(id, s)
		}
		if err != nil {
			return nil, fmt.Errorf("restriction %d: %w", rec.ID, err)
		}
	}
	return a, nil
}

// ScheduleOptions narrows a Schedule. Nil bounds are left open.
type ScheduleOptions struct {
	Startline *timeset.Duration
	Deadline  *timeset.Duration
	// Fix pins labelled instants to single dates.
	Fix map[string]timeset.Duration
}

// Schedule builds a scheduler over the current graph and applies opts. The
// startline and deadline go first, then the pinned instants in label
// order. Slots are absolute dates, not relative to a reference.
func (n *Network) Schedule(opts ScheduleOptions) (*agenda.Scheduler, error) {
	s := agenda.NewScheduler(n.g)
	if opts.Startline != nil {
		if _, err := s.SetStartline(*opts.Startline); err != nil {
			return nil, fmt.Errorf("startline %v: %w", *opts.Startline, err)
		}
	}
	if opts.Deadline != nil {
		if _, err := s.SetDeadline(*opts.Deadline); err != nil {
			return nil, fmt.Errorf("deadline %v: %w", *opts.Deadline, err)
		}
	}
	labels := make([]string, 0, len(opts.Fix))
	for l := range opts.Fix {
		labels = append(labels, l)
	}
	slices.Sort(labels)
	for _, l := range labels {
		id, err := n.Instant(l)
		if err != nil {
			return nil, err
		}
		at := opts.Fix[l]
		if _, err := s.Retain(id, timeset.SetOf(timeset.Point(at))); err != nil {
			return nil, fmt.Errorf("fix %s at %v: %w", l, at, err)
		}
	}
	return s, nil
}

// Frontier returns the labels of the instants nothing is known to precede.
func (n *Network) Frontier() []string {
	ids := frontier.Compute(n.g)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = n.labels[id]
	}
	return out
}

// FrontierStatus tells whether label may occur next and what blocks it.
func (n *Network) FrontierStatus(label string) (frontier.Status, error) {
	id, err := n.Instant(label)
	if err != nil {
		return frontier.Status{}, err
	}
	return frontier.ComputeStatus(n.g, id)
}

// Summary is a snapshot of the network size and health.
type Summary struct {
	Instants    int                    `json:"instants"`
	Constraints map[model.Status]int64 `json:"constraints"`
	Version     uint64                 `json:"version"`
	Consistent  bool                   `json:"consistent"`
	Reference   string                 `json:"reference,omitempty"`
}

func (n *Network) Summary() (Summary, error) {
	counts, err := n.store.CountConstraints()
	if err != nil {
		return Summary{}, fmt.Errorf("count constraints: %w", err)
	}
	return Summary{
		Instants:    n.g.Len(),
		Constraints: counts,
		Version:     n.g.Version(),
		Consistent:  n.g.IsConsistent(),
		Reference:   n.Reference(),
	}, nil
}

// Mismatch is one cell where incremental and global propagation disagree.
type Mismatch struct {
	From        string           `json:"from"`
	To          string           `json:"to"`
	Incremental timeset.Duration `json:"incremental"`
	Global      timeset.Duration `json:"global"`
}

// Verification is the result of Verify.
type Verification struct {
	Instants    int        `json:"instants"`
	Constraints int        `json:"constraints"`
	Mismatches  []Mismatch `json:"mismatches,omitempty"`
}

// OK reports whether both propagations reached the same matrix.
func (v Verification) OK() bool { return len(v.Mismatches) == 0 }

// Verify replays the clean log twice, once constraint by constraint with
// incremental propagation and once with a single global propagation, and
// compares the two matrices cell by cell.
func (n *Network) Verify() (Verification, error) {
	logged, err := n.store.ListReplayable()
	if err != nil {
		return Verification{}, fmt.Errorf("list constraints: %w", err)
	}
	cs := toGraph(logged)
	size := len(n.labels)

	incremental := graph.WithSize(size)
	for _, k := range cs {
		if _, err := incremental.AddConstraint(k.From, k.To, k.Within); err != nil {
			return Verification{}, fmt.Errorf("incremental replay of %v: %w", k, err)
		}
	}
	global := graph.WithSize(size)
	if err := global.Extend(cs); err != nil {
		return Verification{}, fmt.Errorf("global replay: %w", err)
	}

	v := Verification{Instants: size, Constraints: len(cs)}
	inc, glob := incremental.Matrix(), global.Matrix()
	for i := range size {
		for j := range size {
			if !inc[i][j].Equal(glob[i][j]) {
				v.Mismatches = append(v.Mismatches, Mismatch{
					From: n.labels[i], To: n.labels[j],
					Incremental: inc[i][j], Global: glob[i][j],
				})
			}
		}
	}
	return v, nil
}

// Log returns constraint log entries after sinceID.
func (n *Network) Log(sinceID int64, limit int) ([]model.Constraint, error) {
	return n.store.ListConstraints(sinceID, limit)
}
