// Package model defines the records chronologic persists.
//
// A network is rebuilt from three append-only collections:
//
//   - instants: labelled instants, numbered densely in registration order so
//     that the number doubles as the graph InstantID;
//   - constraints: every constraint ever asserted, with the outcome of
//     asserting it. Replaying the applied and implied ones in order
//     reproduces the graph; rejected ones are kept for the log only;
//   - restrictions: domains asserted on single instants for agendas.
package model

import (
	"time"

	"github.com/XopheD/chronologic/pkg/timeset"
)

// Instant is a labelled instant of the network.
type Instant struct {
	ID        int64     `json:"id"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

// Status is the outcome recorded for an asserted constraint.
type Status string

const (
	// StatusApplied: the constraint tightened the network.
	StatusApplied Status = "applied"
	// StatusImplied: the network already entailed the constraint.
	StatusImplied Status = "implied"
	// StatusRejected: the constraint contradicted the network and was
	// discarded.
	StatusRejected Status = "rejected"
)

// Replayable reports whether constraints with this status belong in the
// rebuilt graph.
func (s Status) Replayable() bool { return s == StatusApplied || s == StatusImplied }

// Constraint is one entry of the constraint log: t_To − t_From ∈ [Lo, Hi].
type Constraint struct {
	ID        int64            `json:"id"`
	From      int64            `json:"from"`
	To        int64            `json:"to"`
	FromLabel string           `json:"from_label,omitempty"`
	ToLabel   string           `json:"to_label,omitempty"`
	Lo        timeset.Duration `json:"lo"`
	Hi        timeset.Duration `json:"hi"`
	Status    Status           `json:"status"`
	Version   uint64           `json:"version"`
	CreatedAt time.Time        `json:"created_at"`
}

// Interval returns [Lo, Hi].
func (c Constraint) Interval() timeset.Interval { return timeset.NewInterval(c.Lo, c.Hi) }

// RestrictMode tells how a restriction narrows an instant's domain.
type RestrictMode string

const (
	// ModeRetain keeps only the dates of the interval.
	ModeRetain RestrictMode = "retain"
	// ModeExclude removes the dates of the interval.
	ModeExclude RestrictMode = "exclude"
)

// Restriction is a domain asserted on one instant, in dates relative to the
// agenda reference.
type Restriction struct {
	ID        int64            `json:"id"`
	InstantID int64            `json:"instant_id"`
	Label     string           `json:"label,omitempty"`
	Lo        timeset.Duration `json:"lo"`
	Hi        timeset.Duration `json:"hi"`
	Mode      RestrictMode     `json:"mode"`
	CreatedAt time.Time        `json:"created_at"`
}

// Interval returns [Lo, Hi].
func (r Restriction) Interval() timeset.Interval { return timeset.NewInterval(r.Lo, r.Hi) }
