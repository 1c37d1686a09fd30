package graph

import (
	"errors"
	"fmt"
	"math"

	"github.com/XopheD/chronologic/pkg/timeset"
)

var (
	// ErrInconsistent is returned once the constraints admit no schedule.
	// The graph that returned it stays inconsistent.
	ErrInconsistent = errors.New("inconsistent time constraints")

	// ErrInvalidInstant is returned for ids outside 0..Len()-1.
	ErrInvalidInstant = errors.New("invalid instant")

	// ErrOutOfRange is returned when a derived bound would exceed the
	// largest finite Duration. The graph is left as it was.
	ErrOutOfRange = errors.New("bound out of range")
)

// InconsistencyError details the positive cycle found by propagation:
// Instant would have to occur Excess after itself. It matches
// ErrInconsistent with errors.Is.
type InconsistencyError struct {
	Instant InstantID
	Excess  timeset.Duration
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%v: t%d would occur %v after itself", ErrInconsistent, e.Instant, e.Excess)
}

func (e *InconsistencyError) Unwrap() error { return ErrInconsistent }

// RangeError names the pair whose lower bound on t_To − t_From overflowed.
// It matches ErrOutOfRange with errors.Is.
type RangeError struct {
	From InstantID
	To   InstantID
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%v: t%d - t%d exceeds %v", ErrOutOfRange, e.To, e.From, timeset.Ticks(math.MaxInt64))
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }

// Outcome tells whether a successful call tightened anything.
type Outcome int

const (
	// Unchanged: the constraint was already implied by the graph.
	Unchanged Outcome = iota
	// Propagated: at least one bound was raised.
	Propagated
)

func (o Outcome) String() string {
	if o == Propagated {
		return "propagated"
	}
	return "unchanged"
}
