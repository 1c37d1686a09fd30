// Package timeset implements the time algebra used by the constraint graph:
// durations with explicit infinite bounds, closed intervals of durations,
// and canonical unions of disjoint intervals.
//
// All values are immutable. Operators come in two forms: eager methods that
// return new values (Interval.Intersect, Set.Union, ...) and lazy adapters
// over iter.Seq[Interval] (UnionSeq, IntersectSeq, ...) that compose sorted
// interval sequences without building intermediate sets.
//
// One tick is one nanosecond, so a finite Duration converts to and from
// time.Duration without loss.
//
// Finite durations are int64 tick counts, about ±292 years. Arithmetic that
// leaves that range saturates to the infinity of its sign, and Succ of the
// largest finite duration is +∞. Set laws such as double complement and
// translation round trips therefore hold only for sets whose finite bounds
// stay inside the range after the operation.
package timeset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Duration is a signed number of ticks, or one of the two unbounded values
// +∞ and −∞. The zero value is a finite zero duration.
type Duration struct {
	ticks int64
	inf   int8 // -1 for −∞, +1 for +∞, 0 when finite
}

var (
	// PosInf is the unbounded future, greater than every finite duration.
	PosInf = Duration{inf: 1}
	// NegInf is the unbounded past, less than every finite duration.
	NegInf = Duration{inf: -1}
)

// Ticks returns a finite duration of n ticks.
func Ticks(n int64) Duration { return Duration{ticks: n} }

// FromStd converts a time.Duration.
func FromStd(d time.Duration) Duration { return Duration{ticks: int64(d)} }

// Std converts a finite duration to time.Duration. ok is false for ±∞.
func (d Duration) Std() (time.Duration, bool) {
	if d.inf != 0 {
		return 0, false
	}
	return time.Duration(d.ticks), true
}

// Ticks returns the raw tick count. It is meaningless for ±∞.
func (d Duration) Ticks() int64 { return d.ticks }

func (d Duration) IsFinite() bool { return d.inf == 0 }
func (d Duration) IsPosInf() bool { return d.inf > 0 }
func (d Duration) IsNegInf() bool { return d.inf < 0 }

// Sign returns -1, 0 or +1.
func (d Duration) Sign() int {
	switch {
	case d.inf != 0:
		return int(d.inf)
	case d.ticks > 0:
		return 1
	case d.ticks < 0:
		return -1
	}
	return 0
}

// Cmp returns -1, 0 or +1 depending on whether d is less than, equal to or
// greater than o.
func (d Duration) Cmp(o Duration) int {
	if d.inf != o.inf {
		if d.inf < o.inf {
			return -1
		}
		return 1
	}
	if d.inf != 0 || d.ticks == o.ticks {
		return 0
	}
	if d.ticks < o.ticks {
		return -1
	}
	return 1
}

func (d Duration) Less(o Duration) bool { return d.Cmp(o) < 0 }

func (d Duration) Equal(o Duration) bool { return d.Cmp(o) == 0 }

// Neg returns −d. The infinities swap.
func (d Duration) Neg() Duration {
	if d.inf != 0 {
		return Duration{inf: -d.inf}
	}
	if d.ticks == math.MinInt64 {
		return PosInf
	}
	return Duration{ticks: -d.ticks}
}

// Add returns d + o. An infinite operand absorbs any finite one, and a finite
// overflow saturates to the infinity of its sign. Adding +∞ and −∞ is
// undefined and panics: callers composing bounds must never reach it.
func (d Duration) Add(o Duration) Duration {
	s, _ := d.AddChecked(o)
	return s
}

// AddChecked is Add that also reports whether the sum is exact: ok is
// false when two finite operands overflowed and the result saturated.
func (d Duration) AddChecked(o Duration) (sum Duration, ok bool) {
	switch {
	case d.inf != 0 && o.inf != 0 && d.inf != o.inf:
		panic("timeset: undefined sum of +inf and -inf")
	case d.inf != 0:
		return d, true
	case o.inf != 0:
		return o, true
	}
	s := d.ticks + o.ticks
	// overflow iff both operands share a sign that the result lacks
	if (d.ticks >= 0) == (o.ticks >= 0) && (s >= 0) != (d.ticks >= 0) {
		if d.ticks >= 0 {
			return PosInf, false
		}
		return NegInf, false
	}
	return Duration{ticks: s}, true
}

// Sub returns d − o, with the same rules as Add.
func (d Duration) Sub(o Duration) Duration { return d.Add(o.Neg()) }

// Succ returns the duration one tick after d. Infinities are unchanged.
func (d Duration) Succ() Duration {
	if d.inf != 0 {
		return d
	}
	if d.ticks == math.MaxInt64 {
		return PosInf
	}
	return Duration{ticks: d.ticks + 1}
}

// Pred returns the duration one tick before d. Infinities are unchanged.
func (d Duration) Pred() Duration {
	if d.inf != 0 {
		return d
	}
	if d.ticks == math.MinInt64 {
		return NegInf
	}
	return Duration{ticks: d.ticks - 1}
}

func Max(a, b Duration) Duration {
	if a.Less(b) {
		return b
	}
	return a
}

func Min(a, b Duration) Duration {
	if b.Less(a) {
		return b
	}
	return a
}

// String renders ±∞ as "+inf"/"-inf" and finite values in time.Duration
// notation.
func (d Duration) String() string {
	switch {
	case d.inf > 0:
		return "+inf"
	case d.inf < 0:
		return "-inf"
	}
	return time.Duration(d.ticks).String()
}

// ParseDuration accepts "+inf", "inf", "-inf", a Go duration string such as
// "90m" or "-1h30m", or a bare integer number of ticks.
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "+inf", "inf", "+oo", "oo":
		return PosInf, nil
	case "-inf", "-oo":
		return NegInf, nil
	case "":
		return Duration{}, fmt.Errorf("parse duration: empty string")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Ticks(n), nil
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return Duration{}, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return FromStd(td), nil
}

// MarshalText encodes the duration as its tick count, or as "+inf"/"-inf".
// The integer form keeps the encoding exact for the store.
func (d Duration) MarshalText() ([]byte, error) {
	if d.inf != 0 {
		return []byte(d.String()), nil
	}
	return []byte(strconv.FormatInt(d.ticks, 10)), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
