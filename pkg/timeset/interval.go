package timeset

// Interval is a closed range [lo, hi] of durations. The zero value is the
// canonical empty interval: every empty interval compares equal to it.
type Interval struct {
	lo, hi Duration
	ok     bool
}

// Empty returns the canonical empty interval.
func Empty() Interval { return Interval{} }

// Unbounded returns [−∞, +∞].
func Unbounded() Interval { return Interval{lo: NegInf, hi: PosInf, ok: true} }

// NewInterval returns [lo, hi], or the empty interval when no duration
// satisfies lo ≤ x ≤ hi (lo > hi, lo = +∞ or hi = −∞).
func NewInterval(lo, hi Duration) Interval {
	if hi.Less(lo) || lo.IsPosInf() || hi.IsNegInf() {
		return Interval{}
	}
	return Interval{lo: lo, hi: hi, ok: true}
}

// Point returns the singleton [d, d].
func Point(d Duration) Interval { return NewInterval(d, d) }

// AtLeast returns [lo, +∞].
func AtLeast(lo Duration) Interval { return NewInterval(lo, PosInf) }

// AtMost returns [−∞, hi].
func AtMost(hi Duration) Interval { return NewInterval(NegInf, hi) }

// Lo returns the lower bound, +∞ for the empty interval.
func (a Interval) Lo() Duration {
	if !a.ok {
		return PosInf
	}
	return a.lo
}

// Hi returns the upper bound, −∞ for the empty interval.
func (a Interval) Hi() Duration {
	if !a.ok {
		return NegInf
	}
	return a.hi
}

func (a Interval) IsEmpty() bool { return !a.ok }

// IsUnbounded reports whether a is [−∞, +∞].
func (a Interval) IsUnbounded() bool { return a.ok && a.lo.IsNegInf() && a.hi.IsPosInf() }

func (a Interval) IsSingleton() bool { return a.ok && a.lo == a.hi }

func (a Interval) Contains(d Duration) bool {
	return a.ok && !d.Less(a.lo) && !a.hi.Less(d)
}

// Overlaps reports whether a and b share at least one duration.
func (a Interval) Overlaps(b Interval) bool { return !a.Intersect(b).IsEmpty() }

// Touches reports whether a and b overlap or are adjacent (no tick between
// them), i.e. whether their union is a single interval.
func (a Interval) Touches(b Interval) bool {
	if !a.ok || !b.ok {
		return false
	}
	return !a.hi.Succ().Less(b.lo) && !b.hi.Succ().Less(a.lo)
}

// Intersect returns [max(a.lo, b.lo), min(a.hi, b.hi)], empty if that range
// is.
func (a Interval) Intersect(b Interval) Interval {
	if !a.ok || !b.ok {
		return Interval{}
	}
	return NewInterval(Max(a.lo, b.lo), Min(a.hi, b.hi))
}

// Union returns a ∪ b: one interval when they touch, two otherwise.
func (a Interval) Union(b Interval) Set {
	switch {
	case !a.ok:
		return SetOf(b)
	case !b.ok:
		return SetOf(a)
	case a.Touches(b):
		return Set{ivs: []Interval{{lo: Min(a.lo, b.lo), hi: Max(a.hi, b.hi), ok: true}}}
	case a.lo.Less(b.lo):
		return Set{ivs: []Interval{a, b}}
	}
	return Set{ivs: []Interval{b, a}}
}

// Translate shifts both bounds by d. Unbounded ends stay unbounded. An
// infinite d sends every duration out of range, so the result is empty.
func (a Interval) Translate(d Duration) Interval {
	if !a.ok || !d.IsFinite() {
		return Interval{}
	}
	return NewInterval(a.lo.Add(d), a.hi.Add(d))
}

// Shift returns the Minkowski sum {x + y : x ∈ a, y ∈ k}.
func (a Interval) Shift(k Interval) Interval {
	if !a.ok || !k.ok {
		return Interval{}
	}
	// lower bounds are never +∞ and upper bounds never −∞, so neither sum
	// can mix opposite infinities
	return NewInterval(a.lo.Add(k.lo), a.hi.Add(k.hi))
}

// Neg returns {−x : x ∈ a}.
func (a Interval) Neg() Interval {
	if !a.ok {
		return a
	}
	return Interval{lo: a.hi.Neg(), hi: a.lo.Neg(), ok: true}
}

// Seq yields a itself, or nothing when a is empty.
func (a Interval) Seq() Seq {
	return func(yield func(Interval) bool) {
		if a.ok {
			yield(a)
		}
	}
}

func (a Interval) String() string {
	if !a.ok {
		return "{}"
	}
	return "[" + a.lo.String() + "," + a.hi.String() + "]"
}

// ParseInterval reads the two bounds with ParseDuration.
func ParseInterval(lo, hi string) (Interval, error) {
	l, err := ParseDuration(lo)
	if err != nil {
		return Interval{}, err
	}
	h, err := ParseDuration(hi)
	if err != nil {
		return Interval{}, err
	}
	return NewInterval(l, h), nil
}
