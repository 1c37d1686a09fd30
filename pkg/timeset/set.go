package timeset

import (
	"slices"
	"strings"
)

// Set is a canonical union of intervals: sorted by lower bound, non-empty,
// with at least one tick between neighbours. Two sets holding the same
// durations always have the same representation. The zero value is the
// empty set.
type Set struct {
	ivs []Interval
}

// EmptySet returns the empty set.
func EmptySet() Set { return Set{} }

// All returns the set of every duration, {[−∞, +∞]}.
func All() Set { return Set{ivs: []Interval{Unbounded()}} }

// SetOf normalises arbitrary intervals (in any order, possibly empty,
// overlapping or adjacent) into a canonical set.
func SetOf(ivs ...Interval) Set {
	buf := make([]Interval, 0, len(ivs))
	for _, iv := range ivs {
		if !iv.IsEmpty() {
			buf = append(buf, iv)
		}
	}
	if len(buf) == 0 {
		return Set{}
	}
	slices.SortFunc(buf, func(a, b Interval) int { return a.lo.Cmp(b.lo) })
	out := buf[:1]
	for _, iv := range buf[1:] {
		last := &out[len(out)-1]
		if last.Touches(iv) {
			last.hi = Max(last.hi, iv.hi)
			continue
		}
		out = append(out, iv)
	}
	return Set{ivs: out}
}

// Len returns the number of disjoint intervals.
func (s Set) Len() int { return len(s.ivs) }

func (s Set) IsEmpty() bool { return len(s.ivs) == 0 }

// IsAll reports whether s holds every duration.
func (s Set) IsAll() bool { return len(s.ivs) == 1 && s.ivs[0].IsUnbounded() }

// IsConvex reports whether s is empty or a single interval.
func (s Set) IsConvex() bool { return len(s.ivs) <= 1 }

// Intervals returns a copy of the canonical sequence.
func (s Set) Intervals() []Interval { return slices.Clone(s.ivs) }

// Lo returns the smallest duration of s, +∞ when s is empty.
func (s Set) Lo() Duration {
	if len(s.ivs) == 0 {
		return PosInf
	}
	return s.ivs[0].lo
}

// Hi returns the largest duration of s, −∞ when s is empty.
func (s Set) Hi() Duration {
	if len(s.ivs) == 0 {
		return NegInf
	}
	return s.ivs[len(s.ivs)-1].hi
}

// Hull returns the smallest interval containing s.
func (s Set) Hull() Interval { return NewInterval(s.Lo(), s.Hi()) }

func (s Set) Contains(d Duration) bool {
	i, _ := slices.BinarySearchFunc(s.ivs, d, func(iv Interval, d Duration) int {
		return iv.hi.Cmp(d)
	})
	return i < len(s.ivs) && s.ivs[i].Contains(d)
}

func (s Set) Equal(o Set) bool { return slices.Equal(s.ivs, o.ivs) }

// Union merges two canonical sequences in one linear sweep.
func (s Set) Union(o Set) Set {
	switch {
	case len(s.ivs) == 0:
		return o
	case len(o.ivs) == 0:
		return s
	}
	out := make([]Interval, 0, len(s.ivs)+len(o.ivs))
	i, j := 0, 0
	for i < len(s.ivs) || j < len(o.ivs) {
		var next Interval
		if j >= len(o.ivs) || (i < len(s.ivs) && s.ivs[i].lo.Less(o.ivs[j].lo)) {
			next = s.ivs[i]
			i++
		} else {
			next = o.ivs[j]
			j++
		}
		if n := len(out); n > 0 && out[n-1].Touches(next) {
			out[n-1].hi = Max(out[n-1].hi, next.hi)
			continue
		}
		out = append(out, next)
	}
	return Set{ivs: out}
}

// Intersect sweeps both sequences and keeps only the overlapping parts.
func (s Set) Intersect(o Set) Set {
	var out []Interval
	i, j := 0, 0
	for i < len(s.ivs) && j < len(o.ivs) {
		a, b := s.ivs[i], o.ivs[j]
		if x := a.Intersect(b); !x.IsEmpty() {
			out = append(out, x)
		}
		if a.hi.Less(b.hi) {
			i++
		} else {
			j++
		}
	}
	return Set{ivs: out}
}

// IntersectInterval is s ∩ {iv}.
func (s Set) IntersectInterval(iv Interval) Set { return s.Intersect(SetOf(iv)) }

// Complement returns every duration not in s.
func (s Set) Complement() Set { return Collect(ComplementSeq(s.Seq())) }

// Exclude returns s ∩ ¬o.
func (s Set) Exclude(o Set) Set { return Collect(ExcludeSeq(s.Seq(), o.Seq())) }

// Translate shifts every interval by the finite duration d.
func (s Set) Translate(d Duration) Set { return Collect(TranslateSeq(s.Seq(), d)) }

// Shift returns the Minkowski sum of s and k.
func (s Set) Shift(k Interval) Set { return Collect(ShiftSeq(s.Seq(), k)) }

// Neg returns {−x : x ∈ s}.
func (s Set) Neg() Set {
	out := make([]Interval, len(s.ivs))
	for i, iv := range s.ivs {
		out[len(s.ivs)-1-i] = iv.Neg()
	}
	return Set{ivs: out}
}

// Seq yields the canonical intervals in order.
func (s Set) Seq() Seq {
	return func(yield func(Interval) bool) {
		for _, iv := range s.ivs {
			if !yield(iv) {
				return
			}
		}
	}
}

func (s Set) String() string {
	if len(s.ivs) == 0 {
		return "{}"
	}
	parts := make([]string, len(s.ivs))
	for i, iv := range s.ivs {
		parts[i] = iv.String()
	}
	return strings.Join(parts, "U")
}
