package timeset

import "iter"

// Seq is a lazy, finite sequence of intervals. By contract the intervals are
// non-empty, sorted, and separated by at least one tick, exactly like the
// content of a Set. Every adapter below preserves the contract, and every
// adapter is restartable: ranging over it again re-reads its inputs.
type Seq = iter.Seq[Interval]

// Collect materialises a sequence into a Set.
func Collect(s Seq) Set {
	var out []Interval
	for iv := range s {
		if n := len(out); n > 0 && out[n-1].Touches(iv) {
			// inputs honouring the contract never hit this, but hand-built
			// sequences might
			out[n-1].hi = Max(out[n-1].hi, iv.hi)
			continue
		}
		out = append(out, iv)
	}
	return Set{ivs: out}
}

// IsEmptySeq reports whether s yields nothing. It pulls at most one
// interval, so on an IntersectSeq it stops both inputs at the first overlap.
func IsEmptySeq(s Seq) bool {
	for range s {
		return false
	}
	return true
}

// UnionSeq lazily merges two sorted sequences.
func UnionSeq(a, b Seq) Seq {
	return func(yield func(Interval) bool) {
		nextA, stopA := iter.Pull(a)
		defer stopA()
		nextB, stopB := iter.Pull(b)
		defer stopB()

		x, okA := nextA()
		y, okB := nextB()
		var cur Interval
		for okA || okB {
			var iv Interval
			if !okB || (okA && x.lo.Less(y.lo)) {
				iv = x
				x, okA = nextA()
			} else {
				iv = y
				y, okB = nextB()
			}
			if cur.Touches(iv) {
				cur.hi = Max(cur.hi, iv.hi)
				continue
			}
			if !cur.IsEmpty() && !yield(cur) {
				return
			}
			cur = iv
		}
		if !cur.IsEmpty() {
			yield(cur)
		}
	}
}

// IntersectSeq lazily intersects two sorted sequences. It advances whichever
// side ends first, so it never reads further than needed for the next
// overlap.
func IntersectSeq(a, b Seq) Seq {
	return func(yield func(Interval) bool) {
		nextA, stopA := iter.Pull(a)
		defer stopA()
		nextB, stopB := iter.Pull(b)
		defer stopB()

		x, okA := nextA()
		y, okB := nextB()
		for okA && okB {
			if iv := x.Intersect(y); !iv.IsEmpty() && !yield(iv) {
				return
			}
			if x.hi.Less(y.hi) {
				x, okA = nextA()
			} else {
				y, okB = nextB()
			}
		}
	}
}

// TranslateSeq shifts every interval by d. An infinite d yields nothing.
// Bounds that saturate at ±∞ can collapse neighbours together, so this goes
// through the merging path of ShiftSeq.
func TranslateSeq(s Seq, d Duration) Seq {
	if !d.IsFinite() {
		return func(func(Interval) bool) {}
	}
	return ShiftSeq(s, Point(d))
}

// ShiftSeq yields the Minkowski sum of s and k. Widening by k can make
// neighbours touch, so consecutive results are merged on the fly.
func ShiftSeq(s Seq, k Interval) Seq {
	return func(yield func(Interval) bool) {
		if k.IsEmpty() {
			return
		}
		var cur Interval
		for iv := range s {
			t := iv.Shift(k)
			if t.IsEmpty() {
				continue
			}
			if cur.Touches(t) {
				cur.hi = Max(cur.hi, t.hi)
				continue
			}
			if !cur.IsEmpty() && !yield(cur) {
				return
			}
			cur = t
		}
		if !cur.IsEmpty() {
			yield(cur)
		}
	}
}

// ComplementSeq yields the gaps of s, including the unbounded ones.
func ComplementSeq(s Seq) Seq {
	return func(yield func(Interval) bool) {
		emit := func(iv Interval) bool { return iv.IsEmpty() || yield(iv) }
		from := NegInf
		for iv := range s {
			if !iv.lo.IsNegInf() && !emit(NewInterval(from, iv.lo.Pred())) {
				return
			}
			if iv.hi.IsPosInf() {
				return
			}
			from = iv.hi.Succ()
		}
		emit(NewInterval(from, PosInf))
	}
}

// ExcludeSeq yields a ∩ ¬b.
func ExcludeSeq(a, b Seq) Seq { return IntersectSeq(a, ComplementSeq(b)) }
