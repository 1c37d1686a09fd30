// Package clock implements the logical version counter carried by every
// constraint graph.
//
// The counter follows Lamport's two rules (1978):
//
//	IR1 (internal event): before any successful mutation of a graph,
//	     increment the counter.
//	IR2 (merge): when a graph absorbs another one whose counter is v,
//	     set the counter to max(own, v) + 1.
//
// Derived views (agendas, schedulers) remember the value they were computed
// at and recompute when it moved. Because of IR2 the value of a merged graph
// is strictly greater than the value of both inputs, so a view computed
// against either input is always seen as stale.
//
// Clock is not goroutine-safe. It lives inside a graph and is protected by
// whatever protects the graph.
package clock

// Clock is a Lamport logical counter. The zero value reads 0.
type Clock struct {
	v uint64
}

// Tick implements IR1 and returns the new value.
func (c *Clock) Tick() uint64 {
	c.v++
	return c.v
}

// Receive implements IR2 and returns the new value.
func (c *Clock) Receive(v uint64) uint64 {
	if v > c.v {
		c.v = v
	}
	c.v++
	return c.v
}

// Value returns the current value without advancing it.
func (c *Clock) Value() uint64 { return c.v }

// Set seeds the counter, e.g. from the last version recorded in a
// constraint log.
func (c *Clock) Set(v uint64) { c.v = v }

// Stale reports whether a view computed at seen is out of date.
func (c *Clock) Stale(seen uint64) bool { return seen != c.v }
