package graph

import (
	"sync"

	"github.com/XopheD/chronologic/pkg/timeset"
)

// Shared serialises access to one Graph. Propagation can touch every cell,
// so there is a single lock for the whole matrix: mutations hold it
// exclusively, Bound and IsConsistent share it.
type Shared struct {
	mu sync.RWMutex
	g  *Graph
}

// NewShared takes ownership of g. The caller must not use g directly
// afterwards.
func NewShared(g *Graph) *Shared { return &Shared{g: g} }

func (s *Shared) AddInstant() InstantID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.AddInstant()
}

func (s *Shared) AddConstraint(i, j InstantID, iv timeset.Interval) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.AddConstraint(i, j, iv)
}

func (s *Shared) PropagateAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g.PropagateAll()
}

func (s *Shared) Bound(i, j InstantID) (timeset.Interval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.Bound(i, j)
}

func (s *Shared) IsConsistent() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.IsConsistent()
}

func (s *Shared) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.Len()
}

// Update runs fn with the exclusive lock held. Agendas over the graph cache
// slots on read, so querying one goes through Update too.
func (s *Shared) Update(fn func(g *Graph) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.g)
}

// View runs fn with the shared lock held. fn must not mutate g.
func (s *Shared) View(fn func(g *Graph) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.g)
}
