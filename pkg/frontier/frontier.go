// Package frontier computes the frontier of a constraint graph: the
// instants that may still occur first.
//
// The graph orders instants partially. Instant j necessarily precedes
// instant i when every schedule puts t_j strictly before t_i, that is when
// the lower bound D[j][i] on t_i − t_j is positive. The frontier is the
// antichain of minimal instants under that order: nothing is known to
// happen before them.
//
// Walking a plan forward means repeatedly taking an instant from the
// frontier; an instant outside it is blocked until the instants that
// necessarily precede it are done.
package frontier

import "github.com/XopheD/chronologic/pkg/graph"

// precedes reports whether j necessarily occurs strictly before i.
func precedes(g *graph.Graph, j, i graph.InstantID) bool {
	d, err := g.Lower(j, i)
	return err == nil && d.Sign() > 0
}

// Compute returns the antichain of minimal instants. An instant i is in the
// frontier iff no other instant j necessarily precedes it. Instants that are
// bound to be simultaneous are both kept.
func Compute(g *graph.Graph) []graph.InstantID {
	var frontier []graph.InstantID
	n := graph.InstantID(g.Len())
	for i := range n {
		dominated := false
		for j := range n {
			if j != i && precedes(g, j, i) {
				dominated = true
				break
			}
		}
		if !dominated {
			frontier = append(frontier, i)
		}
	}
	return frontier
}

// Status is the result of a frontier check for one instant.
type Status struct {
	Ready     bool              `json:"ready"`
	Frontier  []graph.InstantID `json:"frontier"`
	BlockedBy []graph.InstantID `json:"blocked_by,omitempty"`
}

// ComputeStatus checks whether instant i may occur next: it is ready when no
// other instant necessarily precedes it. BlockedBy lists the instants that
// do.
func ComputeStatus(g *graph.Graph, i graph.InstantID) (Status, error) {
	if _, err := g.Lower(i, i); err != nil {
		return Status{}, err
	}
	status := Status{
		Ready:    true,
		Frontier: Compute(g),
	}
	for j := range graph.InstantID(g.Len()) {
		if j != i && precedes(g, j, i) {
			status.Ready = false
			status.BlockedBy = append(status.BlockedBy, j)
		}
	}
	return status, nil
}
