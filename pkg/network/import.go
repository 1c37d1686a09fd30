package network

import (
	"errors"
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/XopheD/chronologic/pkg/graph"
	"github.com/XopheD/chronologic/pkg/model"
	"github.com/XopheD/chronologic/pkg/timeset"
)

// Plan is a network description read from TOML:
//
//	reference = "start"
//
//	[[instant]]
//	label = "start"
//
//	[[constraint]]
//	from = "start"
//	to = "end"
//	min = "2h"
//	max = "+inf"
//
//	[[restrict]]
//	instant = "end"
//	min = "8h"
//	max = "10h"
//	mode = "exclude"
//
// Bounds are strings in ParseDuration syntax. A missing min is −∞ and a
// missing max is +∞. Instants named by constraints or restrictions need
// not be declared.
type Plan struct {
	Reference   string           `toml:"reference"`
	Instants    []PlanInstant    `toml:"instant"`
	Constraints []PlanConstraint `toml:"constraint"`
	Restricts   []PlanRestrict   `toml:"restrict"`
}

type PlanInstant struct {
	Label string `toml:"label"`
}

type PlanConstraint struct {
	From string            `toml:"from"`
	To   string            `toml:"to"`
	Min  *timeset.Duration `toml:"min"`
	Max  *timeset.Duration `toml:"max"`
}

type PlanRestrict struct {
	Instant string            `toml:"instant"`
	Min     *timeset.Duration `toml:"min"`
	Max     *timeset.Duration `toml:"max"`
	Mode    string            `toml:"mode"`
}

func bounds(lo, hi *timeset.Duration) timeset.Interval {
	l, h := timeset.NegInf, timeset.PosInf
	if lo != nil {
		l = *lo
	}
	if hi != nil {
		h = *hi
	}
	return timeset.NewInterval(l, h)
}

// Interval returns [Min, Max] with missing bounds left open.
func (c PlanConstraint) Interval() timeset.Interval { return bounds(c.Min, c.Max) }

// Interval returns [Min, Max] with missing bounds left open.
func (r PlanRestrict) Interval() timeset.Interval { return bounds(r.Min, r.Max) }

// ParsePlan decodes a TOML plan.
func ParsePlan(data []byte) (*Plan, error) {
	var p Plan
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing plan: %w", err)
	}
	for i, in := range p.Instants {
		if in.Label == "" {
			return nil, fmt.Errorf("instant %d: empty label", i+1)
		}
	}
	for i, c := range p.Constraints {
		if c.From == "" || c.To == "" {
			return nil, fmt.Errorf("constraint %d: from and to are required", i+1)
		}
	}
	for i, r := range p.Restricts {
		if r.Instant == "" {
			return nil, fmt.Errorf("restrict %d: instant is required", i+1)
		}
		switch model.RestrictMode(r.Mode) {
		case "", model.ModeRetain, model.ModeExclude:
		default:
			return nil, fmt.Errorf("restrict %d: unknown mode %q", i+1, r.Mode)
		}
	}
	return &p, nil
}

// LoadPlan reads and decodes the plan file at path.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	return ParsePlan(data)
}

// ImportResult counts what Import did.
type ImportResult struct {
	Instants     int `json:"instants"`
	Applied      int `json:"applied"`
	Implied      int `json:"implied"`
	Rejected     int `json:"rejected"`
	Restrictions int `json:"restrictions"`
}

// Import adds the plan to the network in file order. A rejected constraint
// is counted and skipped; any other error stops the import.
func (n *Network) Import(p *Plan) (ImportResult, error) {
	var res ImportResult
	add := func(label string) error {
		before := n.g.Len()
		if _, err := n.AddInstant(label); err != nil {
			return err
		}
		if n.g.Len() > before {
			res.Instants++
		}
		return nil
	}

	for _, in := range p.Instants {
		if err := add(in.Label); err != nil {
			return res, err
		}
	}
	for i, c := range p.Constraints {
		if err := add(c.From); err != nil {
			return res, err
		}
		if err := add(c.To); err != nil {
			return res, err
		}
		out, err := n.Constrain(c.From, c.To, c.Interval())
		switch {
		case errors.Is(err, graph.ErrInconsistent):
			res.Rejected++
		case err != nil:
			return res, fmt.Errorf("constraint %d: %w", i+1, err)
		case out == graph.Propagated:
			res.Applied++
		default:
			res.Implied++
		}
	}
	for i, r := range p.Restricts {
		if err := add(r.Instant); err != nil {
			return res, err
		}
		mode := model.RestrictMode(r.Mode)
		if mode == "" {
			mode = model.ModeRetain
		}
		if err := n.Restrict(r.Instant, r.Interval(), mode); err != nil {
			return res, fmt.Errorf("restrict %d: %w", i+1, err)
		}
		res.Restrictions++
	}
	if p.Reference != "" {
		if err := add(p.Reference); err != nil {
			return res, err
		}
		if err := n.SetReference(p.Reference); err != nil {
			return res, err
		}
	}
	return res, nil
}
