package orchestrator

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/paramgrid/internal/dag"
	"github.com/specialistvlad/paramgrid/internal/failure"
	"github.com/specialistvlad/paramgrid/internal/formula"
	"github.com/specialistvlad/paramgrid/internal/unit"
)

// Plan is a validated execution order.
type Plan struct {
	// Order lists unit ids so that producers precede consumers; independent
	// units are ordered by id.
	Order []string

	graph  *dag.Graph
	units  map[string]unit.Unit
	owners map[string]string
}

// Dependencies returns the units whose outputs id requires.
func (p *Plan) Dependencies(id string) ([]string, error) {
	return p.graph.Dependencies(id)
}

// Dependents returns the units that require an output of id.
func (p *Plan) Dependents(id string) ([]string, error) {
	return p.graph.Dependents(id)
}

// Unseeded returns, per unit, the required inputs no registered unit
// produces. They must be seeded before Execute.
func (p *Plan) Unseeded() map[string][]string {
	out := make(map[string][]string)
	for _, id := range p.Order {
		for _, in := range p.units[id].RequiredInputs() {
			if _, ok := p.owners[in]; !ok {
				out[id] = append(out[id], in)
			}
		}
	}
	return out
}

// Plan builds the unit dependency graph and sorts it. It also checks the
// formula records the units would publish, so both kinds of cycle are found
// before anything runs.
func (o *Orchestrator) Plan() (*Plan, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	p := &Plan{
		graph:  dag.New(),
		units:  make(map[string]unit.Unit, len(o.units)),
		owners: make(map[string]string, len(o.owners)),
	}
	for id, u := range o.units {
		p.units[id] = u
		p.graph.AddNode(id)
	}
	for path, id := range o.owners {
		p.owners[path] = id
	}

	for id, u := range p.units {
		for _, in := range u.RequiredInputs() {
			producer, ok := p.owners[in]
			if !ok || producer == id {
				continue
			}
			if err := p.graph.AddEdge(producer, id); err != nil {
				return nil, fmt.Errorf("linking %q to %q: %w", producer, id, err)
			}
		}
	}

	order, err := p.graph.TopoSort()
	if err != nil {
		var cycleErr *dag.CycleError
		if errors.As(err, &cycleErr) {
			return nil, failure.CyclicDependency(cycleErr.Path)
		}
		return nil, err
	}
	p.Order = order

	var records []formula.Record
	for _, id := range order {
		records = append(records, publishedFormulas(p.units[id])...)
	}
	if _, err := formula.Build(records); err != nil {
		return nil, err
	}
	return p, nil
}

// publishedFormulas returns u's records stamped with u as publisher.
func publishedFormulas(u unit.Unit) []formula.Record {
	fp, ok := u.(unit.FormulaPublisher)
	if !ok {
		return nil
	}
	recs := append([]formula.Record(nil), fp.Formulas()...)
	for i := range recs {
		recs[i].Publisher = u.Metadata().ID
	}
	return recs
}
