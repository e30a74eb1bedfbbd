// Package formula holds derivation records and the provenance graph built
// from them. Records are documentation: they say which formula produced which
// parameters and which upstream formulas it was derived from. Nothing here is
// ever evaluated.
package formula

import (
	"errors"
	"fmt"
	"sort"

	"github.com/specialistvlad/paramgrid/internal/dag"
	"github.com/specialistvlad/paramgrid/internal/failure"
	"github.com/specialistvlad/paramgrid/internal/paramid"
	"github.com/specialistvlad/paramgrid/internal/registry"
)

// Derivation describes how a formula was obtained.
type Derivation struct {
	Steps          []string
	ParentFormulas []string
	// ExternalRefs name formulas that deliberately live outside the run,
	// such as literature results.
	ExternalRefs []string
}

// Record is one named derivation.
type Record struct {
	ID           string
	Title        string
	Category     registry.Status
	Expression   string
	InputParams  []string
	OutputParams []string
	Derivation   Derivation
	// Publisher is the unit that published the record; set by the orchestrator.
	Publisher string
}

// Issue is a non-fatal finding about a reference between records.
type Issue struct {
	Formula string
	Ref     string
	Code    failure.Code
	Message string
}

// Graph is the validated provenance DAG. Edges point from parent to child.
type Graph struct {
	g       *dag.Graph
	records map[string]Record
	order   []string
	issues  []Issue
}

// Validate checks a single record's own fields.
func (r Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("formula record has an empty id")
	}
	if r.Category != "" && !r.Category.Valid() {
		return fmt.Errorf("formula %q: unknown category %q", r.ID, r.Category)
	}
	for _, p := range append(append([]string{}, r.InputParams...), r.OutputParams...) {
		if err := paramid.Validate(p); err != nil {
			return fmt.Errorf("formula %q: %w", r.ID, err)
		}
	}
	return nil
}

// Build validates records and links them into a graph. Dangling parent
// references become issues; a cycle fails with CYCLIC_FORMULA_GRAPH.
func Build(records []Record) (*Graph, error) {
	fg := &Graph{
		g:       dag.New(),
		records: make(map[string]Record, len(records)),
	}

	for _, r := range records {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if prev, dup := fg.records[r.ID]; dup {
			return nil, fmt.Errorf("formula %q is published by both %q and %q", r.ID, prev.Publisher, r.Publisher)
		}
		fg.records[r.ID] = r
		fg.g.AddNode(r.ID)
	}

	for _, id := range fg.g.Nodes() {
		r := fg.records[id]
		external := make(map[string]struct{}, len(r.Derivation.ExternalRefs))
		for _, ref := range r.Derivation.ExternalRefs {
			external[ref] = struct{}{}
		}

		for _, ref := range uniqueSorted(r.Derivation.ParentFormulas, r.Derivation.ExternalRefs) {
			if ref == id {
				return nil, failure.CyclicFormulaGraph([]string{id, id})
			}
			if _, ok := fg.records[ref]; ok {
				if err := fg.g.AddEdge(ref, id); err != nil {
					return nil, err
				}
				continue
			}
			if _, ok := external[ref]; ok {
				fg.issues = append(fg.issues, Issue{
					Formula: id, Ref: ref, Code: failure.CodeExternalReference,
					Message: fmt.Sprintf("%q refers to external formula %q", id, ref),
				})
				continue
			}
			fg.issues = append(fg.issues, Issue{
				Formula: id, Ref: ref, Code: failure.CodeUnresolvedReference,
				Message: fmt.Sprintf("%q refers to unknown parent formula %q", id, ref),
			})
		}
	}

	order, err := fg.g.TopoSort()
	if err != nil {
		var cycleErr *dag.CycleError
		if errors.As(err, &cycleErr) {
			return nil, failure.CyclicFormulaGraph(cycleErr.Path)
		}
		return nil, err
	}
	fg.order = order
	return fg, nil
}

// Order returns the record IDs in deterministic topological order.
func (fg *Graph) Order() []string {
	return append([]string(nil), fg.order...)
}

// Record returns a record by ID.
func (fg *Graph) Record(id string) (Record, bool) {
	r, ok := fg.records[id]
	return r, ok
}

// Parents returns the resolved parents of id.
func (fg *Graph) Parents(id string) ([]string, error) {
	return fg.g.Dependencies(id)
}

// Ancestors returns every formula id transitively derives from.
func (fg *Graph) Ancestors(id string) ([]string, error) {
	return fg.g.Ancestors(id)
}

// Descendants returns every formula transitively derived from id.
func (fg *Graph) Descendants(id string) ([]string, error) {
	return fg.g.Descendants(id)
}

// Issues returns reference findings sorted by formula then ref.
func (fg *Graph) Issues() []Issue {
	out := append([]Issue(nil), fg.issues...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Formula != out[j].Formula {
			return out[i].Formula < out[j].Formula
		}
		return out[i].Ref < out[j].Ref
	})
	return out
}

// ProducerOf returns the formulas that list path among their outputs.
func (fg *Graph) ProducerOf(path string) []string {
	var ids []string
	for _, id := range fg.order {
		for _, out := range fg.records[id].OutputParams {
			if out == path {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids
}

// Export renders the graph as plain nested maps.
func (fg *Graph) Export() map[string]any {
	nodes := make([]any, 0, len(fg.order))
	for _, id := range fg.order {
		r := fg.records[id]
		parents, _ := fg.g.Dependencies(id)
		nodes = append(nodes, map[string]any{
			"id":            r.ID,
			"title":         r.Title,
			"category":      string(r.Category),
			"publisher":     r.Publisher,
			"expression":    r.Expression,
			"input_params":  toAny(r.InputParams),
			"output_params": toAny(r.OutputParams),
			"steps":         toAny(r.Derivation.Steps),
			"parents":       toAny(parents),
			"external_refs": toAny(r.Derivation.ExternalRefs),
		})
	}

	issues := make([]any, 0, len(fg.issues))
	for _, is := range fg.Issues() {
		issues = append(issues, map[string]any{
			"formula": is.Formula,
			"ref":     is.Ref,
			"code":    string(is.Code),
			"message": is.Message,
		})
	}

	return map[string]any{
		"order":  toAny(fg.order),
		"nodes":  nodes,
		"issues": issues,
	}
}

func uniqueSorted(lists ...[]string) []string {
	set := make(map[string]struct{})
	for _, l := range lists {
		for _, s := range l {
			set[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
