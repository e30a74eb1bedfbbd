package registry

import (
	"sort"

	"github.com/specialistvlad/paramgrid/internal/failure"
	"github.com/zclconf/go-cty/cty"
)

// view implements the read operations over plain maps. Callers handle locking.
type view struct {
	params map[string]Parameter
	bounds map[string]Bound
}

func (v *view) get(path string) (cty.Value, error) {
	p, ok := v.params[path]
	if !ok {
		return cty.NilVal, failure.UnknownParameter(path)
	}
	return p.Value, nil
}

func (v *view) has(path string) bool {
	_, ok := v.params[path]
	return ok
}

func (v *view) param(path string) (Parameter, error) {
	p, ok := v.params[path]
	if !ok {
		return Parameter{}, failure.UnknownParameter(path)
	}
	if b, ok := v.bounds[path]; ok {
		bound := b
		p.Bound = &bound
	}
	return p, nil
}

func (v *view) float(path string) (float64, error) {
	val, err := v.get(path)
	if err != nil {
		return 0, err
	}
	if !val.Type().Equals(cty.Number) {
		return 0, failure.New(failure.CodeInvalidValue, "parameter %q is %s, not a number", path, val.Type().FriendlyName())
	}
	f, _ := val.AsBigFloat().Float64()
	return f, nil
}

func (v *view) str(path string) (string, error) {
	val, err := v.get(path)
	if err != nil {
		return "", err
	}
	if !val.Type().Equals(cty.String) {
		return "", failure.New(failure.CodeInvalidValue, "parameter %q is %s, not a string", path, val.Type().FriendlyName())
	}
	return val.AsString(), nil
}

func (v *view) bound(path string) (Bound, bool) {
	b, ok := v.bounds[path]
	return b, ok
}

func (v *view) paths() []string {
	out := make([]string, 0, len(v.params))
	for p := range v.params {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (v *view) clone() view {
	c := view{
		params: make(map[string]Parameter, len(v.params)),
		bounds: make(map[string]Bound, len(v.bounds)),
	}
	for k, p := range v.params {
		c.params[k] = p
	}
	for k, b := range v.bounds {
		c.bounds[k] = b
	}
	return c
}

// Snapshot is an immutable copy of registry state handed to units.
type Snapshot struct {
	v view
}

func (s *Snapshot) Get(path string) (cty.Value, error)   { return s.v.get(path) }
func (s *Snapshot) Has(path string) bool                 { return s.v.has(path) }
func (s *Snapshot) Param(path string) (Parameter, error) { return s.v.param(path) }
func (s *Snapshot) Float(path string) (float64, error)   { return s.v.float(path) }
func (s *Snapshot) String(path string) (string, error)   { return s.v.str(path) }
func (s *Snapshot) Bound(path string) (Bound, bool)      { return s.v.bound(path) }
func (s *Snapshot) Paths() []string                      { return s.v.paths() }
