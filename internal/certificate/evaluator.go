package certificate

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/specialistvlad/paramgrid/internal/failure"
	"github.com/specialistvlad/paramgrid/internal/registry"
)

// Evaluator compiles and runs certificate expressions. Compiled programs are
// cached by expression text, so one Evaluator can be reused across runs.
type Evaluator struct {
	env *cel.Env

	mu       sync.Mutex
	programs map[string]cel.Program
}

// NewEvaluator builds the CEL environment. Expressions see three variables:
// params (path to value, numbers as double), bounds (path to a map with
// value, type, source and uncertainty) and tolerance.
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("params", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("bounds", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("tolerance", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Evaluator{env: env, programs: make(map[string]cel.Program)}, nil
}

// Evaluate runs defs against r with a fresh Evaluator.
func Evaluate(r registry.Reader, defs []Definition) (Report, error) {
	e, err := NewEvaluator()
	if err != nil {
		return Report{}, err
	}
	return e.Evaluate(r, defs), nil
}

// Compile validates d and compiles its expressions, so bad definitions can be
// rejected when they are loaded rather than when they are evaluated.
func (e *Evaluator) Compile(d Definition) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if d.kind() != KindExpression {
		return nil
	}
	if _, err := e.program(d.Condition, true); err != nil {
		return fmt.Errorf("certificate %q: %w", d.ID, err)
	}
	if d.Deviation != "" {
		if _, err := e.program(d.Deviation, false); err != nil {
			return fmt.Errorf("certificate %q: %w", d.ID, err)
		}
	}
	return nil
}

// Evaluate runs every definition against r. Results are sorted by id.
func (e *Evaluator) Evaluate(r registry.Reader, defs []Definition) Report {
	sorted := append([]Definition(nil), defs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	params, bounds := activation(r)

	rep := Report{Results: make([]Result, 0, len(sorted))}
	for _, d := range sorted {
		var res Result
		if err := d.Validate(); err != nil {
			res = failed(d, failure.CodeInvalidValue, "%v", err)
		} else if d.kind() == KindBound {
			res = evalBound(r, d)
		} else {
			res = e.evalExpression(r, d, params, bounds)
		}

		if res.Status == Pass {
			rep.Passed++
		} else {
			rep.Failed++
		}
		rep.Results = append(rep.Results, res)
	}
	return rep
}

func (e *Evaluator) evalExpression(r registry.Reader, d Definition, params, bounds map[string]any) Result {
	var missing []string
	for _, ref := range d.References {
		if !r.Has(ref) {
			missing = append(missing, ref)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return failedWith(d, failure.UnresolvedReference(missing...))
	}

	vars := map[string]any{
		"params":    params,
		"bounds":    bounds,
		"tolerance": d.Tolerance,
	}

	cond, err := e.run(d.Condition, true, vars)
	if err != nil {
		return evalFailure(d, err)
	}
	ok, isBool := cond.(bool)
	if !isBool {
		return failed(d, failure.CodeInvalidValue, "condition yielded %T, want bool", cond)
	}

	res := Result{ID: d.ID, Assertion: d.Assertion, Sector: d.Sector, Status: Fail}
	if ok {
		res.Status = Pass
	}

	if d.Deviation != "" {
		raw, err := e.run(d.Deviation, false, vars)
		if err != nil {
			return evalFailure(d, err)
		}
		dev, isNum := toFloat(raw)
		if !isNum {
			return failed(d, failure.CodeInvalidValue, "deviation yielded %T, want a number", raw)
		}
		if !registry.Finite(dev) {
			return failed(d, failure.CodeInvalidValue, "deviation %q is not finite", d.Deviation)
		}
		res.Deviation = &dev
		res.Message = fmt.Sprintf("%s: deviation %.4g", d.Condition, dev)
	} else {
		res.Message = d.Condition
	}
	return res
}

func (e *Evaluator) run(expr string, wantBool bool, vars map[string]any) (any, error) {
	prg, err := e.program(expr, wantBool)
	if err != nil {
		return nil, err
	}
	val, _, err := prg.Eval(vars)
	if err != nil {
		return nil, err
	}
	return val.Value(), nil
}

func (e *Evaluator) program(expr string, wantBool bool) (cel.Program, error) {
	key := "d:" + expr
	if wantBool {
		key = "c:" + expr
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, ok := e.programs[key]; ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if wantBool {
		out := ast.OutputType()
		if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
			return nil, fmt.Errorf("condition %q yields %s, want bool", expr, out)
		}
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, err
	}
	e.programs[key] = prg
	return prg, nil
}

// activation flattens the reader into the maps CEL expressions see.
func activation(r registry.Reader) (map[string]any, map[string]any) {
	params := make(map[string]any)
	bounds := make(map[string]any)
	for _, path := range r.Paths() {
		v, err := r.Get(path)
		if err != nil {
			continue
		}
		params[path] = registry.Native(v)
		if b, ok := r.Bound(path); ok {
			bounds[path] = boundMap(b)
		}
	}
	return params, bounds
}

func boundMap(b registry.Bound) map[string]any {
	return map[string]any{
		"value":       b.Value,
		"type":        string(b.Type),
		"source":      b.Source,
		"uncertainty": b.Uncertainty,
	}
}

func evalFailure(d Definition, err error) Result {
	if strings.Contains(err.Error(), "no such key") {
		return failed(d, failure.CodeUnresolvedReference, "%v", err)
	}
	return failed(d, failure.CodeInvalidValue, "%v", err)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
