package registry

import (
	"fmt"
	"sync"

	"github.com/specialistvlad/paramgrid/internal/failure"
	"github.com/specialistvlad/paramgrid/internal/paramid"
	"github.com/zclconf/go-cty/cty"
)

// Registry holds every parameter for a single run. All operations are
// concurrency-safe, but while the registry is sealed only the Writer returned
// by Seal may change it.
type Registry struct {
	mu         sync.RWMutex
	v          view
	sealed     bool
	violations []error
}

// New creates and initializes an empty Registry.
func New() *Registry {
	return &Registry{
		v: view{
			params: make(map[string]Parameter),
			bounds: make(map[string]Bound),
		},
	}
}

// Get returns the value stored at path. Reading an unset path fails with
// UNKNOWN_PARAMETER; no default is ever substituted.
func (r *Registry) Get(path string) (cty.Value, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.v.get(path)
}

// Has reports whether path has been set.
func (r *Registry) Has(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.v.has(path)
}

// Param returns the full parameter record, including any declared bound.
func (r *Registry) Param(path string) (Parameter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.v.param(path)
}

// Float returns a numeric parameter as float64.
func (r *Registry) Float(path string) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.v.float(path)
}

// String returns a string parameter.
func (r *Registry) String(path string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.v.str(path)
}

// Bound returns the bound declared for path, if any.
func (r *Registry) Bound(path string) (Bound, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.v.bound(path)
}

// Paths returns every set path in sorted order.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.v.paths()
}

// Len returns the number of set parameters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.v.params)
}

// Set inserts or overwrites a value.
//
// Re-setting an ESTABLISHED value to the same value is a no-op; any other
// change to it is a PROVENANCE_VIOLATION. A non-ESTABLISHED value may only be
// rewritten by the source that wrote it. While the registry is sealed, Set
// fails with DIRECT_MUTATION and the attempt is recorded.
func (r *Registry) Set(path string, value cty.Value, source string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		err := failure.DirectMutation(path)
		r.violations = append(r.violations, err)
		return err
	}

	e := Entry{Path: path, Value: value, Source: source, Status: status}
	apply, err := r.checkLocked(e)
	if err != nil {
		return err
	}
	if apply {
		r.applyLocked(e)
	}
	return nil
}

// DeclareBound attaches experimental bound metadata to path. The path does
// not need a value yet; predictions are usually bounded before they exist.
func (r *Registry) DeclareBound(path string, b Bound) error {
	if err := paramid.Validate(path); err != nil {
		return err
	}
	if b.Type == "" {
		b.Type = BoundCentral
	}
	if !Finite(b.Value) || !Finite(b.Uncertainty) {
		return failure.New(failure.CodeInvalidValue, "bound for %q must be finite", path)
	}
	if b.Uncertainty < 0 {
		return fmt.Errorf("bound for %q has negative uncertainty %g", path, b.Uncertainty)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		err := failure.DirectMutation(path)
		r.violations = append(r.violations, err)
		return err
	}
	r.v.bounds[path] = b
	return nil
}

// Snapshot returns an immutable copy of the current state.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Snapshot{v: r.v.clone()}
}

// Seal hands exclusive write access to the returned Writer until it is
// released. Sealing an already sealed registry is an error.
func (r *Registry) Seal() (*Writer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return nil, fmt.Errorf("registry is already sealed")
	}
	r.sealed = true
	return &Writer{reg: r}, nil
}

// Sealed reports whether a Writer currently holds the registry.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Violations returns every rejected write attempted while sealed.
func (r *Registry) Violations() []error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]error, len(r.violations))
	copy(out, r.violations)
	return out
}

// Table exports every parameter as plain nested maps keyed by path.
func (r *Registry) Table() map[string]map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]map[string]any, len(r.v.params))
	for path := range r.v.params {
		p, _ := r.v.param(path)
		row := map[string]any{
			"value":  Native(p.Value),
			"status": string(p.Status),
			"source": p.Source,
		}
		if id, err := paramid.Parse(path); err == nil {
			row["sector"] = id.Sector()
		}
		if p.Bound != nil {
			row["bound"] = map[string]any{
				"value":       p.Bound.Value,
				"type":        string(p.Bound.Type),
				"source":      p.Bound.Source,
				"uncertainty": p.Bound.Uncertainty,
			}
		}
		out[path] = row
	}
	return out
}

// checkLocked validates a write and reports whether it changes anything.
func (r *Registry) checkLocked(e Entry) (bool, error) {
	if err := paramid.Validate(e.Path); err != nil {
		return false, err
	}
	if !e.Status.Valid() {
		return false, failure.New(failure.CodeInvalidValue, "unknown status %q for %q", e.Status, e.Path)
	}
	if e.Source == "" {
		return false, failure.New(failure.CodeInvalidValue, "write to %q has no source", e.Path)
	}
	if err := checkValue(e.Path, e.Value); err != nil {
		return false, err
	}

	existing, ok := r.v.params[e.Path]
	if !ok {
		return true, nil
	}

	if existing.Status == Established {
		if e.Status == Established && sameValue(existing.Value, e.Value) {
			return false, nil
		}
		return false, failure.ProvenanceViolation(e.Path, fmt.Sprintf("established value set by %q is write-once", existing.Source))
	}
	if existing.Source != e.Source {
		return false, failure.ProvenanceViolation(e.Path, fmt.Sprintf("owned by %q, cannot be written by %q", existing.Source, e.Source))
	}
	return true, nil
}

func (r *Registry) applyLocked(e Entry) {
	r.v.params[e.Path] = Parameter{
		Path:   e.Path,
		Value:  e.Value,
		Status: e.Status,
		Source: e.Source,
	}
}
