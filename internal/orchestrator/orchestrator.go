// Package orchestrator schedules units against a registry.
//
// Units are ordered by the parameters they exchange: a unit that produces a
// path runs before every unit that requires it. Independent units run
// concurrently on a bounded worker pool, each against its own immutable
// snapshot, while every write goes through a single coordinator that holds
// the registry's Writer. A unit that fails never aborts the run; its
// dependents are skipped and everything is reported in the Result.
package orchestrator

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/specialistvlad/paramgrid/internal/failure"
	"github.com/specialistvlad/paramgrid/internal/registry"
	"github.com/specialistvlad/paramgrid/internal/unit"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/specialistvlad/paramgrid/internal/orchestrator"

// Orchestrator owns the set of registered units for one run.
type Orchestrator struct {
	reg        *registry.Registry
	numWorkers int
	tracer     trace.Tracer

	mu     sync.Mutex
	units  map[string]unit.Unit
	owners map[string]string // output path -> unit id
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkers sets the worker pool size. Values below one mean one.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n < 1 {
			n = 1
		}
		o.numWorkers = n
	}
}

// WithTracer replaces the global OpenTelemetry tracer.
func WithTracer(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) {
		o.tracer = tp.Tracer(tracerName)
	}
}

// New creates an Orchestrator that writes into reg.
func New(reg *registry.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		reg:        reg,
		numWorkers: runtime.GOMAXPROCS(0),
		tracer:     otel.Tracer(tracerName),
		units:      make(map[string]unit.Unit),
		owners:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Registry returns the registry the orchestrator commits into.
func (o *Orchestrator) Registry() *registry.Registry { return o.reg }

// Workers returns the configured pool size.
func (o *Orchestrator) Workers() int { return o.numWorkers }

// Register validates and adds units. The batch is all-or-nothing: a duplicate
// id or an output path already owned by another unit rejects every unit in it.
func (o *Orchestrator) Register(units ...unit.Unit) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	pendingUnits := make(map[string]unit.Unit, len(units))
	pendingOwners := make(map[string]string)
	formulaOwners := o.formulaOwnersLocked()

	for _, u := range units {
		if err := unit.Validate(u); err != nil {
			return err
		}
		id := u.Metadata().ID
		if _, dup := o.units[id]; dup {
			return failure.New(failure.CodeInvalidUnit, "unit %q is already registered", id)
		}
		if _, dup := pendingUnits[id]; dup {
			return failure.New(failure.CodeInvalidUnit, "unit %q is registered twice", id)
		}

		for _, out := range u.OutputParams() {
			owner, taken := o.owners[out]
			if !taken {
				owner, taken = pendingOwners[out]
			}
			if taken {
				return &failure.Error{
					Code:  failure.CodeConflictingOwnership,
					Unit:  id,
					Msg:   fmt.Sprintf("output %q is already produced by unit %q", out, owner),
					Paths: []string{out},
				}
			}
			pendingOwners[out] = id
		}

		for _, fid := range u.OutputFormulas() {
			if owner, taken := formulaOwners[fid]; taken {
				return &failure.Error{
					Code: failure.CodeConflictingOwnership,
					Unit: id,
					Msg:  fmt.Sprintf("formula %q is already published by unit %q", fid, owner),
				}
			}
			formulaOwners[fid] = id
		}

		pendingUnits[id] = u
	}

	for id, u := range pendingUnits {
		o.units[id] = u
	}
	for out, id := range pendingOwners {
		o.owners[out] = id
	}
	return nil
}

// Units returns the registered units sorted by id.
func (o *Orchestrator) Units() []unit.Unit {
	o.mu.Lock()
	defer o.mu.Unlock()
	ids := make([]string, 0, len(o.units))
	for id := range o.units {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]unit.Unit, 0, len(ids))
	for _, id := range ids {
		out = append(out, o.units[id])
	}
	return out
}

// Producer returns the unit that declares path as an output.
func (o *Orchestrator) Producer(path string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	id, ok := o.owners[path]
	return id, ok
}

func (o *Orchestrator) formulaOwnersLocked() map[string]string {
	owners := make(map[string]string)
	for id, u := range o.units {
		for _, fid := range u.OutputFormulas() {
			owners[fid] = id
		}
	}
	return owners
}
