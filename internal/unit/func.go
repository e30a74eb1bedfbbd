package unit

import (
	"context"

	"github.com/specialistvlad/paramgrid/internal/certificate"
	"github.com/specialistvlad/paramgrid/internal/formula"
	"github.com/specialistvlad/paramgrid/internal/registry"
	"github.com/specialistvlad/paramgrid/internal/validation"
)

// RunFunc is the transform of a unit built with Func.
type RunFunc func(ctx context.Context, in registry.Reader) (Outputs, error)

// Spec is the declarative half of a unit built with Func.
type Spec struct {
	Metadata
	RequiredInputs []string
	OutputParams   []string
	Formulas       []formula.Record
	Certificates   []certificate.Definition
	Checks         func(in registry.Reader) []validation.Check
}

// Func builds a Unit from a Spec and a transform. OutputFormulas is derived
// from the IDs of Spec.Formulas.
func Func(spec Spec, run RunFunc) Unit {
	return &funcUnit{spec: spec, run: run}
}

type funcUnit struct {
	spec Spec
	run  RunFunc
}

func (f *funcUnit) Metadata() Metadata { return f.spec.Metadata }

func (f *funcUnit) RequiredInputs() []string { return append([]string(nil), f.spec.RequiredInputs...) }

func (f *funcUnit) OutputParams() []string { return append([]string(nil), f.spec.OutputParams...) }

func (f *funcUnit) OutputFormulas() []string {
	ids := make([]string, 0, len(f.spec.Formulas))
	for _, r := range f.spec.Formulas {
		ids = append(ids, r.ID)
	}
	return ids
}

func (f *funcUnit) Run(ctx context.Context, in registry.Reader) (Outputs, error) {
	return f.run(ctx, in)
}

func (f *funcUnit) Formulas() []formula.Record {
	return append([]formula.Record(nil), f.spec.Formulas...)
}

func (f *funcUnit) Certificates() []certificate.Definition {
	return append([]certificate.Definition(nil), f.spec.Certificates...)
}

func (f *funcUnit) SelfValidate(in registry.Reader) []validation.Check {
	if f.spec.Checks == nil {
		return nil
	}
	return f.spec.Checks(in)
}
