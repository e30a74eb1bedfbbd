// Package unit defines the contract every computation unit implements.
//
// A unit declares the parameters it reads and the exact set it produces, and
// exposes a Run function that reads an immutable registry view and returns
// its outputs. Units never write to the registry; the orchestrator commits
// their outputs.
package unit

import (
	"context"
	"sort"

	"github.com/specialistvlad/paramgrid/internal/certificate"
	"github.com/specialistvlad/paramgrid/internal/formula"
	"github.com/specialistvlad/paramgrid/internal/registry"
	"github.com/specialistvlad/paramgrid/internal/validation"
	"github.com/zclconf/go-cty/cty"
)

// Metadata is descriptive information about a unit. Only ID and the status
// fields affect execution.
type Metadata struct {
	ID      string
	Version string
	Domain  string
	Title   string

	// DefaultStatus is stamped on every output; DERIVED when empty.
	DefaultStatus registry.Status
	// OutputStatus overrides DefaultStatus per output path.
	OutputStatus map[string]registry.Status
}

// StatusFor returns the status the orchestrator stamps on path.
func (m Metadata) StatusFor(path string) registry.Status {
	if s, ok := m.OutputStatus[path]; ok {
		return s
	}
	if m.DefaultStatus != "" {
		return m.DefaultStatus
	}
	return registry.Derived
}

// Outputs maps output paths to values.
type Outputs map[string]cty.Value

// Keys returns the output paths in sorted order.
func (o Outputs) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Unit is a stateless computation over the registry.
type Unit interface {
	Metadata() Metadata
	RequiredInputs() []string
	OutputParams() []string
	OutputFormulas() []string
	// Run must return exactly OutputParams. It may read in freely but must
	// not retain it after returning.
	Run(ctx context.Context, in registry.Reader) (Outputs, error)
}

// FormulaPublisher is implemented by units that publish derivation records.
type FormulaPublisher interface {
	Formulas() []formula.Record
}

// SelfValidator is implemented by units that check their own outputs.
type SelfValidator interface {
	SelfValidate(in registry.Reader) []validation.Check
}

// CertificateProvider is implemented by units that contribute certificates.
type CertificateProvider interface {
	Certificates() []certificate.Definition
}
