package config

import (
	"github.com/specialistvlad/paramgrid/internal/certificate"
	"github.com/specialistvlad/paramgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// DefaultSource is stamped on seeds that do not name their own source.
const DefaultSource = "config"

// Seed is a parameter value supplied before execution.
type Seed struct {
	Path   string
	Value  cty.Value
	Status registry.Status
	Source string
	// File is where the seed was declared, for error messages.
	File string
}

// BoundDecl attaches experimental bound metadata to a path.
type BoundDecl struct {
	Path  string
	Bound registry.Bound
	File  string
}

// Model is everything loaded from configuration files.
type Model struct {
	Seeds        []Seed
	Bounds       []BoundDecl
	Certificates []certificate.Definition
}

// Merge appends other into m.
func (m *Model) Merge(other *Model) {
	if other == nil {
		return
	}
	m.Seeds = append(m.Seeds, other.Seeds...)
	m.Bounds = append(m.Bounds, other.Bounds...)
	m.Certificates = append(m.Certificates, other.Certificates...)
}
