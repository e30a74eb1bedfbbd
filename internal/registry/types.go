package registry

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Status classifies how a parameter value came to exist.
type Status string

const (
	Established Status = "ESTABLISHED"
	Derived     Status = "DERIVED"
	Predicted   Status = "PREDICTED"
	Geometric   Status = "GEOMETRIC"
	Gate        Status = "GATE"
	Calibrated  Status = "CALIBRATED"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case Established, Derived, Predicted, Geometric, Gate, Calibrated:
		return true
	}
	return false
}

// ParseStatus converts a case-insensitive status name.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown parameter status %q", raw)
	}
	return s, nil
}

// BoundType says how an experimental bound constrains a value.
type BoundType string

const (
	BoundCentral BoundType = "central"
	BoundUpper   BoundType = "upper"
	BoundLower   BoundType = "lower"
)

// ParseBoundType converts a bound type name; the empty string means central.
func ParseBoundType(raw string) (BoundType, error) {
	switch BoundType(strings.ToLower(strings.TrimSpace(raw))) {
	case "", BoundCentral:
		return BoundCentral, nil
	case BoundUpper:
		return BoundUpper, nil
	case BoundLower:
		return BoundLower, nil
	}
	return "", fmt.Errorf("unknown bound type %q", raw)
}

// Bound is experimental metadata used by certificates.
type Bound struct {
	Value       float64
	Type        BoundType
	Source      string
	Uncertainty float64
}

// Parameter is a named, typed, provenance-stamped value.
type Parameter struct {
	Path   string
	Value  cty.Value
	Status Status
	Source string
	Bound  *Bound
}

// Entry is one value handed to Writer.Commit.
type Entry struct {
	Path   string
	Value  cty.Value
	Source string
	Status Status
}

// Reader is the read-only view of parameter state shared by the registry
// itself and its snapshots.
type Reader interface {
	Get(path string) (cty.Value, error)
	Has(path string) bool
	Param(path string) (Parameter, error)
	Float(path string) (float64, error)
	String(path string) (string, error)
	Bound(path string) (Bound, bool)
	Paths() []string
}
