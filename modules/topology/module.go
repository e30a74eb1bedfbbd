// Package topology provides the units that derive integer invariants from
// the seeded topology of the compactification.
package topology

import (
	"context"
	"fmt"
	"math"

	"github.com/specialistvlad/paramgrid/internal/formula"
	"github.com/specialistvlad/paramgrid/internal/orchestrator"
	"github.com/specialistvlad/paramgrid/internal/registry"
	"github.com/specialistvlad/paramgrid/internal/unit"
	"github.com/specialistvlad/paramgrid/internal/validation"
)

const (
	Version = "1.0.0"
	Domain  = "topology"

	HalfB3Unit      = "topology.half_b3"
	GenerationsUnit = "topology.generations"

	HalfB3Formula      = "F-HALF-B3"
	GenerationsFormula = "F-GENERATIONS"
)

// Config holds the parameter paths and constants used by the topology units.
type Config struct {
	// B3 is the seeded third Betti number. Default "topology.b3".
	B3 string
	// HalfB3 is where b3/2 is written. Default "derived.half_b3".
	HalfB3 string
	// Generations is where the generation count is written. Default
	// "derived.generations".
	Generations string
	// GenerationDivisor divides half_b3 into generations. Default 4.
	GenerationDivisor float64
	// MaxB3 is the upper end of the accepted b3 range. Default 1000.
	MaxB3 float64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		B3:                "topology.b3",
		HalfB3:            "derived.half_b3",
		Generations:       "derived.generations",
		GenerationDivisor: 4,
		MaxB3:             1000,
	}
}

// withDefaults fills every zero field from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.B3 == "" {
		c.B3 = d.B3
	}
	if c.HalfB3 == "" {
		c.HalfB3 = d.HalfB3
	}
	if c.Generations == "" {
		c.Generations = d.Generations
	}
	if c.GenerationDivisor == 0 {
		c.GenerationDivisor = d.GenerationDivisor
	}
	if c.MaxB3 == 0 {
		c.MaxB3 = d.MaxB3
	}
	return c
}

// Module registers the topology units.
type Module struct {
	Config Config
}

// Register adds the module's units to o.
func (m *Module) Register(o *orchestrator.Orchestrator) error {
	cfg := m.Config.withDefaults()
	if cfg.GenerationDivisor <= 0 {
		return fmt.Errorf("topology: generation divisor must be positive, got %g", cfg.GenerationDivisor)
	}
	return o.Register(HalfB3(cfg), Generations(cfg))
}

// HalfB3 halves b3.
func HalfB3(cfg Config) unit.Unit {
	return unit.Func(unit.Spec{
		Metadata: unit.Metadata{
			ID:            HalfB3Unit,
			Version:       Version,
			Domain:        Domain,
			Title:         "Half of the third Betti number",
			DefaultStatus: registry.Geometric,
		},
		RequiredInputs: []string{cfg.B3},
		OutputParams:   []string{cfg.HalfB3},
		Formulas: []formula.Record{{
			ID:           HalfB3Formula,
			Title:        "half_b3 = b3 / 2",
			Category:     registry.Geometric,
			Expression:   "b3 / 2",
			InputParams:  []string{cfg.B3},
			OutputParams: []string{cfg.HalfB3},
			Derivation: formula.Derivation{
				Steps:        []string{"read b3 from the seeded topology", "divide by two"},
				ExternalRefs: []string{"REF-BETTI"},
			},
		}},
		Checks: func(in registry.Reader) []validation.Check {
			b3, err := in.Float(cfg.B3)
			if err != nil {
				return []validation.Check{{Name: "b3_range", Message: err.Error()}}
			}
			return []validation.Check{validation.Interval("b3_range", b3, 0, cfg.MaxB3)}
		},
	}, func(_ context.Context, in registry.Reader) (unit.Outputs, error) {
		b3, err := in.Float(cfg.B3)
		if err != nil {
			return nil, err
		}
		return unit.Outputs{cfg.HalfB3: registry.Number(b3 / 2)}, nil
	})
}

// Generations divides half_b3 by the configured divisor.
func Generations(cfg Config) unit.Unit {
	return unit.Func(unit.Spec{
		Metadata: unit.Metadata{
			ID:      GenerationsUnit,
			Version: Version,
			Domain:  Domain,
			Title:   "Number of fermion generations",
		},
		RequiredInputs: []string{cfg.HalfB3},
		OutputParams:   []string{cfg.Generations},
		Formulas: []formula.Record{{
			ID:           GenerationsFormula,
			Title:        fmt.Sprintf("generations = half_b3 / %g", cfg.GenerationDivisor),
			Category:     registry.Derived,
			Expression:   fmt.Sprintf("half_b3 / %g", cfg.GenerationDivisor),
			InputParams:  []string{cfg.HalfB3},
			OutputParams: []string{cfg.Generations},
			Derivation: formula.Derivation{
				Steps:          []string{"take half_b3", "divide by the divisor"},
				ParentFormulas: []string{HalfB3Formula},
			},
		}},
		Checks: func(in registry.Reader) []validation.Check {
			half, err := in.Float(cfg.HalfB3)
			if err != nil {
				return []validation.Check{{Name: "integral_generations", Message: err.Error()}}
			}
			g := half / cfg.GenerationDivisor
			c := validation.Check{Name: "integral_generations", Value: g, Lower: math.Floor(g), Upper: math.Ceil(g)}
			c.Passed = c.Lower == c.Upper
			if c.Passed {
				c.Message = fmt.Sprintf("%g generations", g)
			} else {
				c.Message = fmt.Sprintf("%g is not a whole number of generations", g)
			}
			return []validation.Check{c}
		},
	}, func(_ context.Context, in registry.Reader) (unit.Outputs, error) {
		half, err := in.Float(cfg.HalfB3)
		if err != nil {
			return nil, err
		}
		return unit.Outputs{cfg.Generations: registry.Number(half / cfg.GenerationDivisor)}, nil
	})
}
