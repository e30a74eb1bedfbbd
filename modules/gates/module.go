// Package gates turns derived invariants into gate statuses and ships the
// certificates that assert them.
package gates

import (
	"context"
	"fmt"

	"github.com/specialistvlad/paramgrid/internal/certificate"
	"github.com/specialistvlad/paramgrid/internal/formula"
	"github.com/specialistvlad/paramgrid/internal/orchestrator"
	"github.com/specialistvlad/paramgrid/internal/registry"
	"github.com/specialistvlad/paramgrid/internal/unit"
	"github.com/specialistvlad/paramgrid/internal/validation"
)

const (
	Version = "1.0.0"
	Domain  = "gates"

	GenerationGateUnit    = "gates.generation_count"
	GenerationGateFormula = "F-GATE-GENERATIONS"

	GenerationCertificate = "GATE-GENERATIONS"
	HalfB3Certificate     = "GATE-HALF-B3-EVEN"
)

// Config holds the paths and expectations used by the gate units.
type Config struct {
	// Generations is the derived generation count. Default "derived.generations".
	Generations string
	// HalfB3 is the derived half of b3. Default "derived.half_b3".
	HalfB3 string
	// Gate is where the gate verdict is written. Default "gates.three_generations".
	Gate string
	// Expected is the generation count the gate requires. Default 3.
	Expected float64
	// ParentFormula is the formula the gate derives from. Default "F-GENERATIONS".
	ParentFormula string
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Generations:   "derived.generations",
		HalfB3:        "derived.half_b3",
		Gate:          "gates.three_generations",
		Expected:      3,
		ParentFormula: "F-GENERATIONS",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Generations == "" {
		c.Generations = d.Generations
	}
	if c.HalfB3 == "" {
		c.HalfB3 = d.HalfB3
	}
	if c.Gate == "" {
		c.Gate = d.Gate
	}
	if c.Expected == 0 {
		c.Expected = d.Expected
	}
	if c.ParentFormula == "" {
		c.ParentFormula = d.ParentFormula
	}
	return c
}

// Module registers the gate units.
type Module struct {
	Config Config
}

// Register adds the module's units to o.
func (m *Module) Register(o *orchestrator.Orchestrator) error {
	return o.Register(GenerationGate(m.Config.withDefaults()))
}

// GenerationGate writes true to the gate path when the generation count
// equals the expected value.
func GenerationGate(cfg Config) unit.Unit {
	return unit.Func(unit.Spec{
		Metadata: unit.Metadata{
			ID:            GenerationGateUnit,
			Version:       Version,
			Domain:        Domain,
			Title:         "Generation count gate",
			DefaultStatus: registry.Gate,
		},
		RequiredInputs: []string{cfg.Generations},
		OutputParams:   []string{cfg.Gate},
		Formulas: []formula.Record{{
			ID:           GenerationGateFormula,
			Title:        fmt.Sprintf("gate = generations == %g", cfg.Expected),
			Category:     registry.Gate,
			Expression:   fmt.Sprintf("generations == %g", cfg.Expected),
			InputParams:  []string{cfg.Generations},
			OutputParams: []string{cfg.Gate},
			Derivation: formula.Derivation{
				Steps:          []string{"compare the generation count with the expected value"},
				ParentFormulas: []string{cfg.ParentFormula},
			},
		}},
		Certificates: Certificates(cfg),
		Checks: func(in registry.Reader) []validation.Check {
			g, err := in.Float(cfg.Generations)
			if err != nil {
				return []validation.Check{{Name: "generations_positive", Message: err.Error()}}
			}
			return []validation.Check{validation.Interval("generations_positive", g, 1, 1e6)}
		},
	}, func(_ context.Context, in registry.Reader) (unit.Outputs, error) {
		g, err := in.Float(cfg.Generations)
		if err != nil {
			return nil, err
		}
		return unit.Outputs{cfg.Gate: registry.Bool(g == cfg.Expected)}, nil
	})
}

// Certificates returns the assertions shipped with the gate unit.
func Certificates(cfg Config) []certificate.Definition {
	return []certificate.Definition{
		{
			ID:         GenerationCertificate,
			Assertion:  fmt.Sprintf("the model has exactly %g generations", cfg.Expected),
			Sector:     Domain,
			Kind:       certificate.KindExpression,
			Condition:  fmt.Sprintf("params[%q] == true", cfg.Gate),
			Deviation:  fmt.Sprintf("params[%q] - double(%g)", cfg.Generations, cfg.Expected),
			References: []string{cfg.Gate, cfg.Generations},
		},
		{
			ID:         HalfB3Certificate,
			Assertion:  "half of b3 is an even integer",
			Sector:     "topology",
			Kind:       certificate.KindExpression,
			Condition:  fmt.Sprintf("params[%q] == double(int(params[%q])) && int(params[%q]) %% 2 == 0", cfg.HalfB3, cfg.HalfB3, cfg.HalfB3),
			References: []string{cfg.HalfB3},
		},
	}
}
