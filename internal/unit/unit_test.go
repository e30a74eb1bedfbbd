package unit

import (
	"context"
	"errors"
	"testing"

	"github.com/specialistvlad/paramgrid/internal/certificate"
	"github.com/specialistvlad/paramgrid/internal/failure"
	"github.com/specialistvlad/paramgrid/internal/formula"
	"github.com/specialistvlad/paramgrid/internal/registry"
	"github.com/specialistvlad/paramgrid/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func halfSpec() Spec {
	return Spec{
		Metadata:       Metadata{ID: "U", Version: "1.0.0", Domain: "topology"},
		RequiredInputs: []string{"topology.b3"},
		OutputParams:   []string{"derived.half_b3"},
		Formulas: []formula.Record{{
			ID:           "half-b3",
			InputParams:  []string{"topology.b3"},
			OutputParams: []string{"derived.half_b3"},
		}},
	}
}

func halfRun(_ context.Context, in registry.Reader) (Outputs, error) {
	b3, err := in.Float("topology.b3")
	if err != nil {
		return nil, err
	}
	return Outputs{"derived.half_b3": registry.Number(b3 / 2)}, nil
}

func TestFunc(t *testing.T) {
	spec := halfSpec()
	spec.Checks = func(in registry.Reader) []validation.Check {
		v, _ := in.Float("derived.half_b3")
		return []validation.Check{validation.Interval("half", v, 11, 13)}
	}
	u := Func(spec, halfRun)
	require.NoError(t, Validate(u))

	assert.Equal(t, []string{"half-b3"}, u.OutputFormulas())

	reg := registry.New()
	require.NoError(t, reg.Set("topology.b3", registry.Int(24), "seed", registry.Established))
	out, err := u.Run(context.Background(), reg.Snapshot())
	require.NoError(t, err)
	require.NoError(t, CheckOutputs(u, out))

	require.NoError(t, reg.Set("derived.half_b3", out["derived.half_b3"], "U", registry.Derived))
	checks := u.(SelfValidator).SelfValidate(reg)
	require.Len(t, checks, 1)
	assert.True(t, checks[0].Passed)
}

func TestFunc_NoChecks(t *testing.T) {
	u := Func(halfSpec(), halfRun)
	assert.Nil(t, u.(SelfValidator).SelfValidate(registry.New()))
	assert.Empty(t, u.(CertificateProvider).Certificates())
}

func TestMetadataStatusFor(t *testing.T) {
	m := Metadata{OutputStatus: map[string]registry.Status{"g.x": registry.Gate}}
	assert.Equal(t, registry.Derived, m.StatusFor("a.b"))
	assert.Equal(t, registry.Gate, m.StatusFor("g.x"))

	m.DefaultStatus = registry.Predicted
	assert.Equal(t, registry.Predicted, m.StatusFor("a.b"))
}

func TestCheckOutputs(t *testing.T) {
	u := Func(Spec{
		Metadata:     Metadata{ID: "U", Version: "1.0.0"},
		OutputParams: []string{"a.x", "a.y"},
	}, nil)

	testCases := []struct {
		name string
		out  Outputs
		ok   bool
	}{
		{name: "exact", out: Outputs{"a.x": registry.Number(1), "a.y": registry.Number(2)}, ok: true},
		{name: "subset", out: Outputs{"a.x": registry.Number(1)}},
		{name: "extra", out: Outputs{"a.x": registry.Number(1), "a.y": registry.Number(2), "a.z": registry.Number(3)}},
		{name: "swapped", out: Outputs{"a.x": registry.Number(1), "a.w": registry.Number(2)}},
		{name: "empty", out: Outputs{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckOutputs(u, tc.out)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var fe *failure.Error
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, failure.CodeOutputContractViolation, fe.Code)
			assert.Equal(t, []string{"a.x", "a.y"}, fe.Expected)
			assert.Equal(t, tc.out.Keys(), fe.Actual)
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Spec)
		want   string
	}{
		{name: "empty id", mutate: func(s *Spec) { s.ID = "" }, want: "must be non-empty"},
		{name: "bad version", mutate: func(s *Spec) { s.Version = "latest" }, want: "not a semantic version"},
		{name: "bad input path", mutate: func(s *Spec) { s.RequiredInputs = []string{"a..b"} }, want: "input"},
		{name: "duplicate output", mutate: func(s *Spec) {
			s.OutputParams = []string{"derived.half_b3", "derived.half_b3"}
		}, want: "declared twice"},
		{name: "output is input", mutate: func(s *Spec) {
			s.RequiredInputs = append(s.RequiredInputs, "derived.half_b3")
		}, want: "also a required input"},
		{name: "established output", mutate: func(s *Spec) { s.DefaultStatus = registry.Established }, want: "established values are seeds"},
		{name: "override for unknown output", mutate: func(s *Spec) {
			s.OutputStatus = map[string]registry.Status{"derived.other": registry.Gate}
		}, want: "not an output"},
		{name: "bad formula", mutate: func(s *Spec) { s.Formulas[0].InputParams = []string{"."} }, want: "formula"},
		{name: "bad certificate", mutate: func(s *Spec) {
			s.Certificates = []certificate.Definition{{ID: "c", Param: ""}}
		}, want: "certificate"},
		{name: "certificate syntax error", mutate: func(s *Spec) {
			s.Certificates = []certificate.Definition{{ID: "c-syntax", Condition: `params[`}}
		}, want: `certificate "c-syntax"`},
		{name: "certificate condition not bool", mutate: func(s *Spec) {
			s.Certificates = []certificate.Definition{{ID: "c-num", Condition: `1 + 2`}}
		}, want: `certificate "c-num"`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			spec := halfSpec()
			tc.mutate(&spec)
			err := Validate(Func(spec, halfRun))
			require.Error(t, err)
			assert.ErrorIs(t, err, failure.ErrInvalidUnit)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

type undeclaredFormulas struct{ *funcUnit }

func (undeclaredFormulas) OutputFormulas() []string { return []string{"half-b3", "ghost"} }

type silentUnit struct{ Unit }

func (silentUnit) OutputFormulas() []string { return []string{"half-b3"} }

func TestValidate_FormulaDeclarations(t *testing.T) {
	base := Func(halfSpec(), halfRun)

	err := Validate(undeclaredFormulas{base.(*funcUnit)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `declares formula "ghost" but does not publish it`)

	// Embedding only the Unit interface hides Formulas().
	err = Validate(silentUnit{base})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publishes no records")

	assert.Error(t, Validate(nil))
}

func TestDescribe(t *testing.T) {
	d := Describe(Func(halfSpec(), halfRun))
	assert.Equal(t, "U", d["id"])
	assert.Equal(t, []any{"topology.b3"}, d["required_inputs"])
	assert.Equal(t, map[string]any{"derived.half_b3": "DERIVED"}, d["output_status"])
	assert.Equal(t, []any{}, d["certificates"])
}
