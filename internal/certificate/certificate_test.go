package certificate

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/paramgrid/internal/failure"
	"github.com/specialistvlad/paramgrid/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Set("topology.b3", registry.Int(24), "seed", registry.Established))
	require.NoError(t, reg.Set("derived.half_b3", registry.Number(12), "U", registry.Derived))
	require.NoError(t, reg.Set("gates.mode", registry.Text("open"), "G", registry.Gate))
	return reg
}

func TestDeviation(t *testing.T) {
	testCases := []struct {
		name  string
		v     float64
		bound registry.Bound
		want  float64
	}{
		{name: "sigma", v: 12, bound: registry.Bound{Value: 11, Uncertainty: 0.5}, want: 2},
		{name: "relative", v: 12, bound: registry.Bound{Value: 10}, want: 0.2},
		{name: "zero bound", v: -3, bound: registry.Bound{}, want: 3},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Deviation(tc.v, tc.bound), 1e-12)
		})
	}
}

func TestEvaluate_BoundCertificates(t *testing.T) {
	reg := seeded(t)
	require.NoError(t, reg.DeclareBound("derived.half_b3", registry.Bound{Value: 11.9, Uncertainty: 0.2, Source: "PDG"}))
	require.NoError(t, reg.DeclareBound("topology.b3", registry.Bound{Value: 30, Type: registry.BoundUpper}))
	require.NoError(t, reg.DeclareBound("predicted.missing", registry.Bound{Value: 1}))

	rep, err := Evaluate(reg.Snapshot(), []Definition{
		{ID: "C-3", Param: "topology.b3", Kind: KindBound},
		{ID: "C-1", Param: "derived.half_b3", Tolerance: 1},
		{ID: "C-2", Param: "derived.half_b3", Tolerance: 0.25},
		{ID: "C-4", Param: "predicted.missing", Tolerance: 1},
		{ID: "C-5", Param: "gates.mode", Tolerance: 1},
	})
	require.NoError(t, err)

	ids := make([]string, 0, len(rep.Results))
	for _, r := range rep.Results {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"C-1", "C-2", "C-3", "C-4", "C-5"}, ids)

	c1, _ := rep.Result("C-1")
	assert.Equal(t, Pass, c1.Status)
	require.NotNil(t, c1.Deviation)
	assert.InDelta(t, 0.5, *c1.Deviation, 1e-9)

	c2, _ := rep.Result("C-2")
	assert.Equal(t, Fail, c2.Status)
	assert.Empty(t, c2.Reason)

	c3, _ := rep.Result("C-3")
	assert.Equal(t, Pass, c3.Status)

	c4, _ := rep.Result("C-4")
	assert.Equal(t, Fail, c4.Status)
	assert.Equal(t, failure.CodeUnresolvedReference, c4.Reason)

	c5, _ := rep.Result("C-5")
	assert.Equal(t, Fail, c5.Status)
	assert.Equal(t, failure.CodeUnresolvedReference, c5.Reason, "no bound declared")

	assert.Equal(t, 2, rep.Passed)
	assert.Equal(t, 3, rep.Failed)
	assert.False(t, rep.AllPassed())
}

func TestEvaluate_LowerBound(t *testing.T) {
	reg := seeded(t)
	require.NoError(t, reg.DeclareBound("derived.half_b3", registry.Bound{Value: 13, Type: registry.BoundLower}))

	rep, err := Evaluate(reg, []Definition{{ID: "L", Param: "derived.half_b3"}})
	require.NoError(t, err)
	assert.Equal(t, Fail, rep.Results[0].Status)
}

func TestEvaluate_ExpressionCertificates(t *testing.T) {
	reg := seeded(t)
	require.NoError(t, reg.DeclareBound("derived.half_b3", registry.Bound{Value: 12.1, Uncertainty: 0.1}))

	defs := []Definition{
		{
			ID:         "E-half",
			Condition:  `params["derived.half_b3"] * 2.0 == params["topology.b3"]`,
			References: []string{"derived.half_b3", "topology.b3"},
		},
		{
			ID:         "E-dev",
			Condition:  `(params["derived.half_b3"] - bounds["derived.half_b3"].value) * (params["derived.half_b3"] - bounds["derived.half_b3"].value) < tolerance * tolerance * bounds["derived.half_b3"].uncertainty * bounds["derived.half_b3"].uncertainty`,
			Deviation:  `(bounds["derived.half_b3"].value - params["derived.half_b3"]) / bounds["derived.half_b3"].uncertainty`,
			Tolerance:  2,
			References: []string{"derived.half_b3"},
		},
		{
			ID:        "E-gate",
			Condition: `params["gates.mode"] == "closed"`,
		},
		{
			ID:         "E-missing",
			Condition:  `params["nowhere.x"] > 0.0`,
			References: []string{"nowhere.x"},
		},
		{
			ID:        "E-undeclared",
			Condition: `params["nowhere.y"] > 0.0`,
		},
	}

	e, err := NewEvaluator()
	require.NoError(t, err)
	for _, d := range defs {
		require.NoError(t, e.Compile(d), d.ID)
	}

	rep := e.Evaluate(reg, defs)

	half, _ := rep.Result("E-half")
	assert.Equal(t, Pass, half.Status)

	dev, _ := rep.Result("E-dev")
	assert.Equal(t, Pass, dev.Status)
	require.NotNil(t, dev.Deviation)
	assert.InDelta(t, 1.0, *dev.Deviation, 1e-9)

	gate, _ := rep.Result("E-gate")
	assert.Equal(t, Fail, gate.Status)
	assert.Empty(t, gate.Reason)

	missing, _ := rep.Result("E-missing")
	assert.Equal(t, Fail, missing.Status)
	assert.Equal(t, failure.CodeUnresolvedReference, missing.Reason)

	undeclared, _ := rep.Result("E-undeclared")
	assert.Equal(t, Fail, undeclared.Status)
	assert.Equal(t, failure.CodeUnresolvedReference, undeclared.Reason)
}

func TestEvaluate_NonFiniteDeviationFails(t *testing.T) {
	reg := seeded(t)
	require.NoError(t, reg.Set("predicted.huge", registry.Number(-1.7e308), "U", registry.Predicted))
	require.NoError(t, reg.DeclareBound("predicted.huge", registry.Bound{Value: 1.7e308, Source: "lit"}))

	rep, err := Evaluate(reg.Snapshot(), []Definition{
		{ID: "B-overflow", Param: "predicted.huge", Tolerance: 1},
		{
			ID:        "E-div-zero",
			Condition: `params["topology.b3"] > 0.0`,
			Deviation: `params["derived.half_b3"] / 0.0`,
		},
	})
	require.NoError(t, err)

	for _, id := range []string{"B-overflow", "E-div-zero"} {
		res, ok := rep.Result(id)
		require.True(t, ok, id)
		assert.Equal(t, Fail, res.Status, id)
		assert.Equal(t, failure.CodeInvalidValue, res.Reason, id)
		assert.Nil(t, res.Deviation, id)
	}

	_, err = json.Marshal(rep.Export())
	assert.NoError(t, err)
}

func TestEvaluate_UnresolvedReferenceListsPaths(t *testing.T) {
	rep, err := Evaluate(seeded(t), []Definition{
		{ID: "E", Condition: `true`, References: []string{"z.b", "a.b", "topology.b3"}},
		{ID: "B", Param: "predicted.unset", Tolerance: 1},
	})
	require.NoError(t, err)

	e, _ := rep.Result("E")
	assert.Equal(t, failure.CodeUnresolvedReference, e.Reason)
	assert.Equal(t, "unset references: a.b, z.b", e.Message)

	b, _ := rep.Result("B")
	assert.Equal(t, failure.CodeUnresolvedReference, b.Reason)
}

func TestCompile_Rejects(t *testing.T) {
	e, err := NewEvaluator()
	require.NoError(t, err)

	testCases := []struct {
		name string
		def  Definition
	}{
		{name: "empty id", def: Definition{Param: "a.b"}},
		{name: "bad param", def: Definition{ID: "x", Param: "a..b"}},
		{name: "negative tolerance", def: Definition{ID: "x", Param: "a.b", Tolerance: -1}},
		{name: "unknown kind", def: Definition{ID: "x", Kind: "vibes"}},
		{name: "expression without condition", def: Definition{ID: "x", Kind: KindExpression}},
		{name: "syntax error", def: Definition{ID: "x", Condition: `params[`}},
		{name: "non-bool condition", def: Definition{ID: "x", Condition: `1 + 2`}},
		{name: "unknown variable", def: Definition{ID: "x", Condition: `registry["a"] > 1.0`}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, e.Compile(tc.def))
		})
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	reg := seeded(t)
	require.NoError(t, reg.DeclareBound("derived.half_b3", registry.Bound{Value: 11.7, Uncertainty: 0.3}))
	defs := []Definition{
		{ID: "b", Param: "derived.half_b3", Tolerance: 1.5},
		{ID: "a", Condition: `params["topology.b3"] > 20.0`, Deviation: `params["topology.b3"] - 20.0`},
	}

	snap := reg.Snapshot()
	first, err := Evaluate(snap, defs)
	require.NoError(t, err)
	second, err := Evaluate(snap, defs)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Export(), second.Export()); diff != "" {
		t.Fatalf("evaluation is not deterministic (-first +second):\n%s", diff)
	}
	assert.Equal(t, 3, reg.Len(), "evaluation must not write to the registry")
}
