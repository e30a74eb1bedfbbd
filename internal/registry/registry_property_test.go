package registry

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/specialistvlad/paramgrid/internal/failure"
	"golang.org/x/text/unicode/norm"
)

func genPath() gopter.Gen {
	return gopter.CombineGens(gen.Identifier(), gen.Identifier()).Map(func(v []any) string {
		return v[0].(string) + "." + v[1].(string)
	})
}

// Property: set(p, v) followed by get(p) returns v exactly. Strings that are
// not in NFC form are rejected up front instead of being silently rewritten.
func TestProperty_ReadAfterWrite(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("get returns the value that was set", prop.ForAll(
		func(path string, f float64, s string) bool {
			r := New()
			if err := r.Set(path, Number(f), "U", Derived); err != nil {
				return false
			}
			got, err := r.Get(path)
			if err != nil || !got.RawEquals(Number(f)) {
				return false
			}

			textPath := path + ".label"
			v, err := TextValue(s)
			if !norm.NFC.IsNormalString(s) {
				return errors.Is(err, failure.ErrInvalidValue)
			}
			if err != nil {
				return false
			}
			if err := r.Set(textPath, v, "U", Derived); err != nil {
				return false
			}
			gotText, err := r.String(textPath)
			return err == nil && gotText == s
		},
		genPath(),
		gen.Float64Range(-1e12, 1e12),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// Property: an ESTABLISHED value rejects a different value and accepts the same one.
func TestProperty_EstablishedWriteOnce(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("established values are write-once", prop.ForAll(
		func(path string, a, b float64) bool {
			r := New()
			if err := r.Set(path, Number(a), "seed", Established); err != nil {
				return false
			}
			if err := r.Set(path, Number(a), "seed", Established); err != nil {
				return false
			}
			err := r.Set(path, Number(b), "seed", Established)
			if a == b {
				return err == nil
			}
			if !errors.Is(err, failure.ErrProvenanceViolation) {
				return false
			}
			got, _ := r.Float(path)
			return got == a
		},
		genPath(),
		gen.Float64Range(-1e6, 1e6),
		gen.Float64Range(-1e6, 1e6),
	))

	properties.TestingRun(t)
}
