package registry

import (
	"fmt"
	"math"

	"github.com/specialistvlad/paramgrid/internal/failure"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
	"golang.org/x/text/unicode/norm"
)

// Number wraps a float64 as a registry value.
func Number(f float64) cty.Value { return cty.NumberFloatVal(f) }

// Int wraps an int64 as a registry value.
func Int(i int64) cty.Value { return cty.NumberIntVal(i) }

// Bool wraps a bool as a registry value.
func Bool(b bool) cty.Value { return cty.BoolVal(b) }

// Text wraps a string (or enum label) as a registry value. The stored string
// is the NFC form of s; use TextValue when s comes from outside the program.
func Text(s string) cty.Value { return cty.StringVal(s) }

// TextValue wraps s as a registry value, rejecting strings that are not in
// NFC form so that a later read returns exactly the bytes that were written.
func TextValue(s string) (cty.Value, error) {
	if !norm.NFC.IsNormalString(s) {
		return cty.NilVal, failure.New(failure.CodeInvalidValue, "string %q is not in NFC form", s)
	}
	return cty.StringVal(s), nil
}

// checkValue enforces the primitive value domain: known, non-null finite
// numbers, strings, or bools.
func checkValue(path string, v cty.Value) error {
	if !v.IsKnown() || v.IsNull() {
		return failure.New(failure.CodeInvalidValue, "value for %q must be known and non-null", path)
	}
	switch v.Type() {
	case cty.Number:
		if v.AsBigFloat().IsInf() {
			return failure.New(failure.CodeInvalidValue, "value for %q must be finite", path)
		}
		return nil
	case cty.String, cty.Bool:
		return nil
	}
	return failure.New(failure.CodeInvalidValue, "value for %q has unsupported type %s", path, v.Type().FriendlyName())
}

// FromNative converts a plain Go value (float64, int, string, bool) into a
// registry value. NaN, infinities, and non-NFC strings fail with
// INVALID_VALUE.
func FromNative(v any) (cty.Value, error) {
	switch n := v.(type) {
	case nil:
		return cty.NilVal, fmt.Errorf("nil is not a parameter value")
	case float64:
		if !Finite(n) {
			return cty.NilVal, failure.New(failure.CodeInvalidValue, "number %g is not finite", n)
		}
	case float32:
		if !Finite(float64(n)) {
			return cty.NilVal, failure.New(failure.CodeInvalidValue, "number %g is not finite", n)
		}
	case string:
		return TextValue(n)
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	val, err := gocty.ToCtyValue(v, ty)
	if err != nil {
		return cty.NilVal, err
	}
	if err := checkValue("", val); err != nil {
		return cty.NilVal, err
	}
	return val, nil
}

// Finite reports whether f is neither NaN nor an infinity.
func Finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Native converts a registry value back to float64, string, or bool.
func Native(v cty.Value) any {
	if !v.IsKnown() || v.IsNull() {
		return nil
	}
	switch v.Type() {
	case cty.String:
		return v.AsString()
	case cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return f
	case cty.Bool:
		return v.True()
	}
	return nil
}

// sameValue compares two primitive values, treating numbers numerically.
func sameValue(a, b cty.Value) bool {
	if !a.Type().Equals(b.Type()) {
		return false
	}
	return a.Equals(b).True()
}
