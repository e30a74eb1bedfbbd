package certificate

import (
	"errors"
	"fmt"
	"math"

	"github.com/specialistvlad/paramgrid/internal/failure"
	"github.com/specialistvlad/paramgrid/internal/registry"
)

// Deviation measures how far v sits from bound b. With a positive
// uncertainty it is |v-b|/σ; otherwise it falls back to the relative error
// |v-b|/|b|, or |v| when b is zero.
func Deviation(v float64, b registry.Bound) float64 {
	diff := math.Abs(v - b.Value)
	switch {
	case b.Uncertainty > 0:
		return diff / b.Uncertainty
	case b.Value != 0:
		return diff / math.Abs(b.Value)
	default:
		return math.Abs(v)
	}
}

func evalBound(r registry.Reader, d Definition) Result {
	b, ok := r.Bound(d.Param)
	if !ok {
		return failed(d, failure.CodeUnresolvedReference, "no experimental bound declared for %q", d.Param)
	}
	v, err := r.Float(d.Param)
	if err != nil {
		if errors.Is(err, failure.ErrUnknownParameter) {
			return failedWith(d, failure.UnresolvedReference(d.Param))
		}
		return failed(d, failure.CodeInvalidValue, "%v", err)
	}

	dev := Deviation(v, b)
	if !registry.Finite(dev) {
		return failed(d, failure.CodeInvalidValue, "deviation of %s from %g is not finite", d.Param, b.Value)
	}
	res := Result{
		ID:        d.ID,
		Assertion: d.Assertion,
		Sector:    d.Sector,
		Deviation: &dev,
		Status:    Fail,
	}

	switch b.Type {
	case registry.BoundUpper:
		if v <= b.Value {
			res.Status = Pass
		}
		res.Message = fmt.Sprintf("%s = %g, upper bound %g", d.Param, v, b.Value)
	case registry.BoundLower:
		if v >= b.Value {
			res.Status = Pass
		}
		res.Message = fmt.Sprintf("%s = %g, lower bound %g", d.Param, v, b.Value)
	default:
		if dev < d.Tolerance {
			res.Status = Pass
		}
		res.Message = fmt.Sprintf("%s = %g vs %g: deviation %.4g, tolerance %g", d.Param, v, b.Value, dev, d.Tolerance)
	}
	return res
}
