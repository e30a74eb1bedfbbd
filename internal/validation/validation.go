// Package validation aggregates the confidence-interval checks units run on
// their own outputs.
package validation

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Status is the per-unit verdict.
type Status string

const (
	Pass            Status = "PASS"
	Fail            Status = "FAIL"
	NoChecksDefined Status = "NO_CHECKS_DEFINED"
)

// Check is one self-declared assertion.
type Check struct {
	Name    string
	Passed  bool
	Value   float64
	Lower   float64
	Upper   float64
	Message string
}

// Interval checks that lo <= v <= hi.
func Interval(name string, v, lo, hi float64) Check {
	c := Check{Name: name, Value: v, Lower: lo, Upper: hi, Passed: v >= lo && v <= hi}
	if c.Passed {
		c.Message = fmt.Sprintf("%g within [%g, %g]", v, lo, hi)
	} else {
		c.Message = fmt.Sprintf("%g outside [%g, %g]", v, lo, hi)
	}
	return c
}

// UnitSummary is the verdict for one unit.
type UnitSummary struct {
	Unit   string
	Status Status
	Checks []Check
}

// Summary is the run-wide self-validation result.
type Summary struct {
	Units    []UnitSummary
	Passed   int
	Failed   int
	Warnings int
	// OK is false when any unit failed. Units without checks only warn.
	OK bool
}

// Summarize folds per-unit checks into a Summary sorted by unit id. A unit
// present in results with no checks is NO_CHECKS_DEFINED.
func Summarize(results map[string][]Check) Summary {
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	s := Summary{OK: true}
	for _, id := range ids {
		checks := results[id]
		us := UnitSummary{Unit: id, Status: Pass, Checks: append([]Check(nil), checks...)}
		switch {
		case len(checks) == 0:
			us.Status = NoChecksDefined
			s.Warnings++
		default:
			for _, c := range checks {
				if !c.Passed {
					us.Status = Fail
					break
				}
			}
			if us.Status == Fail {
				s.Failed++
				s.OK = false
			} else {
				s.Passed++
			}
		}
		s.Units = append(s.Units, us)
	}
	return s
}

// Export renders the summary as plain nested maps.
func (s Summary) Export() map[string]any {
	units := make(map[string]any, len(s.Units))
	for _, us := range s.Units {
		checks := make([]any, 0, len(us.Checks))
		for _, c := range us.Checks {
			checks = append(checks, map[string]any{
				"name":    c.Name,
				"passed":  c.Passed,
				"value":   number(c.Value),
				"lower":   number(c.Lower),
				"upper":   number(c.Upper),
				"message": c.Message,
			})
		}
		units[us.Unit] = map[string]any{
			"status": string(us.Status),
			"checks": checks,
		}
	}
	return map[string]any{
		"units":    units,
		"passed":   s.Passed,
		"failed":   s.Failed,
		"warnings": s.Warnings,
		"ok":       s.OK,
	}
}

// number keeps finite values numeric and spells NaN and the infinities as
// strings, which JSON cannot represent.
func number(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return f
}
