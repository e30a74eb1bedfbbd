// Package certificate evaluates tolerance-based assertions against registry
// state and declared experimental bounds.
//
// A certificate is either a bound certificate, which compares one parameter
// with the bound declared for it, or an expression certificate, whose
// condition is a CEL expression over the parameter table. Evaluation never
// mutates the registry and is deterministic for a given snapshot.
package certificate

import (
	"fmt"

	"github.com/specialistvlad/paramgrid/internal/failure"
	"github.com/specialistvlad/paramgrid/internal/paramid"
)

// Kind selects how a certificate is evaluated.
type Kind string

const (
	KindBound      Kind = "bound"
	KindExpression Kind = "expression"
)

// Status is the outcome of one certificate.
type Status string

const (
	Pass Status = "PASS"
	Fail Status = "FAIL"
)

// Definition is a named assertion. Definitions are static data; results are
// created fresh on every evaluation.
type Definition struct {
	ID        string
	Assertion string
	Sector    string
	Kind      Kind

	// Param is the parameter compared by a bound certificate.
	Param string

	// Condition is a CEL expression yielding bool. Deviation, when set, is a
	// CEL expression yielding a number that is reported alongside the status.
	Condition string
	Deviation string

	Tolerance float64

	// References lists the parameters an expression certificate reads. Any
	// that are unset fail the certificate before the expression runs.
	References []string
}

// Validate checks a definition's static shape.
func (d Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("certificate has an empty id")
	}
	if d.Tolerance < 0 {
		return fmt.Errorf("certificate %q: tolerance must not be negative", d.ID)
	}
	switch d.kind() {
	case KindBound:
		if err := paramid.Validate(d.Param); err != nil {
			return fmt.Errorf("certificate %q: %w", d.ID, err)
		}
	case KindExpression:
		if d.Condition == "" {
			return fmt.Errorf("certificate %q: expression certificate needs a condition", d.ID)
		}
		for _, ref := range d.References {
			if err := paramid.Validate(ref); err != nil {
				return fmt.Errorf("certificate %q: %w", d.ID, err)
			}
		}
	default:
		return fmt.Errorf("certificate %q: unknown kind %q", d.ID, d.Kind)
	}
	return nil
}

// kind infers the kind when it was left empty.
func (d Definition) kind() Kind {
	if d.Kind != "" {
		return d.Kind
	}
	if d.Condition != "" {
		return KindExpression
	}
	return KindBound
}

// Result is the outcome of evaluating one Definition.
type Result struct {
	ID        string
	Assertion string
	Sector    string
	Status    Status
	// Deviation is nil when the certificate does not compute one.
	Deviation *float64
	// Reason is set on failures that never reached a numeric comparison.
	Reason  failure.Code
	Message string
}

// failedWith turns a coded failure into a FAIL result.
func failedWith(d Definition, err *failure.Error) Result {
	return Result{
		ID:        d.ID,
		Assertion: d.Assertion,
		Sector:    d.Sector,
		Status:    Fail,
		Reason:    err.Code,
		Message:   err.Msg,
	}
}

func failed(d Definition, code failure.Code, format string, args ...any) Result {
	return Result{
		ID:        d.ID,
		Assertion: d.Assertion,
		Sector:    d.Sector,
		Status:    Fail,
		Reason:    code,
		Message:   fmt.Sprintf(format, args...),
	}
}
