// Package failure defines the structured error taxonomy shared by the
// registry, the orchestrator, and the evaluators.
//
// Every failure carries a machine-readable Code. Expected, per-unit failures
// end up as report entries; the same type is used for the hard failures that
// abort a run, so callers can always recover the code with CodeOf or match it
// with errors.Is against the exported sentinels.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// Code is a machine-readable failure code.
type Code string

const (
	CodeUnknown Code = "UNKNOWN"

	// Registry failures
	CodeUnknownParameter    Code = "UNKNOWN_PARAMETER"
	CodeProvenanceViolation Code = "PROVENANCE_VIOLATION"
	CodeDirectMutation      Code = "DIRECT_MUTATION"
	CodeInvalidPath         Code = "INVALID_PATH"
	CodeInvalidValue        Code = "INVALID_VALUE"

	// Unit contract failures
	CodeMissingInput            Code = "MISSING_INPUT"
	CodeOutputContractViolation Code = "OUTPUT_CONTRACT_VIOLATION"
	CodeUnitError               Code = "UNIT_ERROR"
	CodeUpstreamFailure         Code = "UPSTREAM_FAILURE"
	CodeCanceled                Code = "CANCELED"

	// Registration failures
	CodeInvalidUnit          Code = "INVALID_UNIT"
	CodeConflictingOwnership Code = "CONFLICTING_OWNERSHIP"

	// Graph failures
	CodeCyclicDependency   Code = "CYCLIC_DEPENDENCY"
	CodeCyclicFormulaGraph Code = "CYCLIC_FORMULA_GRAPH"

	// Audit failures
	CodeUnresolvedReference Code = "UNRESOLVED_REFERENCE"
	CodeExternalReference   Code = "EXTERNAL_REFERENCE"
)

// Sentinels for errors.Is. They match any *Error with the same code.
var (
	ErrUnknownParameter        = &Error{Code: CodeUnknownParameter}
	ErrProvenanceViolation     = &Error{Code: CodeProvenanceViolation}
	ErrDirectMutation          = &Error{Code: CodeDirectMutation}
	ErrInvalidPath             = &Error{Code: CodeInvalidPath}
	ErrInvalidValue            = &Error{Code: CodeInvalidValue}
	ErrMissingInput            = &Error{Code: CodeMissingInput}
	ErrOutputContractViolation = &Error{Code: CodeOutputContractViolation}
	ErrUnitError               = &Error{Code: CodeUnitError}
	ErrUpstreamFailure         = &Error{Code: CodeUpstreamFailure}
	ErrCanceled                = &Error{Code: CodeCanceled}
	ErrInvalidUnit             = &Error{Code: CodeInvalidUnit}
	ErrConflictingOwnership    = &Error{Code: CodeConflictingOwnership}
	ErrCyclicDependency        = &Error{Code: CodeCyclicDependency}
	ErrCyclicFormulaGraph      = &Error{Code: CodeCyclicFormulaGraph}
	ErrUnresolvedReference     = &Error{Code: CodeUnresolvedReference}
)

// Error is a coded failure with optional structured context.
type Error struct {
	Code     Code
	Msg      string
	Unit     string
	Paths    []string
	IDs      []string
	Expected []string
	Actual   []string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(string(e.Code))
	if e.Unit != "" {
		fmt.Fprintf(&sb, "(%s)", e.Unit)
	}
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// CodeOf returns the code of the first *Error in err's chain, or CodeUnknown.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return CodeUnknown
}

// New builds a coded error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func UnknownParameter(path string) *Error {
	return &Error{Code: CodeUnknownParameter, Msg: fmt.Sprintf("parameter %q is not set", path), Paths: []string{path}}
}

func ProvenanceViolation(path, msg string) *Error {
	return &Error{Code: CodeProvenanceViolation, Msg: fmt.Sprintf("%s: %s", path, msg), Paths: []string{path}}
}

func DirectMutation(path string) *Error {
	return &Error{Code: CodeDirectMutation, Msg: fmt.Sprintf("write to %q while the registry is sealed for execution", path), Paths: []string{path}}
}

func MissingInput(unitID string, missing []string) *Error {
	return &Error{
		Code:  CodeMissingInput,
		Unit:  unitID,
		Msg:   "required inputs are not set: " + strings.Join(missing, ", "),
		Paths: missing,
	}
}

func OutputContractViolation(unitID string, expected, actual []string) *Error {
	return &Error{
		Code:     CodeOutputContractViolation,
		Unit:     unitID,
		Msg:      fmt.Sprintf("expected outputs [%s], got [%s]", strings.Join(expected, ", "), strings.Join(actual, ", ")),
		Expected: expected,
		Actual:   actual,
	}
}

func UpstreamFailure(unitID string, upstream string) *Error {
	return &Error{Code: CodeUpstreamFailure, Unit: unitID, Msg: fmt.Sprintf("upstream unit %q did not complete", upstream)}
}

func CyclicDependency(ids []string) *Error {
	return &Error{Code: CodeCyclicDependency, Msg: strings.Join(ids, " -> "), IDs: ids}
}

func CyclicFormulaGraph(ids []string) *Error {
	return &Error{Code: CodeCyclicFormulaGraph, Msg: strings.Join(ids, " -> "), IDs: ids}
}

func UnresolvedReference(refs ...string) *Error {
	return &Error{Code: CodeUnresolvedReference, Msg: "unset references: " + strings.Join(refs, ", "), Paths: refs}
}
