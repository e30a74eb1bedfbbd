package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := MissingInput("V", []string{"missing.path"})

	assert.True(t, errors.Is(err, ErrMissingInput))
	assert.False(t, errors.Is(err, ErrUnknownParameter))

	wrapped := fmt.Errorf("running unit: %w", err)
	assert.True(t, errors.Is(wrapped, ErrMissingInput))
	assert.Equal(t, CodeMissingInput, CodeOf(wrapped))
}

func TestCodeOf_NonFailure(t *testing.T) {
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("plain")))
	assert.Equal(t, CodeUnknown, CodeOf(nil))
}

func TestErrorString(t *testing.T) {
	testCases := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "with unit",
			err:  MissingInput("V", []string{"a.b", "c.d"}),
			want: "MISSING_INPUT(V): required inputs are not set: a.b, c.d",
		},
		{
			name: "contract",
			err:  OutputContractViolation("U", []string{"x.y"}, []string{"x.y", "x.z"}),
			want: "OUTPUT_CONTRACT_VIOLATION(U): expected outputs [x.y], got [x.y, x.z]",
		},
		{
			name: "with cause",
			err:  &Error{Code: CodeUnitError, Unit: "U", Err: errors.New("boom")},
			want: "UNIT_ERROR(U): boom",
		},
		{
			name: "cycle",
			err:  CyclicDependency([]string{"A", "B", "A"}),
			want: "CYCLIC_DEPENDENCY: A -> B -> A",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Code: CodeUnitError, Err: cause}
	assert.ErrorIs(t, err, cause)
}

func TestCycleErrorsCarryIDs(t *testing.T) {
	testCases := []struct {
		name string
		err  *Error
		code Code
	}{
		{"units", CyclicDependency([]string{"A", "B", "A"}), CodeCyclicDependency},
		{"formulas", CyclicFormulaGraph([]string{"f1", "f2", "f1"}), CodeCyclicFormulaGraph},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, tc.err.Code)
			assert.Len(t, tc.err.IDs, 3)
			assert.Equal(t, tc.err.IDs[0], tc.err.IDs[2])
			assert.Empty(t, tc.err.Paths)
		})
	}
}

func TestUnresolvedReference(t *testing.T) {
	err := UnresolvedReference("a.b", "c.d")
	assert.True(t, errors.Is(err, ErrUnresolvedReference))
	assert.Equal(t, []string{"a.b", "c.d"}, err.Paths)
	assert.Equal(t, "UNRESOLVED_REFERENCE: unset references: a.b, c.d", err.Error())
}
