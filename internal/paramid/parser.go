package paramid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/specialistvlad/paramgrid/internal/failure"
)

// segmentRegex parses a single segment of a path, e.g. `name` or `name[1]`.
var segmentRegex = regexp.MustCompile(`^([A-Za-z0-9_-]+)(?:\[(\d+)\])?$`)

// isValidSegmentName checks for undesirable but technically valid names.
func isValidSegmentName(name string) bool {
	return strings.Trim(name, "-") != ""
}

// Parse creates a Path by parsing its canonical string representation.
func Parse(raw string) (*Path, error) {
	if raw == "" {
		return nil, failure.New(failure.CodeInvalidPath, "parameter path cannot be empty")
	}

	p := &Path{}
	for _, segmentStr := range strings.Split(raw, ".") {
		if segmentStr == "" {
			return nil, failure.New(failure.CodeInvalidPath, "path %q contains an empty segment", raw)
		}

		matches := segmentRegex.FindStringSubmatch(segmentStr)
		if matches == nil {
			return nil, failure.New(failure.CodeInvalidPath, "invalid segment %q in path %q", segmentStr, raw)
		}

		name := matches[1]
		if !isValidSegmentName(name) {
			return nil, failure.New(failure.CodeInvalidPath, "invalid segment name %q in path %q", name, raw)
		}

		segment := NewSegment(name)
		if digits := matches[2]; digits != "" {
			// One spelling per path: `a[01]` would otherwise be a second key for `a[1]`.
			if len(digits) > 1 && digits[0] == '0' {
				return nil, failure.New(failure.CodeInvalidPath, "index of %q in path %q has a leading zero", segmentStr, raw)
			}
			index, err := strconv.Atoi(digits)
			if err != nil {
				return nil, &failure.Error{Code: failure.CodeInvalidPath, Msg: fmt.Sprintf("parsing index of %q", segmentStr), Err: err}
			}
			segment.Index = index
		}
		p.Segments = append(p.Segments, segment)
	}

	return p, nil
}

// Validate reports whether raw is a well-formed path.
func Validate(raw string) error {
	_, err := Parse(raw)
	return err
}

// MustParse is like Parse but panics on error. Intended for static paths.
func MustParse(raw string) *Path {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}
