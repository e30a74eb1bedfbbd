package paramid

import (
	"reflect"
	"strconv"
	"strings"
)

// String serializes the Path into its canonical dotted form.
func (p *Path) String() string {
	if p == nil {
		return ""
	}

	var sb strings.Builder
	for i, segment := range p.Segments {
		if i > 0 {
			sb.WriteRune('.')
		}
		sb.WriteString(segment.Name)
		if segment.HasIndex() {
			sb.WriteRune('[')
			sb.WriteString(strconv.Itoa(segment.Index))
			sb.WriteRune(']')
		}
	}

	return sb.String()
}

// Equal checks for deep equality between two Path pointers.
func (p *Path) Equal(other *Path) bool {
	if p == nil || other == nil {
		return p == other
	}
	return reflect.DeepEqual(p.Segments, other.Segments)
}

// Sector returns the first segment's name, which groups related parameters
// (e.g. "topology" for `topology.b3`).
func (p *Path) Sector() string {
	if p == nil || len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[0].Name
}

// Parent returns the path without its last segment, or nil for a
// single-segment path.
func (p *Path) Parent() *Path {
	if p == nil || len(p.Segments) < 2 {
		return nil
	}
	segments := make([]Segment, len(p.Segments)-1)
	copy(segments, p.Segments)
	return &Path{Segments: segments}
}
