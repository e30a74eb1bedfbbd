package config

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/paramgrid/internal/paramid"
)

// Validate checks a merged model: paths must parse, and no seed path, bound
// path, or certificate id may be declared twice.
func Validate(m *Model) error {
	var errs []string

	seeds := make(map[string]string)
	for _, s := range m.Seeds {
		if err := paramid.Validate(s.Path); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", s.File, err))
			continue
		}
		if prev, dup := seeds[s.Path]; dup {
			errs = append(errs, fmt.Sprintf("parameter %q is declared in both %s and %s", s.Path, prev, s.File))
		}
		seeds[s.Path] = s.File
		if s.Status != "" && !s.Status.Valid() {
			errs = append(errs, fmt.Sprintf("%s: parameter %q has unknown status %q", s.File, s.Path, s.Status))
		}
	}

	bounds := make(map[string]string)
	for _, b := range m.Bounds {
		if err := paramid.Validate(b.Path); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", b.File, err))
			continue
		}
		if prev, dup := bounds[b.Path]; dup {
			errs = append(errs, fmt.Sprintf("bound for %q is declared in both %s and %s", b.Path, prev, b.File))
		}
		bounds[b.Path] = b.File
		if b.Bound.Uncertainty < 0 {
			errs = append(errs, fmt.Sprintf("%s: bound for %q has negative uncertainty", b.File, b.Path))
		}
	}

	certs := make(map[string]struct{})
	for _, c := range m.Certificates {
		if err := c.Validate(); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if _, dup := certs[c.ID]; dup {
			errs = append(errs, fmt.Sprintf("certificate %q is declared twice", c.ID))
		}
		certs[c.ID] = struct{}{}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
