package config

import (
	"context"
	"fmt"

	"github.com/specialistvlad/paramgrid/internal/ctxlog"
	"github.com/specialistvlad/paramgrid/internal/registry"
)

// Apply seeds reg from m. Seeds default to ESTABLISHED with DefaultSource.
// It stops at the first rejected write.
func Apply(ctx context.Context, m *Model, reg *registry.Registry) error {
	logger := ctxlog.FromContext(ctx)

	for _, s := range m.Seeds {
		status := s.Status
		if status == "" {
			status = registry.Established
		}
		source := s.Source
		if source == "" {
			source = DefaultSource
		}
		if err := reg.Set(s.Path, s.Value, source, status); err != nil {
			return fmt.Errorf("seeding %q from %s: %w", s.Path, s.File, err)
		}
		logger.Debug("Seeded parameter.", "path", s.Path, "status", status, "source", source)
	}

	for _, b := range m.Bounds {
		if err := reg.DeclareBound(b.Path, b.Bound); err != nil {
			return fmt.Errorf("declaring bound for %q from %s: %w", b.Path, b.File, err)
		}
	}

	logger.Info("Registry seeded.", "parameters", len(m.Seeds), "bounds", len(m.Bounds))
	return nil
}
