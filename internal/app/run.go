package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/specialistvlad/paramgrid/internal/certificate"
	"github.com/specialistvlad/paramgrid/internal/config"
	"github.com/specialistvlad/paramgrid/internal/ctxlog"
	"github.com/specialistvlad/paramgrid/internal/registry"
	"github.com/specialistvlad/paramgrid/internal/report"
	"github.com/specialistvlad/paramgrid/internal/unit"
)

// ErrNoSeeds is returned by Run when the configuration names no seed paths.
var ErrNoSeeds = errors.New("at least one seed path is required")

// Run loads the seeds and certificates, executes every registered unit,
// evaluates certificates, and writes the report to the output writer.
//
// An execution error after units ran (cancellation, a registry written
// outside the commit phase) still produces and writes the partial report,
// which is returned together with the error.
func (a *App) Run(ctx context.Context) (*report.Report, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := a.logger
	logger.Debug("App.Run method started.")

	if len(a.cfg.Seeds) == 0 {
		return nil, ErrNoSeeds
	}
	format, err := report.ParseFormat(a.cfg.Output)
	if err != nil {
		return nil, err
	}

	paths := append(append([]string{}, a.cfg.Seeds...), a.cfg.Certificates...)
	model, err := a.loader.Load(ctx, paths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Configuration loaded and translated into unified model.")

	reg := registry.New()
	if err := config.Apply(ctx, model, reg); err != nil {
		return nil, fmt.Errorf("failed to seed registry: %w", err)
	}
	logger.Info("Registry seeded.", "parameters", reg.Len())

	ev, err := certificate.NewEvaluator()
	if err != nil {
		return nil, err
	}
	for _, d := range model.Certificates {
		if err := ev.Compile(d); err != nil {
			return nil, fmt.Errorf("invalid certificate: %w", err)
		}
	}

	o, err := a.orchestrator(ctx, reg)
	if err != nil {
		return nil, err
	}

	logger.Info("🚀 Starting concurrent execution...")
	res, execErr := o.Execute(ctx)
	if res == nil {
		return nil, fmt.Errorf("execution failed: %w", execErr)
	}

	defs, err := mergeCertificates(model.Certificates, res.Certificates)
	if err != nil {
		return nil, err
	}
	certs := ev.Evaluate(reg, defs)

	rep := report.New(res, reg, certs)
	logger.Info("🏁 Execution finished.",
		"run_id", rep.RunID,
		"ok", rep.OK(),
		"units", len(res.Units),
		"certificates_passed", certs.Passed,
		"certificates_failed", certs.Failed,
	)

	if err := rep.Encode(a.outW, format); err != nil {
		return rep, err
	}
	if execErr != nil {
		return rep, fmt.Errorf("execution failed: %w", execErr)
	}

	logger.Debug("App.Run method finished.")
	return rep, nil
}

// Units writes the contract of every registered unit, in execution order.
func (a *App) Units(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	format, err := report.ParseFormat(a.cfg.Output)
	if err != nil {
		return err
	}

	o, err := a.orchestrator(ctx, registry.New())
	if err != nil {
		return err
	}
	plan, err := o.Plan()
	if err != nil {
		return err
	}

	byID := make(map[string]unit.Unit)
	for _, u := range o.Units() {
		byID[u.Metadata().ID] = u
	}
	units := make([]any, 0, len(plan.Order))
	for _, id := range plan.Order {
		units = append(units, unit.Describe(byID[id]))
	}

	unseeded := make(map[string]any)
	for id, paths := range plan.Unseeded() {
		sort.Strings(paths)
		list := make([]any, len(paths))
		for i, p := range paths {
			list[i] = p
		}
		unseeded[id] = list
	}

	return report.Write(a.outW, format, map[string]any{
		"units":          units,
		"required_seeds": unseeded,
	})
}

// mergeCertificates joins configured and unit-provided certificates,
// rejecting ids declared by both.
func mergeCertificates(configured, provided []certificate.Definition) ([]certificate.Definition, error) {
	seen := make(map[string]struct{}, len(configured))
	out := make([]certificate.Definition, 0, len(configured)+len(provided))
	for _, d := range configured {
		seen[d.ID] = struct{}{}
		out = append(out, d)
	}
	for _, d := range provided {
		if _, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("certificate %q is declared more than once", d.ID)
		}
		seen[d.ID] = struct{}{}
		out = append(out, d)
	}
	return out, nil
}
