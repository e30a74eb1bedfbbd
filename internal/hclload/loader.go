// Package hclload reads seeds, bounds and certificates from HCL files.
//
//	parameter "topology.b3" {
//	  value  = 24
//	  status = "ESTABLISHED"
//	  source = "compactification data"
//	}
//
//	bound "derived.half_b3" {
//	  value       = 12
//	  uncertainty = 0.5
//	}
//
//	certificate "C-HALF" {
//	  param     = "derived.half_b3"
//	  tolerance = 2
//	}
package hclload

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/paramgrid/internal/certificate"
	"github.com/specialistvlad/paramgrid/internal/config"
	"github.com/specialistvlad/paramgrid/internal/ctxlog"
	"github.com/specialistvlad/paramgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Loader is the HCL implementation of config.FileLoader.
type Loader struct {
	evalCtx *hcl.EvalContext
}

// New creates an HCL loader. Parameter values may use a small set of
// arithmetic functions such as pow, abs and max.
func New() *Loader {
	return &Loader{
		evalCtx: &hcl.EvalContext{
			Functions: map[string]function.Function{
				"abs":   stdlib.AbsoluteFunc,
				"ceil":  stdlib.CeilFunc,
				"floor": stdlib.FloorFunc,
				"log":   stdlib.LogFunc,
				"pow":   stdlib.PowFunc,
				"max":   stdlib.MaxFunc,
				"min":   stdlib.MinFunc,
				"upper": stdlib.UpperFunc,
				"lower": stdlib.LowerFunc,
			},
		},
	}
}

// Extensions implements config.FileLoader.
func (l *Loader) Extensions() []string { return []string{".hcl"} }

// LoadFile implements config.FileLoader.
func (l *Loader) LoadFile(ctx context.Context, path string) (*config.Model, error) {
	hclFile, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	return l.decode(ctxlog.FromContext(ctx).With("file", path), path, hclFile.Body)
}

// LoadSource parses HCL from memory; filename is used in diagnostics only.
func (l *Loader) LoadSource(ctx context.Context, filename string, src []byte) (*config.Model, error) {
	hclFile, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return l.decode(ctxlog.FromContext(ctx).With("file", filename), filename, hclFile.Body)
}

func (l *Loader) decode(logger *slog.Logger, path string, body hcl.Body) (*config.Model, error) {
	var root fileRoot
	if diags := gohcl.DecodeBody(body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	model := &config.Model{}
	for _, p := range root.Parameters {
		val, set, err := l.value(p.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: parameter %q: %w", path, p.Path, err)
		}
		if !set && p.Bound == nil {
			return nil, fmt.Errorf("%s: parameter %q has neither a value nor a bound", path, p.Path)
		}
		if set {
			seed, err := translateSeed(path, p, val)
			if err != nil {
				return nil, err
			}
			model.Seeds = append(model.Seeds, seed)
		}
		if p.Bound != nil {
			decl, err := translateBound(path, p.Path, *p.Bound)
			if err != nil {
				return nil, err
			}
			model.Bounds = append(model.Bounds, decl)
		}
	}
	for _, b := range root.Bounds {
		decl, err := translateBound(path, b.Path, boundBody{
			Value: b.Value, Type: b.Type, Source: b.Source, Uncertainty: b.Uncertainty,
		})
		if err != nil {
			return nil, err
		}
		model.Bounds = append(model.Bounds, decl)
	}
	for _, c := range root.Certificates {
		model.Certificates = append(model.Certificates, translateCertificate(c))
	}

	logger.Debug("Decoded HCL file.", "seeds", len(model.Seeds), "bounds", len(model.Bounds), "certificates", len(model.Certificates))
	return model, nil
}

// value evaluates an optional attribute. An omitted attribute decodes to a
// null placeholder, reported as not set.
func (l *Loader) value(expr hcl.Expression) (cty.Value, bool, error) {
	if expr == nil {
		return cty.NilVal, false, nil
	}
	val, diags := expr.Value(l.evalCtx)
	if diags.HasErrors() {
		return cty.NilVal, false, diags
	}
	if val.IsNull() {
		return cty.NilVal, false, nil
	}
	return val, true, nil
}

func translateSeed(file string, p *parameterBlock, val cty.Value) (config.Seed, error) {
	var status registry.Status
	if p.Status != "" {
		s, err := registry.ParseStatus(p.Status)
		if err != nil {
			return config.Seed{}, fmt.Errorf("%s: parameter %q: %w", file, p.Path, err)
		}
		status = s
	}
	if !val.IsWhollyKnown() {
		return config.Seed{}, fmt.Errorf("%s: parameter %q: value must be known", file, p.Path)
	}
	return config.Seed{
		Path:   p.Path,
		Value:  val,
		Status: status,
		Source: p.Source,
		File:   file,
	}, nil
}

func translateBound(file, path string, b boundBody) (config.BoundDecl, error) {
	bt, err := registry.ParseBoundType(b.Type)
	if err != nil {
		return config.BoundDecl{}, fmt.Errorf("%s: bound for %q: %w", file, path, err)
	}
	return config.BoundDecl{
		Path: path,
		Bound: registry.Bound{
			Value:       b.Value,
			Type:        bt,
			Source:      b.Source,
			Uncertainty: b.Uncertainty,
		},
		File: file,
	}, nil
}

func translateCertificate(c *certificateBlock) certificate.Definition {
	return certificate.Definition{
		ID:         c.ID,
		Assertion:  c.Assertion,
		Sector:     c.Sector,
		Kind:       certificate.Kind(c.Kind),
		Param:      c.Param,
		Condition:  c.Condition,
		Deviation:  c.Deviation,
		Tolerance:  c.Tolerance,
		References: c.References,
	}
}
