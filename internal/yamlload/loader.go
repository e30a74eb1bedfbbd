// Package yamlload reads seeds, bounds and certificates from YAML files. The
// layout mirrors the HCL one:
//
//	parameters:
//	  topology.b3:
//	    value: 24
//	    status: ESTABLISHED
//	bounds:
//	  derived.half_b3: {value: 12, uncertainty: 0.5}
//	certificates:
//	  - id: C-HALF
//	    param: derived.half_b3
//	    tolerance: 2
package yamlload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/specialistvlad/paramgrid/internal/certificate"
	"github.com/specialistvlad/paramgrid/internal/config"
	"github.com/specialistvlad/paramgrid/internal/ctxlog"
	"github.com/specialistvlad/paramgrid/internal/registry"
	"gopkg.in/yaml.v3"
)

type document struct {
	Parameters   map[string]parameter `yaml:"parameters"`
	Bounds       map[string]bound     `yaml:"bounds"`
	Certificates []certificateDef     `yaml:"certificates"`
}

type parameter struct {
	Value  any    `yaml:"value"`
	Status string `yaml:"status"`
	Source string `yaml:"source"`
	Bound  *bound `yaml:"bound"`
}

type bound struct {
	Value       float64 `yaml:"value"`
	Type        string  `yaml:"type"`
	Source      string  `yaml:"source"`
	Uncertainty float64 `yaml:"uncertainty"`
}

type certificateDef struct {
	ID         string   `yaml:"id"`
	Assertion  string   `yaml:"assertion"`
	Sector     string   `yaml:"sector"`
	Kind       string   `yaml:"kind"`
	Param      string   `yaml:"param"`
	Condition  string   `yaml:"condition"`
	Deviation  string   `yaml:"deviation"`
	Tolerance  float64  `yaml:"tolerance"`
	References []string `yaml:"references"`
}

// Loader is the YAML implementation of config.FileLoader.
type Loader struct{}

// New creates a YAML loader.
func New() *Loader { return &Loader{} }

// Extensions implements config.FileLoader.
func (l *Loader) Extensions() []string { return []string{".yaml", ".yml"} }

// LoadFile implements config.FileLoader.
func (l *Loader) LoadFile(ctx context.Context, path string) (*config.Model, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML file %s: %w", path, err)
	}
	return l.LoadSource(ctx, path, src)
}

// LoadSource parses YAML from memory. Unknown keys are rejected.
func (l *Loader) LoadSource(ctx context.Context, filename string, src []byte) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx).With("file", filename)

	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", filename, err)
	}

	model := &config.Model{}
	for _, path := range sortedKeys(doc.Parameters) {
		p := doc.Parameters[path]
		if p.Value == nil && p.Bound == nil {
			return nil, fmt.Errorf("%s: parameter %q has neither a value nor a bound", filename, path)
		}
		if p.Value != nil {
			seed, err := translateSeed(filename, path, p)
			if err != nil {
				return nil, err
			}
			model.Seeds = append(model.Seeds, seed)
		}
		if p.Bound != nil {
			decl, err := translateBound(filename, path, *p.Bound)
			if err != nil {
				return nil, err
			}
			model.Bounds = append(model.Bounds, decl)
		}
	}
	for _, path := range sortedKeys(doc.Bounds) {
		decl, err := translateBound(filename, path, doc.Bounds[path])
		if err != nil {
			return nil, err
		}
		model.Bounds = append(model.Bounds, decl)
	}
	for _, c := range doc.Certificates {
		model.Certificates = append(model.Certificates, certificate.Definition{
			ID:         c.ID,
			Assertion:  c.Assertion,
			Sector:     c.Sector,
			Kind:       certificate.Kind(c.Kind),
			Param:      c.Param,
			Condition:  c.Condition,
			Deviation:  c.Deviation,
			Tolerance:  c.Tolerance,
			References: c.References,
		})
	}

	logger.Debug("Decoded YAML file.", "seeds", len(model.Seeds), "bounds", len(model.Bounds), "certificates", len(model.Certificates))
	return model, nil
}

func translateSeed(file, path string, p parameter) (config.Seed, error) {
	val, err := registry.FromNative(p.Value)
	if err != nil {
		return config.Seed{}, fmt.Errorf("%s: parameter %q: %w", file, path, err)
	}
	var status registry.Status
	if p.Status != "" {
		if status, err = registry.ParseStatus(p.Status); err != nil {
			return config.Seed{}, fmt.Errorf("%s: parameter %q: %w", file, path, err)
		}
	}
	return config.Seed{Path: path, Value: val, Status: status, Source: p.Source, File: file}, nil
}

func translateBound(file, path string, b bound) (config.BoundDecl, error) {
	bt, err := registry.ParseBoundType(b.Type)
	if err != nil {
		return config.BoundDecl{}, fmt.Errorf("%s: bound for %q: %w", file, path, err)
	}
	return config.BoundDecl{
		Path:  path,
		Bound: registry.Bound{Value: b.Value, Type: bt, Source: b.Source, Uncertainty: b.Uncertainty},
		File:  file,
	}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
