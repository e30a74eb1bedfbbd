// Package report assembles the audit output of a run and serializes it.
package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"
	"github.com/specialistvlad/paramgrid/internal/certificate"
	"github.com/specialistvlad/paramgrid/internal/orchestrator"
	"github.com/specialistvlad/paramgrid/internal/registry"
	"github.com/specialistvlad/paramgrid/internal/validation"
	"gopkg.in/yaml.v3"
)

// Report is everything a run produced.
type Report struct {
	RunID        string
	Result       *orchestrator.Result
	Parameters   map[string]map[string]any
	Certificates certificate.Report
	Validation   validation.Summary
}

// New builds a report for a finished run with a fresh run id.
func New(res *orchestrator.Result, reg *registry.Registry, certs certificate.Report) *Report {
	return &Report{
		RunID:        uuid.NewString(),
		Result:       res,
		Parameters:   reg.Table(),
		Certificates: certs,
		Validation:   res.Validation(),
	}
}

// OK reports whether every unit executed, every certificate passed and no
// self-validation check failed.
func (r *Report) OK() bool {
	return r.Result.OK() && r.Certificates.AllPassed() && r.Validation.OK
}

// Export renders the report as plain nested maps.
func (r *Report) Export() map[string]any {
	out := r.body()
	out["run_id"] = r.RunID
	return out
}

// body is the export without the run id.
func (r *Report) body() map[string]any {
	params := make(map[string]any, len(r.Parameters))
	for path, row := range r.Parameters {
		params[path] = row
	}
	order := make([]any, len(r.Result.Order))
	for i, id := range r.Result.Order {
		order[i] = id
	}

	return map[string]any{
		"summary": map[string]any{
			"ok":                  r.OK(),
			"executed":            len(r.Result.InState(orchestrator.Executed)),
			"failed":              len(r.Result.InState(orchestrator.Failed)),
			"skipped":             len(r.Result.InState(orchestrator.Skipped)),
			"certificates_passed": r.Certificates.Passed,
			"certificates_failed": r.Certificates.Failed,
		},
		"order":        order,
		"units":        r.Result.ExportUnits(),
		"parameters":   params,
		"certificates": r.Certificates.Export(),
		"validation":   r.Validation.Export(),
		"formulas":     r.Result.Formulas.Export(),
	}
}

// Digest is the SHA-256 of the canonical JSON (RFC 8785) form of the export,
// without the run id. Two runs that reach the same state share a digest.
func (r *Report) Digest() (string, error) {
	raw, err := json.Marshal(r.body())
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize report: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Format is an output encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case JSON, YAML:
		return Format(s), nil
	}
	return "", fmt.Errorf("invalid output format %q: must be one of json, yaml", s)
}

// Encode writes the export, plus its digest, to w.
func (r *Report) Encode(w io.Writer, f Format) error {
	digest, err := r.Digest()
	if err != nil {
		return err
	}
	out := r.Export()
	out["digest"] = digest
	return Write(w, f, out)
}

// Write encodes any plain value in format f.
func Write(w io.Writer, f Format, v any) error {
	switch f {
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode as YAML: %w", err)
		}
		return enc.Close()
	case JSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode as JSON: %w", err)
		}
		return nil
	}
	return fmt.Errorf("invalid output format %q", f)
}
