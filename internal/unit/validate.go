package unit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/specialistvlad/paramgrid/internal/certificate"
	"github.com/specialistvlad/paramgrid/internal/failure"
	"github.com/specialistvlad/paramgrid/internal/paramid"
	"github.com/specialistvlad/paramgrid/internal/registry"
)

// Validate checks a unit's declared contract before it can be registered.
// Every problem is collected so a broken unit is reported in one pass.
func Validate(u Unit) error {
	if u == nil {
		return failure.New(failure.CodeInvalidUnit, "unit is nil")
	}
	meta := u.Metadata()
	var errs []string

	if meta.ID == "" || strings.ContainsAny(meta.ID, " \t\n") {
		errs = append(errs, fmt.Sprintf("id %q must be non-empty and contain no whitespace", meta.ID))
	}
	if _, err := semver.NewVersion(meta.Version); err != nil {
		errs = append(errs, fmt.Sprintf("version %q is not a semantic version: %v", meta.Version, err))
	}
	if meta.DefaultStatus != "" {
		errs = append(errs, checkOutputStatus("default status", meta.DefaultStatus)...)
	}

	inputs := u.RequiredInputs()
	outputs := u.OutputParams()
	errs = append(errs, checkPaths("input", inputs)...)
	errs = append(errs, checkPaths("output", outputs)...)

	inputSet := toSet(inputs)
	outputSet := toSet(outputs)
	for _, out := range outputs {
		if _, ok := inputSet[out]; ok {
			errs = append(errs, fmt.Sprintf("output %q is also a required input", out))
		}
	}
	for _, path := range sortedKeys(meta.OutputStatus) {
		if _, ok := outputSet[path]; !ok {
			errs = append(errs, fmt.Sprintf("status override for %q, which is not an output", path))
		}
		errs = append(errs, checkOutputStatus(fmt.Sprintf("status for %q", path), meta.OutputStatus[path])...)
	}

	errs = append(errs, checkFormulas(u)...)

	if cp, ok := u.(CertificateProvider); ok {
		errs = append(errs, checkCertificates(cp.Certificates())...)
	}

	if len(errs) > 0 {
		return &failure.Error{
			Code: failure.CodeInvalidUnit,
			Unit: meta.ID,
			Msg:  fmt.Sprintf("unit validation failed:\n- %s", strings.Join(errs, "\n- ")),
		}
	}
	return nil
}

// CheckOutputs enforces that out has exactly the unit's declared keys.
func CheckOutputs(u Unit, out Outputs) error {
	expected := append([]string(nil), u.OutputParams()...)
	sort.Strings(expected)
	actual := out.Keys()

	if len(expected) != len(actual) {
		return failure.OutputContractViolation(u.Metadata().ID, expected, actual)
	}
	for i := range expected {
		if expected[i] != actual[i] {
			return failure.OutputContractViolation(u.Metadata().ID, expected, actual)
		}
	}
	return nil
}

// checkCertificates compiles every expression so a unit carrying a broken
// certificate is refused at registration instead of after it has run.
func checkCertificates(defs []certificate.Definition) []string {
	if len(defs) == 0 {
		return nil
	}
	ev, err := certificate.NewEvaluator()
	if err != nil {
		return []string{err.Error()}
	}
	var errs []string
	for _, def := range defs {
		if err := ev.Compile(def); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func checkPaths(kind string, paths []string) []string {
	var errs []string
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if err := paramid.Validate(p); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", kind, err))
			continue
		}
		if _, dup := seen[p]; dup {
			errs = append(errs, fmt.Sprintf("%s %q is declared twice", kind, p))
		}
		seen[p] = struct{}{}
	}
	return errs
}

func checkOutputStatus(what string, s registry.Status) []string {
	if !s.Valid() {
		return []string{fmt.Sprintf("%s %q is not a known status", what, s)}
	}
	if s == registry.Established {
		return []string{fmt.Sprintf("%s cannot be %s; established values are seeds", what, s)}
	}
	return nil
}

func checkFormulas(u Unit) []string {
	var errs []string
	declared := u.OutputFormulas()
	declaredSet := toSet(declared)
	if len(declaredSet) != len(declared) {
		errs = append(errs, "output formulas contain duplicates")
	}

	fp, ok := u.(FormulaPublisher)
	if !ok {
		if len(declared) > 0 {
			errs = append(errs, "declares output formulas but publishes no records")
		}
		return errs
	}

	published := make(map[string]struct{})
	for _, rec := range fp.Formulas() {
		if err := rec.Validate(); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		published[rec.ID] = struct{}{}
		if _, ok := declaredSet[rec.ID]; !ok {
			errs = append(errs, fmt.Sprintf("publishes formula %q which is not declared", rec.ID))
		}
	}
	for _, id := range declared {
		if _, ok := published[id]; !ok {
			errs = append(errs, fmt.Sprintf("declares formula %q but does not publish it", id))
		}
	}
	return errs
}

func toSet(ss []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		set[s] = struct{}{}
	}
	return set
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
