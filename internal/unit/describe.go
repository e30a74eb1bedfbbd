package unit

import "sort"

// Describe renders a unit's declared contract as plain maps.
func Describe(u Unit) map[string]any {
	meta := u.Metadata()
	outputs := u.OutputParams()
	statuses := make(map[string]any, len(outputs))
	for _, out := range outputs {
		statuses[out] = string(meta.StatusFor(out))
	}

	d := map[string]any{
		"id":              meta.ID,
		"version":         meta.Version,
		"domain":          meta.Domain,
		"title":           meta.Title,
		"required_inputs": sortedAny(u.RequiredInputs()),
		"output_params":   sortedAny(outputs),
		"output_formulas": sortedAny(u.OutputFormulas()),
		"output_status":   statuses,
	}
	if cp, ok := u.(CertificateProvider); ok {
		ids := make([]string, 0)
		for _, def := range cp.Certificates() {
			ids = append(ids, def.ID)
		}
		d["certificates"] = sortedAny(ids)
	}
	return d
}

func sortedAny(ss []string) []any {
	c := append([]string(nil), ss...)
	sort.Strings(c)
	out := make([]any, len(c))
	for i, s := range c {
		out[i] = s
	}
	return out
}
