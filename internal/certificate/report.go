package certificate

// Report is the outcome of one evaluation pass.
type Report struct {
	Results []Result
	Passed  int
	Failed  int
}

// Result looks up a result by certificate id.
func (r Report) Result(id string) (Result, bool) {
	for _, res := range r.Results {
		if res.ID == id {
			return res, true
		}
	}
	return Result{}, false
}

// AllPassed reports whether every certificate passed.
func (r Report) AllPassed() bool { return r.Failed == 0 }

// Export renders the report as id -> {status, deviation, ...}.
func (r Report) Export() map[string]any {
	out := make(map[string]any, len(r.Results))
	for _, res := range r.Results {
		entry := map[string]any{
			"status":    string(res.Status),
			"assertion": res.Assertion,
			"sector":    res.Sector,
			"message":   res.Message,
		}
		if res.Deviation != nil {
			entry["deviation"] = *res.Deviation
		}
		if res.Reason != "" {
			entry["reason"] = string(res.Reason)
		}
		out[res.ID] = entry
	}
	return out
}
