package orchestrator

import (
	"time"

	"github.com/specialistvlad/paramgrid/internal/certificate"
	"github.com/specialistvlad/paramgrid/internal/failure"
	"github.com/specialistvlad/paramgrid/internal/formula"
	"github.com/specialistvlad/paramgrid/internal/validation"
)

// State is the terminal state of a unit in a run.
type State string

const (
	Pending  State = "PENDING"
	Running  State = "RUNNING"
	Executed State = "EXECUTED"
	Failed   State = "FAILED"
	Skipped  State = "SKIPPED"
)

// UnitOutcome records what happened to one unit.
type UnitOutcome struct {
	ID    string
	State State
	// Reason is the failure code for FAILED and SKIPPED units.
	Reason   failure.Code
	Err      error
	Outputs  []string
	Duration time.Duration
}

// Result is the audit trail of one Execute call.
type Result struct {
	// Order is the planned order; Units follows it.
	Order []string
	Units []UnitOutcome

	// Formulas links the records published by executed units.
	Formulas *formula.Graph
	// Checks holds the self-validation checks of executed units.
	Checks map[string][]validation.Check
	// Certificates collects the definitions contributed by every unit.
	Certificates []certificate.Definition
}

// Outcome returns the outcome for a unit id.
func (r *Result) Outcome(id string) (UnitOutcome, bool) {
	for _, u := range r.Units {
		if u.ID == id {
			return u, true
		}
	}
	return UnitOutcome{}, false
}

// InState returns the ids of units in state s, in planned order.
func (r *Result) InState(s State) []string {
	var ids []string
	for _, u := range r.Units {
		if u.State == s {
			ids = append(ids, u.ID)
		}
	}
	return ids
}

// OK reports whether every unit executed.
func (r *Result) OK() bool {
	for _, u := range r.Units {
		if u.State != Executed {
			return false
		}
	}
	return true
}

// Validation summarizes the self-validation checks.
func (r *Result) Validation() validation.Summary {
	return validation.Summarize(r.Checks)
}

// ExportUnits renders unit outcomes as id -> {state, reason, error, outputs}.
func (r *Result) ExportUnits() map[string]any {
	out := make(map[string]any, len(r.Units))
	for _, u := range r.Units {
		entry := map[string]any{
			"state": string(u.State),
		}
		outputs := make([]any, len(u.Outputs))
		for i, p := range u.Outputs {
			outputs[i] = p
		}
		entry["outputs"] = outputs
		if u.Reason != "" {
			entry["reason"] = string(u.Reason)
		}
		if u.Err != nil {
			entry["error"] = u.Err.Error()
		}
		out[u.ID] = entry
	}
	return out
}
