// Package registry is the single source of truth for named parameter values
// during one run.
//
// Every value is stored under a dotted path (see package paramid) together
// with its status and free-text source. ESTABLISHED values are seeded facts
// and are write-once; every other status marks a value produced by a unit and
// may only be rewritten by the same source.
//
// A Registry moves through a short lifecycle: it is created and seeded by the
// caller, sealed by the orchestrator for execution (after which only the
// returned Writer may commit values), released, and finally read for
// reporting. Units only ever see an immutable Snapshot.
package registry
