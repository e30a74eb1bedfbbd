// Package dag provides a small, concurrency-safe directed graph keyed by
// string IDs. It is shared by the orchestrator (units linked through the
// parameters they produce and consume) and by the formula provenance graph
// (derivation records linked through parent references).
//
// Ordering is deterministic: ties in a topological sort are broken by ID, and
// a detected cycle is reported as a stable witness path.
package dag
