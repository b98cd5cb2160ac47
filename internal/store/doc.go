// Package store persists weaver runs in SQLite.
//
// A run is one process invocation: the frozen pass order, the audit trail
// of every unit it transformed, the per-unit results and any loading
// issues from pass discovery.
//
// # Tables
//
//   - runs: one row per run, keyed by a UUIDv7 run ID
//   - audit_entries: (run, seq) -> unit, pass, applied
//   - unit_results: (run, unit) -> outcome, content hash, error
//   - loading_issues: (run, idx) -> provider source, message
//
// Audit entries are always read ORDER BY seq ASC, so a persisted trail
// reads back in the order it was recorded.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
