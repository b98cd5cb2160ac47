// Package audit records, per unit name, which passes the runner asked and
// which of them applied.
//
// A Trail is created once with the runner and lives for the process. It is
// append-only: entries are never rewritten or pruned. Sequence numbers come
// from a shared logical clock, so entries from concurrent transformations
// of different units still have a single global order.
package audit
