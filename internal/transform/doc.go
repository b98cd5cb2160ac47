// Package transform runs the frozen pass order against one unit at a time.
//
// For each pass, in order, the Runner records in the audit trail that the
// pass was asked, evaluates its applicability and, if selected, applies it
// to the decoded unit. Outcomes are folded by precedence
// (RecomputeMetadata > SimpleRewrite > NoChange). When nothing but the
// marker is selected, the raw bytes are returned untouched.
//
// A request may stop before a named pass. Stopping before the first pass
// after the marker yields a unit's state as of the marker, which is what
// metadata recomputation for a dependent unit needs.
//
// Runner.Transform is re-entrant: passes and ComputeFrames call back into
// it, through a pass.Hierarchy, for other units on the same goroutine.
package transform
