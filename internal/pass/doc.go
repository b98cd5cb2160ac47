// Package pass defines the transformation pass contract and the pass graph
// scheduler.
//
// A Graph is built once at startup from every pass a provider supplied plus
// the synthetic frame-recomputation marker. Build validates names, turns
// runs-before/runs-after declarations into edges, sorts the graph and
// records which passes are reachable from the marker. After Link the graph
// is frozen and safe for unsynchronized concurrent reads.
//
// # Ordering
//
// Constraints naming a pass that is not registered are ignored, so a pass
// may order itself against optional passes. Among passes with no remaining
// constraint the sort picks the smallest (Hint, Name), which makes the
// order independent of registration order.
//
// # Metadata recomputation
//
// Only passes reachable from the marker may return ir.RecomputeMetadata.
// Passes that order themselves before the marker see units as the decoder
// produced them and must leave verification metadata alone.
package pass
