// Package loader is the reference host loader.
//
// It fetches raw unit bytes from a source, runs them through the full
// pipeline and records the definition. While a unit is being transformed
// the loader serves as its pass.Hierarchy: other units can be read as
// already defined, as of the marker (memoized), or untransformed when they
// fall under a platform prefix.
//
// Thread-safety: Load may be called from many goroutines. A per-name lock
// ensures a unit is transformed and defined at most once.
package loader
