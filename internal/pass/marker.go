package pass

import "github.com/roach88/weaver/internal/ir"

// MarkerName is the reserved name of the frame-recomputation marker.
var MarkerName = ir.MustName("weaver:compute_frames")

// marker is the synthetic checkpoint pass. It never mutates a unit; passes
// reachable from it may request metadata recomputation.
type marker struct{}

func (marker) Name() ir.Name                               { return MarkerName }
func (marker) RunsBefore() []ir.Name                       { return nil }
func (marker) RunsAfter() []ir.Name                        { return nil }
func (marker) Hint() Hint                                  { return HintEarliest }
func (marker) Applies(ir.Descriptor, bool) bool            { return true }
func (marker) Apply(*ir.Unit, Context) (ir.Outcome, error) { return ir.NoChange, nil }

// IsMarker reports whether p is the frame-recomputation marker.
func IsMarker(p Pass) bool {
	_, ok := p.(marker)
	return ok
}
