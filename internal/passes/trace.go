package passes

import (
	"fmt"

	"github.com/roach88/weaver/internal/ir"
	"github.com/roach88/weaver/internal/pass"
	"github.com/roach88/weaver/internal/transform"
)

// MethodTracerName is the method tracer's pass name.
var MethodTracerName = ir.MustName("weaver:method_tracer")

// TracedInterface marks units the tracer instruments even when no trace
// pattern names them.
const TracedInterface = "weaver/Traced"

// TraceInsn is inserted at the head of each traced method body.
const TraceInsn = "trace.enter"

// TraceAttr on an ancestor opts its descendants into tracing.
const TraceAttr = "trace"

// MethodTracer instruments method bodies.
//
// A unit is traced when it matches a trace pattern, when the interface
// injector will give it TracedInterface, or (with inheritance on) when an
// ancestor resolved up to the marker has trace=true. The injector is found
// at link time; without it only the other rules apply.
type MethodTracer struct {
	patterns []string
	inherit  bool
	injector *InterfaceInjector
}

// NewMethodTracer traces units matching patterns.
func NewMethodTracer(patterns []string, inherit bool) *MethodTracer {
	return &MethodTracer{patterns: patterns, inherit: inherit}
}

func (*MethodTracer) Name() ir.Name         { return MethodTracerName }
func (*MethodTracer) RunsBefore() []ir.Name { return nil }
func (*MethodTracer) Hint() pass.Hint       { return pass.HintLate }

// RunsAfter implements pass.Pass.
func (*MethodTracer) RunsAfter() []ir.Name {
	return []ir.Name{pass.MarkerName, InterfaceInjectorName}
}

// Link finds the sibling interface injector.
func (t *MethodTracer) Link(ctx pass.LinkContext) error {
	if !ctx.CanRecompute(ctx.Self) {
		return fmt.Errorf("%s must be ordered after the marker", ctx.Self)
	}
	if p, ok := ctx.Lookup(InterfaceInjectorName); ok {
		if inj, ok := p.(*InterfaceInjector); ok {
			t.injector = inj
		}
	}
	return nil
}

func (t *MethodTracer) direct(name string) bool {
	if matchAny(t.patterns, name) {
		return true
	}
	return t.injector != nil && t.injector.Injects(name, TracedInterface)
}

// Applies implements pass.Pass.
func (t *MethodTracer) Applies(desc ir.Descriptor, empty bool) bool {
	if empty {
		return false
	}
	return t.inherit || t.direct(desc.Name)
}

// Apply implements pass.Pass.
func (t *MethodTracer) Apply(u *ir.Unit, ctx pass.Context) (ir.Outcome, error) {
	if !t.direct(u.Name) {
		inherited, err := t.inherited(u, ctx)
		if err != nil {
			return ir.NoChange, err
		}
		if !inherited {
			return ir.NoChange, nil
		}
	}

	changed := false
	for i := range u.Methods {
		body := u.Methods[i].Body
		if len(body) > 0 && body[0] == TraceInsn {
			continue
		}
		u.Methods[i].Body = append([]string{TraceInsn}, body...)
		changed = true
	}
	if !changed {
		return ir.NoChange, nil
	}
	return ir.RecomputeMetadata, nil
}

// inherited walks the ancestors of u, as of the marker, looking for
// trace=true.
func (t *MethodTracer) inherited(u *ir.Unit, ctx pass.Context) (bool, error) {
	if ctx.Hierarchy == nil || u.Super == "" {
		return false, nil
	}
	found := false
	err := transform.WalkAncestors(u, ctx.Hierarchy, ctx.Decode, func(anc *ir.Unit) bool {
		found = anc.Attrs[TraceAttr] == "true"
		return !found
	})
	if err != nil {
		return false, err
	}
	return found, nil
}
