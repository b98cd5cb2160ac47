package testutil

import (
	"strings"
	"sync/atomic"

	"github.com/roach88/weaver/internal/ir"
	"github.com/roach88/weaver/internal/pass"
)

// Pass is a configurable pass.
//
// Without options it runs after the marker, never applies, and returns
// NoChange. Apply counts its calls.
type Pass struct {
	name    ir.Name
	before  []ir.Name
	after   []ir.Name
	hint    pass.Hint
	applies func(ir.Descriptor, bool) bool
	apply   func(*ir.Unit, pass.Context) (ir.Outcome, error)
	link    func(pass.LinkContext) error
	calls   atomic.Int64
}

// PassOption configures a Pass.
type PassOption func(*Pass)

// NewPass creates a test pass named name ("ns:id").
func NewPass(name string, opts ...PassOption) *Pass {
	p := &Pass{
		name:  ir.MustName(name),
		after: []ir.Name{pass.MarkerName},
		hint:  pass.HintDefault,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func toNames(names []string) []ir.Name {
	out := make([]ir.Name, len(names))
	for i, n := range names {
		out[i] = ir.Name(n)
	}
	return out
}

// Before sets the runs-before list.
func Before(names ...string) PassOption {
	return func(p *Pass) { p.before = toNames(names) }
}

// After replaces the runs-after list. After() with no names removes the
// default dependency on the marker.
func After(names ...string) PassOption {
	return func(p *Pass) { p.after = toNames(names) }
}

// BeforeMarker places the pass ahead of the marker.
func BeforeMarker() PassOption {
	return func(p *Pass) {
		p.after = []ir.Name{}
		p.before = append(p.before, pass.MarkerName)
	}
}

// WithHint sets the ordering hint.
func WithHint(h pass.Hint) PassOption {
	return func(p *Pass) { p.hint = h }
}

// AppliesAlways makes the pass applicable to every unit.
func AppliesAlways() PassOption {
	return func(p *Pass) {
		p.applies = func(ir.Descriptor, bool) bool { return true }
	}
}

// AppliesTo makes the pass applicable to units with one of the prefixes.
func AppliesTo(prefixes ...string) PassOption {
	return func(p *Pass) {
		p.applies = func(d ir.Descriptor, _ bool) bool {
			for _, prefix := range prefixes {
				if strings.HasPrefix(d.Name, prefix) {
					return true
				}
			}
			return false
		}
	}
}

// Returns makes Apply set attr "<pass name>"="<outcome>" and report
// outcome. For NoChange the unit is left untouched.
func Returns(outcome ir.Outcome) PassOption {
	return func(p *Pass) {
		p.apply = func(u *ir.Unit, _ pass.Context) (ir.Outcome, error) {
			if outcome != ir.NoChange {
				u.SetAttr(string(p.name), outcome.String())
			}
			return outcome, nil
		}
	}
}

// ApplyFunc sets the Apply behaviour.
func ApplyFunc(fn func(*ir.Unit, pass.Context) (ir.Outcome, error)) PassOption {
	return func(p *Pass) { p.apply = fn }
}

// LinkFunc makes the pass a pass.Linker.
func LinkFunc(fn func(pass.LinkContext) error) PassOption {
	return func(p *Pass) { p.link = fn }
}

func (p *Pass) Name() ir.Name         { return p.name }
func (p *Pass) RunsBefore() []ir.Name { return p.before }
func (p *Pass) RunsAfter() []ir.Name  { return p.after }
func (p *Pass) Hint() pass.Hint       { return p.hint }

// Applies implements pass.Pass.
func (p *Pass) Applies(d ir.Descriptor, empty bool) bool {
	if p.applies == nil {
		return false
	}
	return p.applies(d, empty)
}

// Apply implements pass.Pass.
func (p *Pass) Apply(u *ir.Unit, ctx pass.Context) (ir.Outcome, error) {
	p.calls.Add(1)
	if p.apply == nil {
		return ir.NoChange, nil
	}
	return p.apply(u, ctx)
}

// Link implements pass.Linker. Without LinkFunc it does nothing.
func (p *Pass) Link(ctx pass.LinkContext) error {
	if p.link == nil {
		return nil
	}
	return p.link(ctx)
}

// Calls returns how many times Apply ran.
func (p *Pass) Calls() int64 {
	return p.calls.Load()
}

// MustGraph builds and links passes with a nil host, failing on error.
func MustGraph(passes ...pass.Pass) *pass.Graph {
	g, err := pass.Build(passes, pass.WithLogger(DiscardLogger()))
	if err != nil {
		panic(err)
	}
	if err := g.Link(nil); err != nil {
		panic(err)
	}
	return g
}
