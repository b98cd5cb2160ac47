package pass

import "github.com/roach88/weaver/internal/ir"

// stubPass is a configurable pass for graph tests.
type stubPass struct {
	name    ir.Name
	before  []ir.Name
	after   []ir.Name
	hint    Hint
	applies bool
	linkFn  func(LinkContext) error
}

// newStub returns a pass that runs after the marker, like Defaults.
func newStub(name string) *stubPass {
	return &stubPass{name: ir.Name(name), after: []ir.Name{MarkerName}, hint: HintDefault}
}

func (s *stubPass) withBefore(names ...string) *stubPass {
	for _, n := range names {
		s.before = append(s.before, ir.Name(n))
	}
	return s
}

func (s *stubPass) withAfter(names ...string) *stubPass {
	s.after = []ir.Name{}
	for _, n := range names {
		s.after = append(s.after, ir.Name(n))
	}
	return s
}

func (s *stubPass) withHint(h Hint) *stubPass {
	s.hint = h
	return s
}

func (s *stubPass) Name() ir.Name                               { return s.name }
func (s *stubPass) RunsBefore() []ir.Name                       { return s.before }
func (s *stubPass) RunsAfter() []ir.Name                        { return s.after }
func (s *stubPass) Hint() Hint                                  { return s.hint }
func (s *stubPass) Applies(ir.Descriptor, bool) bool            { return s.applies }
func (s *stubPass) Apply(*ir.Unit, Context) (ir.Outcome, error) { return ir.NoChange, nil }

// linkingStub adds a Link hook.
type linkingStub struct {
	*stubPass
}

func (l linkingStub) Link(ctx LinkContext) error {
	return l.linkFn(ctx)
}

// otherStub has a distinct Go type for duplicate-name diagnostics.
type otherStub struct {
	Defaults
	name ir.Name
}

func (o otherStub) Name() ir.Name                               { return o.name }
func (o otherStub) Applies(ir.Descriptor, bool) bool            { return false }
func (o otherStub) Apply(*ir.Unit, Context) (ir.Outcome, error) { return ir.NoChange, nil }
