package pass

import (
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/oleiade/lane"

	"github.com/roach88/weaver/internal/ir"
)

// Graph is the frozen pass schedule.
//
// INVARIANTS:
//   - No two passes share a name; the marker is always present
//   - order is a topological order of edges, ties broken by (Hint, Name)
//   - reachable holds every pass with a path from the marker
//   - Nothing changes after Build except the one-shot linked flag
type Graph struct {
	byName    map[ir.Name]Pass
	order     []Pass
	position  map[ir.Name]int
	edges     edgeSet
	reachable map[ir.Name]bool
	linked    atomic.Bool
	logger    *slog.Logger
}

// Option configures Build.
type Option func(*Graph)

// WithLogger sets the logger used during build and link.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) {
		g.logger = l
	}
}

// Build validates passes, adds the marker and computes the order.
//
// Returns a *ConfigError for invalid or duplicate names (including the
// marker's reserved name) and for cyclic constraints.
func Build(passes []Pass, opts ...Option) (*Graph, error) {
	g := &Graph{
		byName:    make(map[ir.Name]Pass, len(passes)+1),
		reachable: make(map[ir.Name]bool),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}

	all := make([]Pass, 0, len(passes)+1)
	all = append(all, marker{})
	g.byName[MarkerName] = marker{}

	for _, p := range passes {
		name := p.Name()
		if err := name.Validate(); err != nil {
			return nil, &ConfigError{
				Code:    ErrCodeInvalidName,
				Message: fmt.Sprintf("pass %T has an invalid name", p),
				Passes:  []ir.Name{name},
				Err:     err,
			}
		}
		if existing, dup := g.byName[name]; dup {
			return nil, newDuplicateError(name, existing, p)
		}
		g.byName[name] = p
		all = append(all, p)
	}

	g.edges = buildEdges(g.byName)

	order, err := sortGraph(all, g.byName, g.edges)
	if err != nil {
		return nil, err
	}
	g.order = order
	g.position = make(map[ir.Name]int, len(order))
	for i, p := range order {
		g.position[p.Name()] = i
	}

	g.computeReachable()

	g.logger.Info("pass graph built",
		"passes", len(passes),
		"recompute_capable", len(g.reachable),
	)
	return g, nil
}

// computeReachable does a breadth-first walk from the marker. The marker
// itself is not part of the set.
func (g *Graph) computeReachable() {
	q := lane.NewQueue()
	for q.Enqueue(MarkerName); !q.Empty(); {
		name := q.Dequeue().(ir.Name)
		for _, next := range g.edges.successors(name) {
			if !g.reachable[next] {
				g.reachable[next] = true
				q.Enqueue(next)
			}
		}
	}
}

// Order returns every pass, marker included, in execution order.
// The slice is a copy; the passes are shared.
func (g *Graph) Order() []Pass {
	return slices.Clone(g.order)
}

// Names returns the execution order as names.
func (g *Graph) Names() []ir.Name {
	names := make([]ir.Name, len(g.order))
	for i, p := range g.order {
		names[i] = p.Name()
	}
	return names
}

// Len returns the number of passes including the marker.
func (g *Graph) Len() int {
	return len(g.order)
}

// Lookup returns the pass registered under name.
func (g *Graph) Lookup(name ir.Name) (Pass, bool) {
	p, ok := g.byName[name]
	return p, ok
}

// Position returns the index of name in Order, or -1.
func (g *Graph) Position(name ir.Name) int {
	if i, ok := g.position[name]; ok {
		return i
	}
	return -1
}

// CanRecompute reports whether name is reachable from the marker and may
// therefore return ir.RecomputeMetadata.
func (g *Graph) CanRecompute(name ir.Name) bool {
	return g.reachable[name]
}

// Reachable returns the recompute-capable passes in execution order.
func (g *Graph) Reachable() []ir.Name {
	var out []ir.Name
	for _, p := range g.order {
		if g.reachable[p.Name()] {
			out = append(out, p.Name())
		}
	}
	return out
}

// Successors returns the passes that must run after name.
func (g *Graph) Successors(name ir.Name) []ir.Name {
	return g.edges.successors(name)
}

// FirstAfterMarker returns the pass immediately following the marker in
// the order, or "" when the marker is last. Transforming with this name as
// the stop point yields a unit's state as of the marker.
func (g *Graph) FirstAfterMarker() ir.Name {
	i := g.position[MarkerName]
	if i+1 >= len(g.order) {
		return ""
	}
	return g.order[i+1].Name()
}

// Linked reports whether Link has been called.
func (g *Graph) Linked() bool {
	return g.linked.Load()
}

// Link freezes the graph and calls every Linker in order.
//
// Link may be called exactly once; a second call fails with
// ErrCodeAlreadyLinked. A failing link hook aborts with ErrCodeLinkFailed
// and the graph stays linked, since hooks may already have run.
func (g *Graph) Link(host Hierarchy) error {
	if !g.linked.CompareAndSwap(false, true) {
		return &ConfigError{
			Code:    ErrCodeAlreadyLinked,
			Message: "pass graph is already linked",
		}
	}

	upToMarker := func(unit string) ([]byte, error) {
		if host == nil {
			return nil, fmt.Errorf("no host bound: cannot resolve %s", unit)
		}
		if !host.Transformable(unit) {
			u, err := host.LoadUnrelated(unit)
			if err != nil {
				return nil, err
			}
			return ir.EncodeUnit(u)
		}
		return host.ResolveUpToMarker(unit)
	}

	for _, p := range g.order {
		l, ok := p.(Linker)
		if !ok {
			continue
		}
		ctx := LinkContext{Self: p.Name(), graph: g, upToMarker: upToMarker}
		if err := l.Link(ctx); err != nil {
			return &ConfigError{
				Code:    ErrCodeLinkFailed,
				Message: fmt.Sprintf("linking pass %s", p.Name()),
				Passes:  []ir.Name{p.Name()},
				Err:     err,
			}
		}
		g.logger.Debug("pass linked", "pass", p.Name())
	}
	return nil
}

// LinkContext is what a Linker sees: the frozen graph and a way to read
// other units as of the marker.
type LinkContext struct {
	// Self is the name of the pass being linked.
	Self ir.Name

	graph      *Graph
	upToMarker func(unit string) ([]byte, error)
}

// Lookup returns a sibling pass by name.
func (c LinkContext) Lookup(name ir.Name) (Pass, bool) {
	return c.graph.Lookup(name)
}

// Order returns the execution order as names.
func (c LinkContext) Order() []ir.Name {
	return c.graph.Names()
}

// CanRecompute reports the sibling's recompute capability.
func (c LinkContext) CanRecompute(name ir.Name) bool {
	return c.graph.CanRecompute(name)
}

// UpToMarker returns unit bytes as of the marker, or the raw bytes of units
// that are never transformed.
func (c LinkContext) UpToMarker(unit string) ([]byte, error) {
	return c.upToMarker(unit)
}
