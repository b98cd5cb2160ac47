package pass

import (
	"cmp"
	"slices"

	"github.com/oleiade/lane"

	"github.com/roach88/weaver/internal/ir"
)

// edgeSet maps a pass to the passes that must run after it.
type edgeSet map[ir.Name]map[ir.Name]bool

func (e edgeSet) add(from, to ir.Name) {
	if e[from] == nil {
		e[from] = make(map[ir.Name]bool)
	}
	e[from][to] = true
}

// successors returns the targets of from in name order.
func (e edgeSet) successors(from ir.Name) []ir.Name {
	out := make([]ir.Name, 0, len(e[from]))
	for to := range e[from] {
		out = append(out, to)
	}
	slices.Sort(out)
	return out
}

// buildEdges turns declarations into edges. Names that are not registered
// are skipped.
func buildEdges(byName map[ir.Name]Pass) edgeSet {
	edges := make(edgeSet)
	for name, p := range byName {
		for _, before := range p.RunsBefore() {
			if _, ok := byName[before]; ok {
				edges.add(name, before)
			}
		}
		for _, after := range p.RunsAfter() {
			if _, ok := byName[after]; ok {
				edges.add(after, name)
			}
		}
	}
	return edges
}

// rankPasses orders passes by (Hint, Name). The rank is the priority used
// when several passes are ready at once.
func rankPasses(passes []Pass) map[ir.Name]int {
	sorted := slices.Clone(passes)
	slices.SortFunc(sorted, func(a, b Pass) int {
		if c := cmp.Compare(a.Hint(), b.Hint()); c != 0 {
			return c
		}
		return cmp.Compare(a.Name(), b.Name())
	})
	rank := make(map[ir.Name]int, len(sorted))
	for i, p := range sorted {
		rank[p.Name()] = i
	}
	return rank
}

// sortGraph is Kahn's algorithm with a min-priority ready queue.
//
// Returns a cycle error naming every strongly connected component left
// over when no pass is ready.
func sortGraph(passes []Pass, byName map[ir.Name]Pass, edges edgeSet) ([]Pass, error) {
	rank := rankPasses(passes)

	indegree := make(map[ir.Name]int, len(passes))
	for _, targets := range edges {
		for to := range targets {
			indegree[to]++
		}
	}

	ready := lane.NewPQueue(lane.MINPQ)
	for _, p := range passes {
		if indegree[p.Name()] == 0 {
			ready.Push(p.Name(), rank[p.Name()])
		}
	}

	order := make([]Pass, 0, len(passes))
	for !ready.Empty() {
		item, _ := ready.Pop()
		name := item.(ir.Name)
		order = append(order, byName[name])
		for _, next := range edges.successors(name) {
			indegree[next]--
			if indegree[next] == 0 {
				ready.Push(next, rank[next])
			}
		}
	}

	if len(order) == len(passes) {
		return order, nil
	}

	remaining := make(map[ir.Name]bool)
	for _, p := range passes {
		if indegree[p.Name()] > 0 {
			remaining[p.Name()] = true
		}
	}
	return nil, newCycleError(findCycles(remaining, edges))
}

// findCycles runs Tarjan's algorithm over the nodes that could not be
// sorted and returns one closed path per cyclic component.
//
// Nodes that are stuck only because they sit downstream of a cycle form
// singleton components without self-loops and are not reported.
func findCycles(nodes map[ir.Name]bool, edges edgeSet) [][]ir.Name {
	var (
		index   = 0
		stack   []ir.Name
		indices = make(map[ir.Name]int)
		lowlink = make(map[ir.Name]int)
		onStack = make(map[ir.Name]bool)
		cycles  [][]ir.Name
	)

	var strongConnect func(ir.Name)
	strongConnect = func(v ir.Name) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range edges.successors(v) {
			if !nodes[w] {
				continue
			}
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []ir.Name
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			if len(scc) > 1 || edges[v][v] {
				cycles = append(cycles, cyclePath(scc, edges))
			}
		}
	}

	// Visit in name order so diagnostics are reproducible.
	sorted := make([]ir.Name, 0, len(nodes))
	for n := range nodes {
		sorted = append(sorted, n)
	}
	slices.Sort(sorted)
	for _, n := range sorted {
		if _, visited := indices[n]; !visited {
			strongConnect(n)
		}
	}

	slices.SortFunc(cycles, func(a, b []ir.Name) int { return cmp.Compare(a[0], b[0]) })
	return cycles
}

// cyclePath walks edges inside one component from its smallest member back
// to itself.
func cyclePath(scc []ir.Name, edges edgeSet) []ir.Name {
	members := make(map[ir.Name]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}
	start := slices.Min(scc)

	path := []ir.Name{start}
	visited := map[ir.Name]bool{start: true}
	current := start
	for {
		var next ir.Name
		for _, w := range edges.successors(current) {
			if members[w] && (w == start || !visited[w]) {
				next = w
				break
			}
		}
		if next == "" {
			// Dead end inside the component; close the path explicitly.
			return append(path, start)
		}
		path = append(path, next)
		if next == start {
			return path
		}
		visited[next] = true
		current = next
	}
}
