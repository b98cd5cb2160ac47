package testutil

import (
	"fmt"
	"sync"
)

// FixedRunIDs returns predetermined run IDs in order.
//
// Thread-safety: safe for concurrent use.
type FixedRunIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedRunIDs creates a generator over ids. With no ids it returns
// "test-run-1", "test-run-2", ... forever.
func NewFixedRunIDs(ids ...string) *FixedRunIDs {
	return &FixedRunIDs{ids: ids}
}

// Generate returns the next run ID. Panics when a non-empty list is
// exhausted.
func (g *FixedRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.idx++
	if len(g.ids) == 0 {
		return fmt.Sprintf("test-run-%d", g.idx)
	}
	if g.idx > len(g.ids) {
		panic("FixedRunIDs: all ids exhausted")
	}
	return g.ids[g.idx-1]
}
