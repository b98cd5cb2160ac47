package testutil

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/roach88/weaver/internal/ir"
	"github.com/roach88/weaver/internal/source"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Hierarchy is a map-backed pass.Hierarchy that records its calls.
//
// Names under a Platform prefix are not transformable and come from
// Unrelated; others come from Defined or Partial.
type Hierarchy struct {
	Defined   map[string]*ir.Unit
	Partial   map[string][]byte
	Unrelated map[string]*ir.Unit
	Platform  []string

	mu    sync.Mutex
	calls []string
}

// NewHierarchy returns an empty hierarchy.
func NewHierarchy() *Hierarchy {
	return &Hierarchy{
		Defined:   make(map[string]*ir.Unit),
		Partial:   make(map[string][]byte),
		Unrelated: make(map[string]*ir.Unit),
	}
}

func (h *Hierarchy) record(call string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, call)
}

// Calls returns the recorded calls as "method:name".
func (h *Hierarchy) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

// AlreadyDefined implements pass.Hierarchy.
func (h *Hierarchy) AlreadyDefined(name string) (*ir.Unit, bool) {
	h.record("defined:" + name)
	u, ok := h.Defined[name]
	return u, ok
}

// ResolveUpToMarker implements pass.Hierarchy.
func (h *Hierarchy) ResolveUpToMarker(name string) ([]byte, error) {
	h.record("partial:" + name)
	data, ok := h.Partial[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, source.ErrNotFound)
	}
	return data, nil
}

// LoadUnrelated implements pass.Hierarchy.
func (h *Hierarchy) LoadUnrelated(name string) (*ir.Unit, error) {
	h.record("unrelated:" + name)
	u, ok := h.Unrelated[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, source.ErrNotFound)
	}
	return u, nil
}

// Transformable implements pass.Hierarchy.
func (h *Hierarchy) Transformable(name string) bool {
	for _, p := range h.Platform {
		if strings.HasPrefix(name, p) {
			return false
		}
	}
	return true
}
