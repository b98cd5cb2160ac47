// Package weave assembles a working pipeline: it discovers passes from
// providers, builds and links the pass graph against a loader, and hands
// back everything a caller needs to transform units.
package weave

import (
	"fmt"
	"log/slog"

	"github.com/roach88/weaver/internal/audit"
	"github.com/roach88/weaver/internal/ir"
	"github.com/roach88/weaver/internal/loader"
	"github.com/roach88/weaver/internal/pass"
	"github.com/roach88/weaver/internal/provider"
	"github.com/roach88/weaver/internal/source"
	"github.com/roach88/weaver/internal/transform"
)

// Options configures Open.
type Options struct {
	// Providers are asked for passes in order.
	Providers []provider.Provider
	// Source resolves unit bytes.
	Source source.Lookup
	// Platform lists unit-name prefixes that are never transformed.
	Platform []string
	// Trail receives audit entries. A fresh trail is created when nil.
	Trail *audit.Trail
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Session is a linked pipeline.
type Session struct {
	Graph  *pass.Graph
	Runner *transform.Runner
	Loader *loader.Loader
	Issues []provider.Issue

	src source.Lookup
}

// Open discovers passes, builds the graph and links it to a new loader.
//
// Provider failures are collected in Session.Issues and never abort Open.
// Graph construction and link failures do.
func Open(opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	trail := opts.Trail
	if trail == nil {
		trail = audit.NewTrail()
	}

	found := provider.Discover(opts.Providers, provider.WithLogger(logger))

	graph, err := pass.Build(found.Passes, pass.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("build pass graph: %w", err)
	}

	runner := transform.NewRunner(graph, transform.WithTrail(trail), transform.WithLogger(logger))
	ld := loader.New(opts.Source, runner, loader.WithPlatform(opts.Platform...), loader.WithLogger(logger))

	if err := graph.Link(ld.Hierarchy()); err != nil {
		return nil, fmt.Errorf("link pass graph: %w", err)
	}

	return &Session{
		Graph:  graph,
		Runner: runner,
		Loader: ld,
		Issues: found.Issues,
		src:    opts.Source,
	}, nil
}

// Trail returns the session's audit trail.
func (s *Session) Trail() *audit.Trail {
	return s.Runner.Trail()
}

// Partial runs the pipeline on name up to, but excluding, stopBefore.
// The result is not recorded as a definition.
func (s *Session) Partial(name string, stopBefore ir.Name) (*transform.Result, error) {
	raw, err := s.src.Fetch(name)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	return s.Runner.Transform(transform.Request{
		Unit:       name,
		Raw:        raw,
		Empty:      len(raw) == 0,
		StopBefore: stopBefore,
		Hierarchy:  s.Loader.Hierarchy(),
	})
}
