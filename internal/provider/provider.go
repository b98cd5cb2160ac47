package provider

import (
	"fmt"
	"log/slog"

	"github.com/roach88/weaver/internal/pass"
)

// Provider produces passes.
type Provider interface {
	// Source identifies the provider in loading issues (a file path or a
	// Go package path).
	Source() string

	// Produce hands every pass to collect. It may fail part way.
	Produce(collect func(pass.Pass)) error
}

// Issue is a non-fatal loading problem attributed to one provider.
type Issue struct {
	Source string
	Err    error
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %v", i.Source, i.Err)
}

// Result is the outcome of discovery.
type Result struct {
	Passes []pass.Pass
	Issues []Issue
}

// Option configures Discover.
type Option func(*discoverer)

type discoverer struct {
	logger *slog.Logger
}

// WithLogger sets the logger used to report issues.
func WithLogger(l *slog.Logger) Option {
	return func(d *discoverer) { d.logger = l }
}

// Discover runs every provider, collecting passes and isolating failures.
func Discover(providers []Provider, opts ...Option) Result {
	d := &discoverer{logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}

	var res Result
	for _, p := range providers {
		passes, err := produce(p)
		if err != nil {
			issue := Issue{Source: p.Source(), Err: err}
			d.logger.Warn("pass provider failed", "source", issue.Source, "error", err)
			res.Issues = append(res.Issues, issue)
			continue
		}
		d.logger.Debug("pass provider loaded", "source", p.Source(), "passes", len(passes))
		res.Passes = append(res.Passes, passes...)
	}
	return res
}

// produce runs one provider, converting a panic into an error.
func produce(p Provider) (passes []pass.Pass, err error) {
	defer func() {
		if r := recover(); r != nil {
			passes = nil
			err = fmt.Errorf("provider panicked: %v", r)
		}
	}()
	err = p.Produce(func(ps pass.Pass) {
		passes = append(passes, ps)
	})
	if err != nil {
		return nil, err
	}
	return passes, nil
}

// Static provides a fixed list of passes.
type Static struct {
	Src    string
	Passes []pass.Pass
}

// Source implements Provider.
func (s Static) Source() string { return s.Src }

// Produce implements Provider.
func (s Static) Produce(collect func(pass.Pass)) error {
	for _, p := range s.Passes {
		collect(p)
	}
	return nil
}

// Func adapts a function to Provider.
type Func struct {
	Src string
	Fn  func(collect func(pass.Pass)) error
}

// Source implements Provider.
func (f Func) Source() string { return f.Src }

// Produce implements Provider.
func (f Func) Produce(collect func(pass.Pass)) error { return f.Fn(collect) }
