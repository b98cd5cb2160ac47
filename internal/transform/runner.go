package transform

import (
	"fmt"
	"log/slog"

	"github.com/roach88/weaver/internal/audit"
	"github.com/roach88/weaver/internal/ir"
	"github.com/roach88/weaver/internal/pass"
)

// Runner applies a linked pass graph to units.
//
// Thread-safety: Transform is safe for concurrent use. The only shared
// mutable state is the append-only audit trail.
type Runner struct {
	graph  *pass.Graph
	trail  *audit.Trail
	codec  Codec
	logger *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithCodec replaces the canonical JSON codec.
func WithCodec(c Codec) RunnerOption {
	return func(r *Runner) {
		r.codec = c
	}
}

// WithTrail records into an existing trail instead of a fresh one.
func WithTrail(t *audit.Trail) RunnerOption {
	return func(r *Runner) {
		r.trail = t
	}
}

// WithLogger sets the logger for per-pass decisions.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// NewRunner creates a runner over graph. The audit trail is created here
// unless one is supplied with WithTrail.
func NewRunner(graph *pass.Graph, opts ...RunnerOption) *Runner {
	r := &Runner{
		graph:  graph,
		codec:  CanonicalCodec{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.trail == nil {
		r.trail = audit.NewTrail()
	}
	return r
}

// Graph returns the pass graph.
func (r *Runner) Graph() *pass.Graph {
	return r.graph
}

// Trail returns the audit trail.
func (r *Runner) Trail() *audit.Trail {
	return r.trail
}

// Codec returns the unit codec.
func (r *Runner) Codec() Codec {
	return r.codec
}

// Request is one transformation of one unit.
type Request struct {
	// Unit is the unit name.
	Unit string

	// Raw is the unit's current bytes.
	Raw []byte

	// Empty marks a unit without backing content.
	Empty bool

	// StopBefore, if set, ends the walk right before that pass.
	StopBefore ir.Name

	// Hierarchy resolves other units for passes and metadata rebuilding.
	Hierarchy pass.Hierarchy
}

// Result is the output of Transform.
type Result struct {
	// Bytes is the transformed unit. For NoChange it is Request.Raw itself.
	Bytes []byte

	// Outcome is the folded outcome of every applied pass.
	Outcome ir.Outcome

	// Selected lists the marker (if reached) and every applicable pass,
	// in order.
	Selected []ir.Name
}

// Transform selects and applies passes to one unit.
//
// Returns pass.ErrCodeNotLinked if the graph has not been linked, and a
// *UnitError for decode, apply, permission, metadata and encode failures.
// Pass errors are not recovered.
func (r *Runner) Transform(req Request) (*Result, error) {
	if !r.graph.Linked() {
		return nil, pass.NewNotLinkedError()
	}

	selected, sawMarker := r.selectPasses(req)
	names := make([]ir.Name, len(selected))
	for i, p := range selected {
		names[i] = p.Name()
	}

	if len(selected) == 0 || (len(selected) == 1 && sawMarker) {
		return &Result{Bytes: req.Raw, Outcome: ir.NoChange, Selected: names}, nil
	}

	u, err := r.codec.Decode(req.Unit, req.Raw, req.Empty)
	if err != nil {
		return nil, &UnitError{
			Code:    ErrCodeDecodeFailed,
			Unit:    req.Unit,
			Message: "decoding unit",
			Err:     err,
		}
	}

	ctx := pass.Context{
		Unit:      req.Unit,
		Empty:     req.Empty,
		Hierarchy: req.Hierarchy,
		Decode:    r.codec.Decode,
	}
	outcome := ir.NoChange
	for _, p := range selected {
		if pass.IsMarker(p) {
			continue
		}
		got, err := p.Apply(u, ctx)
		if err != nil {
			return nil, &UnitError{
				Code:    ErrCodeApplyFailed,
				Unit:    req.Unit,
				Pass:    p.Name(),
				Message: "pass failed",
				Err:     err,
			}
		}
		if got == ir.RecomputeMetadata && !r.graph.CanRecompute(p.Name()) {
			return nil, &UnitError{
				Code:    ErrCodeRecomputeNotPermitted,
				Unit:    req.Unit,
				Pass:    p.Name(),
				Message: "pass is not ordered after the marker and cannot request metadata recomputation",
			}
		}
		r.logger.Debug("pass applied", "unit", req.Unit, "pass", p.Name(), "outcome", got)
		outcome = outcome.Merge(got)
	}

	if outcome == ir.NoChange {
		return &Result{Bytes: req.Raw, Outcome: ir.NoChange, Selected: names}, nil
	}

	if outcome == ir.RecomputeMetadata {
		frames, err := ComputeFrames(u, req.Hierarchy, r.codec)
		if err != nil {
			return nil, err
		}
		u.Frames = frames
	}

	out, err := r.codec.Encode(u)
	if err != nil {
		return nil, &UnitError{
			Code:    ErrCodeEncodeFailed,
			Unit:    req.Unit,
			Message: fmt.Sprintf("encoding after %s", outcome),
			Err:     err,
		}
	}
	return &Result{Bytes: out, Outcome: outcome, Selected: names}, nil
}

// selectPasses walks the order up to StopBefore, recording every
// applicability decision.
func (r *Runner) selectPasses(req Request) ([]pass.Pass, bool) {
	desc := ir.Descriptor{Name: req.Unit}
	var (
		selected  []pass.Pass
		sawMarker bool
	)
	for _, p := range r.graph.Order() {
		if req.StopBefore != "" && p.Name() == req.StopBefore {
			break
		}
		if pass.IsMarker(p) {
			sawMarker = true
			selected = append(selected, p)
			continue
		}
		applies := p.Applies(desc, req.Empty)
		r.trail.Record(req.Unit, p.Name(), applies)
		r.logger.Debug("pass asked", "unit", req.Unit, "pass", p.Name(), "applies", applies)
		if applies {
			selected = append(selected, p)
		}
	}
	return selected, sawMarker
}

// StopAtMarker returns the stop point that yields a unit as of the marker.
func (r *Runner) StopAtMarker() ir.Name {
	return r.graph.FirstAfterMarker()
}
