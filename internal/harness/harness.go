package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/weaver/internal/ir"
	"github.com/roach88/weaver/internal/loader"
	"github.com/roach88/weaver/internal/pass"
	"github.com/roach88/weaver/internal/passes"
	"github.com/roach88/weaver/internal/provider"
	"github.com/roach88/weaver/internal/source"
	"github.com/roach88/weaver/internal/store"
	"github.com/roach88/weaver/internal/testutil"
	"github.com/roach88/weaver/internal/transform"
	"github.com/roach88/weaver/internal/weave"
)

// Harness executes one scenario.
type Harness struct {
	store   *store.Store
	session *weave.Session
	runID   string
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
//  1. Create a fresh in-memory store and a fixed run ID
//  2. Discover built-in and manifest passes, build and link the graph
//  3. Execute steps, checking expect clauses
//  4. Persist the audit trail and read it back
//  5. Evaluate assertions
//
// An error is returned only when the scenario cannot be executed at all,
// e.g. an invalid pass graph. Step and assertion failures are reported
// in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(store.Memory)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	src, err := unitSource(scenario.Units)
	if err != nil {
		return nil, err
	}

	providers := []provider.Provider{passes.Provider(scenario.Passes.Builtin())}
	for _, m := range scenario.Manifests {
		providers = append(providers, provider.Manifest{Path: m})
	}

	sess, err := weave.Open(weave.Options{
		Providers: providers,
		Source:    src,
		Platform:  scenario.Platform,
		Logger:    testutil.DiscardLogger(),
	})
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:   st,
		session: sess,
		runID:   testutil.NewFixedRunIDs().Generate(),
	}

	ctx := context.Background()
	result := NewResult()
	result.Order = sess.Graph.Names()
	for _, is := range sess.Issues {
		result.Issues = append(result.Issues, is.String())
	}

	if err := h.store.WriteRun(ctx, store.NewRun(h.runID, result.Order)); err != nil {
		return nil, err
	}
	if err := h.store.WriteIssues(ctx, h.runID, sess.Issues); err != nil {
		return nil, err
	}

	for i, step := range scenario.Steps {
		h.executeStep(ctx, i, step, result)
	}

	if err := h.store.WriteTrail(ctx, h.runID, sess.Trail()); err != nil {
		return nil, err
	}
	if err := h.readAudit(ctx, result); err != nil {
		return nil, err
	}

	actx := &AssertionContext{
		Store:   st,
		Ctx:     ctx,
		RunID:   h.runID,
		Session: sess,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// unitSource encodes scenario units into an in-memory source.
func unitSource(units map[string]*ir.Unit) (source.Map, error) {
	src := make(source.Map, len(units))
	for name, u := range units {
		if u == nil {
			src[name] = nil
			continue
		}
		c := u.Clone()
		c.Name = name
		data, err := ir.EncodeUnit(c)
		if err != nil {
			return nil, fmt.Errorf("units[%s]: %w", name, err)
		}
		src[name] = data
	}
	return src, nil
}

// executeStep runs one step and checks its expect clause.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) {
	trace := StepTrace{Unit: step.Unit, StopBefore: step.StopBefore}

	var (
		outcome  ir.Outcome
		selected []ir.Name
		err      error
	)
	if step.StopBefore != "" {
		var res *transform.Result
		res, err = h.session.Partial(step.Unit, ir.Name(step.StopBefore))
		if err == nil {
			outcome, selected = res.Outcome, res.Selected
		}
	} else {
		var d *loader.Definition
		d, err = h.session.Loader.Define(step.Unit)
		if err == nil {
			outcome, selected = d.Outcome, d.Selected
			result.defined[step.Unit] = d.Unit
			if werr := h.store.WriteUnitResult(ctx, h.runID, store.UnitResult{
				Unit:    step.Unit,
				Outcome: d.Outcome,
				Hash:    ir.UnitHash(d.Bytes),
			}); werr != nil {
				result.AddError(fmt.Sprintf("steps[%d]: %v", i, werr))
			}
		}
	}

	if err != nil {
		trace.Error = errorCode(err)
	} else {
		trace.Outcome = outcome.String()
		trace.Selected = selected
	}
	result.Steps = append(result.Steps, trace)

	checkExpect(i, step, trace, err, result)
}

func checkExpect(i int, step Step, trace StepTrace, err error, result *Result) {
	e := step.Expect
	if e == nil || e.Error == "" {
		if err != nil {
			result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", i, step.Unit, err))
			return
		}
	}
	if e == nil {
		return
	}

	if e.Error != "" {
		if err == nil {
			result.AddError(fmt.Sprintf("steps[%d] %s: expected error %s, got none", i, step.Unit, e.Error))
		} else if !hasCode(err, e.Error) {
			result.AddError(fmt.Sprintf("steps[%d] %s: expected error %s, got %v", i, step.Unit, e.Error, err))
		}
		return
	}

	if e.Outcome != "" && e.Outcome != trace.Outcome {
		result.AddError(fmt.Sprintf("steps[%d] %s: expected outcome %s, got %s", i, step.Unit, e.Outcome, trace.Outcome))
	}
	if e.Selected != nil {
		got := names(trace.Selected)
		if !slices.Equal(e.Selected, got) {
			result.AddError(fmt.Sprintf("steps[%d] %s: expected selected %v, got %v", i, step.Unit, e.Selected, got))
		}
	}
}

// readAudit fills result.Audit from the store.
func (h *Harness) readAudit(ctx context.Context, result *Result) error {
	units, err := h.store.AuditUnits(ctx, h.runID)
	if err != nil {
		return err
	}
	for _, u := range units {
		entries, err := h.store.ReadAudit(ctx, h.runID, u)
		if err != nil {
			return err
		}
		for _, e := range entries {
			result.Audit = append(result.Audit, AuditTrace{Unit: u, Pass: e.Pass, Applied: e.Applied})
		}
	}
	return nil
}

// errorCode returns the most specific code in err's chain.
func errorCode(err error) string {
	var ue *transform.UnitError
	if errors.As(err, &ue) {
		return string(ue.Code)
	}
	var le *loader.LoadError
	if errors.As(err, &le) {
		return string(le.Code)
	}
	var ce *pass.ConfigError
	if errors.As(err, &ce) {
		return string(ce.Code)
	}
	if errors.Is(err, source.ErrNotFound) {
		return string(loader.ErrCodeUnitNotFound)
	}
	return err.Error()
}

// hasCode reports whether code appears anywhere in err's chain.
func hasCode(err error, code string) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch v := e.(type) {
		case *transform.UnitError:
			if string(v.Code) == code {
				return true
			}
		case *loader.LoadError:
			if string(v.Code) == code {
				return true
			}
		case *pass.ConfigError:
			if string(v.Code) == code {
				return true
			}
		}
	}
	return errorCode(err) == code
}

func names(ns []ir.Name) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = string(n)
	}
	return out
}
