package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/weaver/internal/store"
	"github.com/roach88/weaver/internal/weave"
)

// AssertionContext carries what assertions read from.
type AssertionContext struct {
	Store   *store.Store
	Ctx     context.Context
	RunID   string
	Session *weave.Session
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Context  []string // Lines shown after the comparison
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Context) > 0 {
		fmt.Fprintf(&buf, "\nContext:\n")
		for _, line := range e.Context {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure
// messages. An empty slice means all passed.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertOrder:
		return assertOrder(result, a)
	case AssertReachable:
		return assertReachable(a, actx)
	case AssertAudit:
		return assertAudit(a, actx)
	case AssertFrames:
		return assertFrames(result, a)
	case AssertReport:
		return assertReport(a, actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertOrder checks the full pass order, marker included.
func assertOrder(result *Result, a Assertion) error {
	got := names(result.Order)
	if slices.Equal(a.Passes, got) {
		return nil
	}
	return &AssertionError{
		Type:     AssertOrder,
		Expected: fmt.Sprintf("%v", a.Passes),
		Actual:   fmt.Sprintf("%v", got),
	}
}

// assertReachable checks which passes may request recomputation.
func assertReachable(a Assertion, actx *AssertionContext) error {
	got := names(actx.Session.Graph.Reachable())
	if slices.Equal(a.Passes, got) {
		return nil
	}
	return &AssertionError{
		Type:     AssertReachable,
		Expected: fmt.Sprintf("%v", a.Passes),
		Actual:   fmt.Sprintf("%v", got),
		Context:  names(actx.Session.Graph.Names()),
	}
}

// assertAudit checks the persisted audit of one unit.
func assertAudit(a Assertion, actx *AssertionContext) error {
	entries, err := actx.Store.ReadAudit(actx.Ctx, actx.RunID, a.Unit)
	if err != nil {
		return err
	}

	asked := make([]string, 0, len(entries))
	applied := make([]string, 0, len(entries))
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		asked = append(asked, string(e.Pass))
		mark := " "
		if e.Applied {
			applied = append(applied, string(e.Pass))
			mark = "x"
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", mark, e.Pass))
	}

	if a.Asked != nil && !slices.Equal(a.Asked, asked) {
		return &AssertionError{
			Type:     AssertAudit,
			Expected: fmt.Sprintf("%s asked %v", a.Unit, a.Asked),
			Actual:   fmt.Sprintf("%v", asked),
			Context:  lines,
		}
	}
	if a.Applied != nil && !slices.Equal(a.Applied, applied) {
		return &AssertionError{
			Type:     AssertAudit,
			Expected: fmt.Sprintf("%s applied %v", a.Unit, a.Applied),
			Actual:   fmt.Sprintf("%v", applied),
			Context:  lines,
		}
	}
	return nil
}

// assertFrames checks the recomputed metadata of a defined unit.
func assertFrames(result *Result, a Assertion) error {
	u, ok := result.Defined(a.Unit)
	if !ok {
		return &AssertionError{
			Type:     AssertFrames,
			Expected: fmt.Sprintf("%s defined", a.Unit),
			Actual:   "not defined by any step",
		}
	}
	if u.Frames == nil {
		return &AssertionError{
			Type:     AssertFrames,
			Expected: fmt.Sprintf("%s with recomputed frames", a.Unit),
			Actual:   "no frames",
		}
	}
	if a.Ancestors != nil && !slices.Equal(a.Ancestors, u.Frames.Ancestors) {
		return &AssertionError{
			Type:     AssertFrames,
			Expected: fmt.Sprintf("ancestors %v", a.Ancestors),
			Actual:   fmt.Sprintf("%v", u.Frames.Ancestors),
		}
	}
	if a.Interfaces != nil && !slices.Equal(a.Interfaces, u.Frames.Interfaces) {
		return &AssertionError{
			Type:     AssertFrames,
			Expected: fmt.Sprintf("interfaces %v", a.Interfaces),
			Actual:   fmt.Sprintf("%v", u.Frames.Interfaces),
		}
	}
	return nil
}

// assertReport checks the in-memory audit report of one unit.
func assertReport(a Assertion, actx *AssertionContext) error {
	report := actx.Session.Trail().Report(a.Unit)
	if strings.Contains(report, a.Contains) {
		return nil
	}
	return &AssertionError{
		Type:     AssertReport,
		Expected: fmt.Sprintf("report containing %q", a.Contains),
		Actual:   "not found",
		Context:  strings.Split(strings.TrimRight(report, "\n"), "\n"),
	}
}
