package audit

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/weaver/internal/ir"
)

// Entry is one selection decision: pass was asked about a unit and either
// applied or did not.
type Entry struct {
	Seq     int64   `json:"seq"`
	Pass    ir.Name `json:"pass"`
	Applied bool    `json:"applied"`
}

// unitLog is the per-unit append-only list.
type unitLog struct {
	mu      sync.Mutex
	entries []Entry
}

// Trail is the process-scoped audit trail.
type Trail struct {
	units sync.Map // string -> *unitLog
	clock *Clock
}

// NewTrail creates an empty trail with its own clock.
func NewTrail() *Trail {
	return NewTrailWithClock(NewClock())
}

// NewTrailWithClock creates an empty trail stamping entries from clock.
func NewTrailWithClock(clock *Clock) *Trail {
	return &Trail{clock: clock}
}

func (t *Trail) log(unit string) *unitLog {
	if l, ok := t.units.Load(unit); ok {
		return l.(*unitLog)
	}
	l, _ := t.units.LoadOrStore(unit, &unitLog{})
	return l.(*unitLog)
}

// Record appends one decision for unit and returns its entry.
func (t *Trail) Record(unit string, pass ir.Name, applied bool) Entry {
	l := t.log(unit)
	l.mu.Lock()
	defer l.mu.Unlock()
	e := Entry{Seq: t.clock.Next(), Pass: pass, Applied: applied}
	l.entries = append(l.entries, e)
	return e
}

// For returns a copy of the entries recorded for unit, oldest first.
// Unknown units yield nil.
func (t *Trail) For(unit string) []Entry {
	v, ok := t.units.Load(unit)
	if !ok {
		return nil
	}
	l := v.(*unitLog)
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}

// Asked returns the passes asked about unit, in order.
func (t *Trail) Asked(unit string) []ir.Name {
	var out []ir.Name
	for _, e := range t.For(unit) {
		out = append(out, e.Pass)
	}
	return out
}

// Applied returns the passes that applied to unit, in order.
func (t *Trail) Applied(unit string) []ir.Name {
	var out []ir.Name
	for _, e := range t.For(unit) {
		if e.Applied {
			out = append(out, e.Pass)
		}
	}
	return out
}

// Units returns every unit with at least one entry, sorted.
func (t *Trail) Units() []string {
	var out []string
	t.units.Range(func(k, _ any) bool {
		out = append(out, k.(string))
		return true
	})
	slices.Sort(out)
	return out
}

// Report renders the trail of one unit as a block for crash reports.
//
//	Transformations applied to app/Main:
//	  [ ] weaver:access_widener
//	  [x] weaver:interface_injector
func (t *Trail) Report(unit string) string {
	return FormatReport(unit, t.For(unit))
}

// FormatReport renders entries in the same layout as Trail.Report.
func FormatReport(unit string, entries []Entry) string {
	var b strings.Builder
	if len(entries) == 0 {
		fmt.Fprintf(&b, "No transformations recorded for %s\n", unit)
		return b.String()
	}
	fmt.Fprintf(&b, "Transformations applied to %s:\n", unit)
	for _, e := range entries {
		mark := " "
		if e.Applied {
			mark = "x"
		}
		fmt.Fprintf(&b, "  [%s] %s\n", mark, e.Pass)
	}
	return b.String()
}
