package harness

import (
	"github.com/roach88/weaver/internal/ir"
)

// StepTrace is what one step produced.
type StepTrace struct {
	Unit       string    `json:"unit"`
	StopBefore string    `json:"stop_before,omitempty"`
	Outcome    string    `json:"outcome,omitempty"`
	Selected   []ir.Name `json:"selected,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// AuditTrace is one persisted audit entry.
type AuditTrace struct {
	Unit    string  `json:"unit"`
	Pass    ir.Name `json:"pass"`
	Applied bool    `json:"applied"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Order is the frozen pass order.
	Order []ir.Name `json:"order"`

	// Steps holds one trace per scenario step.
	Steps []StepTrace `json:"steps"`

	// Audit is the run's audit trail as read back from the store,
	// grouped by unit in name order.
	Audit []AuditTrace `json:"audit"`

	// Issues are the provider loading issues, as "source: message".
	Issues []string `json:"issues,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	defined map[string]*ir.Unit
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Order:   []ir.Name{},
		Steps:   []StepTrace{},
		Audit:   []AuditTrace{},
		Errors:  []string{},
		defined: make(map[string]*ir.Unit),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Defined returns the unit a step defined, if any.
func (r *Result) Defined(name string) (*ir.Unit, bool) {
	u, ok := r.defined[name]
	return u, ok
}
