package pass

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/weaver/internal/ir"
)

// ConfigError represents a pass configuration defect detected at startup.
//
// Configuration errors include:
//   - Duplicate pass names (including a collision with the marker)
//   - Invalid pass names
//   - Cycles among runs-before/runs-after constraints
//   - Linking twice, or transforming before linking
//
// They are fatal: the pipeline must not be constructed.
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Message is a human-readable description.
	Message string

	// Passes lists the implicated pass names.
	Passes []ir.Name

	// Types lists the Go types of the implicated passes (duplicate names).
	Types []string

	// Cycles lists each offending cycle as a closed path.
	Cycles [][]ir.Name

	// Err is the underlying cause, if any.
	Err error
}

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	ErrCodeDuplicateName ConfigErrorCode = "DUPLICATE_PASS_NAME"
	ErrCodeInvalidName   ConfigErrorCode = "INVALID_PASS_NAME"
	ErrCodeOrderCycle    ConfigErrorCode = "ORDER_CYCLE"
	ErrCodeAlreadyLinked ConfigErrorCode = "ALREADY_LINKED"
	ErrCodeNotLinked     ConfigErrorCode = "NOT_LINKED"
	ErrCodeLinkFailed    ConfigErrorCode = "LINK_FAILED"
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ConfigErrorCode) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// IsDuplicateName returns true if err reports a duplicate pass name.
func IsDuplicateName(err error) bool { return hasCode(err, ErrCodeDuplicateName) }

// IsCycle returns true if err reports an ordering cycle.
func IsCycle(err error) bool { return hasCode(err, ErrCodeOrderCycle) }

// IsAlreadyLinked returns true if err reports a second Link call.
func IsAlreadyLinked(err error) bool { return hasCode(err, ErrCodeAlreadyLinked) }

// IsNotLinked returns true if err reports use of an unlinked graph.
func IsNotLinked(err error) bool { return hasCode(err, ErrCodeNotLinked) }

// NewNotLinkedError is returned by consumers that require a frozen graph.
func NewNotLinkedError() *ConfigError {
	return &ConfigError{
		Code:    ErrCodeNotLinked,
		Message: "pass graph must be linked before units are transformed",
	}
}

func newDuplicateError(name ir.Name, first, second Pass) *ConfigError {
	types := []string{fmt.Sprintf("%T", first), fmt.Sprintf("%T", second)}
	if types[1] < types[0] {
		types[0], types[1] = types[1], types[0]
	}
	return &ConfigError{
		Code:    ErrCodeDuplicateName,
		Message: fmt.Sprintf("pass name %q registered twice (%s, %s)", name, types[0], types[1]),
		Passes:  []ir.Name{name},
		Types:   types,
	}
}

func newCycleError(cycles [][]ir.Name) *ConfigError {
	seen := make(map[ir.Name]bool)
	var implicated []ir.Name
	paths := make([]string, len(cycles))
	for i, cycle := range cycles {
		parts := make([]string, len(cycle))
		for j, n := range cycle {
			parts[j] = string(n)
			if !seen[n] {
				seen[n] = true
				implicated = append(implicated, n)
			}
		}
		paths[i] = strings.Join(parts, " → ")
	}
	return &ConfigError{
		Code:    ErrCodeOrderCycle,
		Message: "ordering constraints form a cycle: " + strings.Join(paths, "; "),
		Passes:  implicated,
		Cycles:  cycles,
	}
}
