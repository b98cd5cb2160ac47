package transform

import (
	"errors"
	"fmt"

	"github.com/roach88/weaver/internal/ir"
)

// UnitError reports a failure transforming one unit. The host loader
// surfaces it as a load failure for that unit only.
type UnitError struct {
	// Code identifies the error category.
	Code UnitErrorCode

	// Unit is the unit being transformed.
	Unit string

	// Pass is the offending pass, if known.
	Pass ir.Name

	// Related is the other unit involved in hierarchy errors.
	Related string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// UnitErrorCode categorizes unit errors.
type UnitErrorCode string

const (
	// ErrCodeDecodeFailed indicates the raw bytes could not be decoded.
	ErrCodeDecodeFailed UnitErrorCode = "DECODE_FAILED"

	// ErrCodeApplyFailed indicates a pass returned an error from Apply.
	ErrCodeApplyFailed UnitErrorCode = "APPLY_FAILED"

	// ErrCodeRecomputeNotPermitted indicates a pass outside the marker's
	// reach asked for metadata recomputation.
	ErrCodeRecomputeNotPermitted UnitErrorCode = "RECOMPUTE_NOT_PERMITTED"

	// ErrCodeEncodeFailed indicates the mutated unit could not be encoded.
	ErrCodeEncodeFailed UnitErrorCode = "ENCODE_FAILED"

	// ErrCodeRelatedNotFound indicates an ancestor or related unit is missing.
	ErrCodeRelatedNotFound UnitErrorCode = "RELATED_NOT_FOUND"

	// ErrCodeAncestorCycle indicates the ancestor chain loops.
	ErrCodeAncestorCycle UnitErrorCode = "ANCESTOR_CYCLE"
)

// Error implements the error interface.
func (e *UnitError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.Pass != "" && e.Related != "":
		msg += fmt.Sprintf(" (unit=%s, pass=%s, related=%s)", e.Unit, e.Pass, e.Related)
	case e.Pass != "":
		msg += fmt.Sprintf(" (unit=%s, pass=%s)", e.Unit, e.Pass)
	case e.Related != "":
		msg += fmt.Sprintf(" (unit=%s, related=%s)", e.Unit, e.Related)
	default:
		msg += fmt.Sprintf(" (unit=%s)", e.Unit)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *UnitError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code UnitErrorCode) bool {
	var ue *UnitError
	if errors.As(err, &ue) {
		return ue.Code == code
	}
	return false
}

// IsApplyFailed returns true if a pass failed while applying.
func IsApplyFailed(err error) bool { return hasCode(err, ErrCodeApplyFailed) }

// IsRecomputeNotPermitted returns true if a pass overstepped its capability.
func IsRecomputeNotPermitted(err error) bool { return hasCode(err, ErrCodeRecomputeNotPermitted) }

// IsRelatedNotFound returns true if an ancestor or related unit was missing.
func IsRelatedNotFound(err error) bool { return hasCode(err, ErrCodeRelatedNotFound) }

// IsAncestorCycle returns true if the ancestor chain loops.
func IsAncestorCycle(err error) bool { return hasCode(err, ErrCodeAncestorCycle) }

// IsDecodeFailed returns true if the raw bytes were malformed.
func IsDecodeFailed(err error) bool { return hasCode(err, ErrCodeDecodeFailed) }
