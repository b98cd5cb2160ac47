package loader

import (
	"errors"
	"fmt"
)

// LoadError reports a failure to load one unit.
type LoadError struct {
	// Code identifies the error category.
	Code LoadErrorCode

	// Unit is the unit being loaded.
	Unit string

	// Related is the unit whose lookup failed, for hierarchy errors.
	Related string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// LoadErrorCode categorizes load errors.
type LoadErrorCode string

const (
	// ErrCodeUnitNotFound means the unit asked for does not exist.
	ErrCodeUnitNotFound LoadErrorCode = "UNIT_NOT_FOUND"

	// ErrCodeRelatedNotFound means a unit it refers to does not exist.
	ErrCodeRelatedNotFound LoadErrorCode = "RELATED_NOT_FOUND"

	// ErrCodeResolutionCycle means resolving up to the marker re-entered a
	// unit already being resolved on the same call chain.
	ErrCodeResolutionCycle LoadErrorCode = "RESOLUTION_CYCLE"

	// ErrCodeFetchFailed means the source failed for another reason.
	ErrCodeFetchFailed LoadErrorCode = "FETCH_FAILED"

	// ErrCodeTransformFailed means the pipeline rejected the unit.
	ErrCodeTransformFailed LoadErrorCode = "TRANSFORM_FAILED"

	// ErrCodeDecodeFailed means the final bytes could not be decoded.
	ErrCodeDecodeFailed LoadErrorCode = "DECODE_FAILED"
)

// Error implements the error interface.
func (e *LoadError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Related != "" {
		msg += fmt.Sprintf(" (unit=%s, related=%s)", e.Unit, e.Related)
	} else {
		msg += fmt.Sprintf(" (unit=%s)", e.Unit)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// hasCode reports whether any LoadError in the chain carries code. Load
// errors nest when resolution recurses through other units.
func hasCode(err error, code LoadErrorCode) bool {
	for err != nil {
		var le *LoadError
		if !errors.As(err, &le) {
			return false
		}
		if le.Code == code {
			return true
		}
		err = le.Err
	}
	return false
}

// IsUnitNotFound returns true if the primary unit is missing.
func IsUnitNotFound(err error) bool { return hasCode(err, ErrCodeUnitNotFound) }

// IsRelatedNotFound returns true if a referenced unit is missing.
func IsRelatedNotFound(err error) bool { return hasCode(err, ErrCodeRelatedNotFound) }

// IsResolutionCycle returns true if partial resolution looped.
func IsResolutionCycle(err error) bool { return hasCode(err, ErrCodeResolutionCycle) }
