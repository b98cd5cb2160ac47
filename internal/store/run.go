package store

import (
	"github.com/google/uuid"

	"github.com/roach88/weaver/internal/ir"
)

// RunIDGenerator generates run identifiers.
// Implemented by UUIDv7Generator (production) and testutil.FixedRunIDs.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Run is one weaver process invocation.
type Run struct {
	ID            string
	WeaverVersion string
	FormatVersion string
	PassOrder     []ir.Name
}

// NewRun stamps a run with the current versions.
func NewRun(id string, order []ir.Name) Run {
	return Run{
		ID:            id,
		WeaverVersion: ir.Version,
		FormatVersion: ir.FormatVersion,
		PassOrder:     order,
	}
}

// UnitResult is the persisted outcome of loading one unit.
type UnitResult struct {
	Unit    string
	Outcome ir.Outcome
	Hash    string
	Error   string
}

// Issue is a persisted loading issue.
type Issue struct {
	Source  string
	Message string
}
