package pass

import (
	"fmt"

	"github.com/roach88/weaver/internal/ir"
)

// Hint is a coarse priority bucket used only to break ordering ties.
type Hint int

const (
	HintEarliest Hint = iota
	HintEarly
	HintDefault
	HintLate
	HintLatest
)

var hintNames = [...]string{"earliest", "early", "default", "late", "latest"}

func (h Hint) String() string {
	if h >= HintEarliest && h <= HintLatest {
		return hintNames[h]
	}
	return fmt.Sprintf("hint(%d)", int(h))
}

// ParseHint parses a lowercase hint name. The empty string is HintDefault.
func ParseHint(s string) (Hint, error) {
	if s == "" {
		return HintDefault, nil
	}
	for i, name := range hintNames {
		if name == s {
			return Hint(i), nil
		}
	}
	return HintDefault, fmt.Errorf("unknown ordering hint %q", s)
}

// Pass is a named unit of transformation logic.
//
// Implementations must be immutable once registered: every method may be
// called from many goroutines at once.
type Pass interface {
	// Name is globally unique across all providers.
	Name() ir.Name

	// RunsBefore lists passes this pass must precede.
	RunsBefore() []ir.Name

	// RunsAfter lists passes this pass must follow.
	RunsAfter() []ir.Name

	// Hint breaks ties between otherwise unordered passes.
	Hint() Hint

	// Applies decides, before the unit is decoded, whether Apply should run.
	Applies(desc ir.Descriptor, empty bool) bool

	// Apply mutates the unit in place. The unit is borrowed for the duration
	// of the call only.
	Apply(u *ir.Unit, ctx Context) (ir.Outcome, error)
}

// Defaults supplies the default ordering declarations. Embed it and
// override only what differs.
//
// By default a pass has no runs-before constraint, runs after the marker
// and uses HintDefault.
type Defaults struct{}

func (Defaults) RunsBefore() []ir.Name { return nil }
func (Defaults) RunsAfter() []ir.Name  { return []ir.Name{MarkerName} }
func (Defaults) Hint() Hint            { return HintDefault }

// Context is handed to Apply.
type Context struct {
	// Unit is the name of the unit being transformed.
	Unit string

	// Empty is true when the unit has no backing bytes.
	Empty bool

	// Hierarchy resolves other units. It may be nil when the caller is not
	// a host loader (for example in isolated tests).
	Hierarchy Hierarchy

	// Decode parses unit bytes returned by Hierarchy with the runner's
	// codec. It may be nil outside a runner.
	Decode func(name string, raw []byte, empty bool) (*ir.Unit, error)
}

// Hierarchy lets a pass, or the metadata encoder, see other units while one
// unit is being transformed. Calls recurse into the pipeline on the calling
// goroutine. Memoization is the implementation's concern.
type Hierarchy interface {
	// AlreadyDefined returns a unit only if the host has fully defined it.
	// The returned unit is shared and must not be mutated.
	AlreadyDefined(name string) (*ir.Unit, bool)

	// ResolveUpToMarker returns the unit transformed by every pass up to and
	// including the marker.
	ResolveUpToMarker(name string) ([]byte, error)

	// LoadUnrelated loads a unit that is never subject to transformation.
	LoadUnrelated(name string) (*ir.Unit, error)

	// Transformable reports whether name goes through the pipeline at all.
	Transformable(name string) bool
}

// Linker is implemented by passes that want to see their siblings once the
// graph is frozen.
type Linker interface {
	Link(ctx LinkContext) error
}
