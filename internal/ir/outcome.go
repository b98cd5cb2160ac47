package ir

import "fmt"

// Outcome is the per-unit result of applying passes.
// Values are ordered by precedence: a fold keeps the largest.
type Outcome int

const (
	// NoChange means the unit bytes are returned untouched.
	NoChange Outcome = iota
	// SimpleRewrite means the tree is re-encoded without touching frames.
	SimpleRewrite
	// RecomputeMetadata means frames must be rebuilt during encoding.
	RecomputeMetadata
)

var outcomeNames = map[Outcome]string{
	NoChange:          "no_change",
	SimpleRewrite:     "simple_rewrite",
	RecomputeMetadata: "recompute_metadata",
}

// Merge folds two outcomes: RecomputeMetadata > SimpleRewrite > NoChange.
func (o Outcome) Merge(other Outcome) Outcome {
	if other > o {
		return other
	}
	return o
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	if _, ok := outcomeNames[o]; !ok {
		return nil, fmt.Errorf("invalid outcome %d", int(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	parsed, err := ParseOutcome(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// ParseOutcome parses the snake_case outcome name.
func ParseOutcome(s string) (Outcome, error) {
	for o, name := range outcomeNames {
		if name == s {
			return o, nil
		}
	}
	return NoChange, fmt.Errorf("unknown outcome %q", s)
}
