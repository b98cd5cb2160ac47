package passes

import (
	"github.com/roach88/weaver/internal/ir"
	"github.com/roach88/weaver/internal/pass"
)

// AccessWidenerName is the access widener's pass name.
var AccessWidenerName = ir.MustName("weaver:access_widener")

// Visibility flags.
const (
	FlagPublic    = "public"
	FlagProtected = "protected"
	FlagPrivate   = "private"
)

// AccessWidener makes the unit and all its members public. It runs before
// the marker, so units resolved up to the marker already see the widened
// flags.
type AccessWidener struct {
	units []string
}

// NewAccessWidener widens the units matching patterns.
func NewAccessWidener(patterns []string) *AccessWidener {
	return &AccessWidener{units: patterns}
}

func (*AccessWidener) Name() ir.Name         { return AccessWidenerName }
func (*AccessWidener) RunsBefore() []ir.Name { return []ir.Name{pass.MarkerName} }
func (*AccessWidener) RunsAfter() []ir.Name  { return nil }
func (*AccessWidener) Hint() pass.Hint       { return pass.HintDefault }

// Applies implements pass.Pass.
func (a *AccessWidener) Applies(desc ir.Descriptor, empty bool) bool {
	return !empty && matchAny(a.units, desc.Name)
}

// Apply implements pass.Pass.
func (a *AccessWidener) Apply(u *ir.Unit, _ pass.Context) (ir.Outcome, error) {
	changed := widen(&u.Flags)
	for i := range u.Fields {
		changed = widen(&u.Fields[i].Flags) || changed
	}
	for i := range u.Methods {
		changed = widen(&u.Methods[i].Flags) || changed
	}
	if !changed {
		return ir.NoChange, nil
	}
	return ir.SimpleRewrite, nil
}

// widen replaces private and protected with a single public flag.
func widen(flags *[]string) bool {
	out := (*flags)[:0:0]
	changed, public := false, false
	for _, f := range *flags {
		switch f {
		case FlagPrivate, FlagProtected:
			changed = true
		case FlagPublic:
			if !public {
				public = true
				out = append(out, f)
			}
		default:
			out = append(out, f)
		}
	}
	if !changed {
		return false
	}
	if !public {
		out = append([]string{FlagPublic}, out...)
	}
	*flags = out
	return true
}
