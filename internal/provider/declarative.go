package provider

import (
	"slices"
	"strings"

	"github.com/roach88/weaver/internal/ir"
	"github.com/roach88/weaver/internal/pass"
)

// Action operations.
const (
	OpAddFlag      = "add_flag"
	OpAddInterface = "add_interface"
	OpSetAttr      = "set_attr"
	OpAppendInsn   = "append_insn"
)

// Match selects units by exact name or prefix. With neither set, every
// unit matches. Empty, if set, restricts to empty or non-empty units.
type Match struct {
	Prefixes []string `json:"prefixes,omitempty"`
	Units    []string `json:"units,omitempty"`
	Empty    *bool    `json:"empty,omitempty"`
}

func (m Match) matches(d ir.Descriptor, empty bool) bool {
	if m.Empty != nil && *m.Empty != empty {
		return false
	}
	if len(m.Prefixes) == 0 && len(m.Units) == 0 {
		return true
	}
	if slices.Contains(m.Units, d.Name) {
		return true
	}
	for _, p := range m.Prefixes {
		if strings.HasPrefix(d.Name, p) {
			return true
		}
	}
	return false
}

// Action is one declarative mutation.
type Action struct {
	Op     string `json:"op"`
	Value  string `json:"value"`
	Key    string `json:"key,omitempty"`
	Method string `json:"method,omitempty"`
}

// apply runs the action and returns the outcome it caused.
func (a Action) apply(u *ir.Unit) ir.Outcome {
	switch a.Op {
	case OpAddFlag:
		if u.HasFlag(a.Value) {
			return ir.NoChange
		}
		u.Flags = append(u.Flags, a.Value)
		return ir.SimpleRewrite
	case OpSetAttr:
		if v, ok := u.Attrs[a.Key]; ok && v == a.Value {
			return ir.NoChange
		}
		u.SetAttr(a.Key, a.Value)
		return ir.SimpleRewrite
	case OpAddInterface:
		if u.AddInterface(a.Value) {
			return ir.RecomputeMetadata
		}
		return ir.NoChange
	case OpAppendInsn:
		changed := false
		for i := range u.Methods {
			if a.Method == "" || u.Methods[i].Name == a.Method {
				u.Methods[i].Body = append(u.Methods[i].Body, a.Value)
				changed = true
			}
		}
		if changed {
			return ir.RecomputeMetadata
		}
	}
	return ir.NoChange
}

// Declarative is a pass defined by a manifest.
type Declarative struct {
	name    ir.Name
	before  []ir.Name
	after   []ir.Name
	hint    pass.Hint
	match   Match
	actions []Action
}

func (d *Declarative) Name() ir.Name         { return d.name }
func (d *Declarative) RunsBefore() []ir.Name { return d.before }
func (d *Declarative) RunsAfter() []ir.Name  { return d.after }
func (d *Declarative) Hint() pass.Hint       { return d.hint }

// Applies implements pass.Pass.
func (d *Declarative) Applies(desc ir.Descriptor, empty bool) bool {
	return d.match.matches(desc, empty)
}

// Apply runs every action in order.
func (d *Declarative) Apply(u *ir.Unit, _ pass.Context) (ir.Outcome, error) {
	out := ir.NoChange
	for _, a := range d.actions {
		out = out.Merge(a.apply(u))
	}
	return out, nil
}

// Actions returns the pass's actions.
func (d *Declarative) Actions() []Action {
	return slices.Clone(d.actions)
}
