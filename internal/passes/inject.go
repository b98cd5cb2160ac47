package passes

import (
	"slices"

	"github.com/roach88/weaver/internal/ir"
	"github.com/roach88/weaver/internal/pass"
)

// InterfaceInjectorName is the interface injector's pass name.
var InterfaceInjectorName = ir.MustName("weaver:interface_injector")

// InterfaceInjector adds interfaces to configured units. Interfaces feed
// verification metadata, so a change requests recomputation.
type InterfaceInjector struct {
	pass.Defaults
	interfaces map[string][]string
}

// NewInterfaceInjector injects interfaces[unit] into unit.
func NewInterfaceInjector(interfaces map[string][]string) *InterfaceInjector {
	return &InterfaceInjector{interfaces: interfaces}
}

func (*InterfaceInjector) Name() ir.Name { return InterfaceInjectorName }

// Applies implements pass.Pass.
func (i *InterfaceInjector) Applies(desc ir.Descriptor, _ bool) bool {
	return len(i.interfaces[desc.Name]) > 0
}

// Apply implements pass.Pass.
func (i *InterfaceInjector) Apply(u *ir.Unit, _ pass.Context) (ir.Outcome, error) {
	changed := false
	for _, iface := range i.interfaces[u.Name] {
		changed = u.AddInterface(iface) || changed
	}
	if !changed {
		return ir.NoChange, nil
	}
	return ir.RecomputeMetadata, nil
}

// Injects reports whether unit will receive iface.
func (i *InterfaceInjector) Injects(unit, iface string) bool {
	return slices.Contains(i.interfaces[unit], iface)
}
