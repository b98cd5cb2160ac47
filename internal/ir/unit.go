package ir

import (
	"slices"
	"strings"
)

// Unit is the mutable tree representation of one code unit.
//
// A Unit is exclusively owned by a single transform invocation and is
// borrowed mutably by one pass at a time. Passes must not retain a Unit
// beyond their own Apply call.
type Unit struct {
	Name       string            `json:"name" yaml:"name"`
	Super      string            `json:"super,omitempty" yaml:"super,omitempty"`
	Interfaces []string          `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	Flags      []string          `json:"flags,omitempty" yaml:"flags,omitempty"`
	Attrs      map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty"`
	Fields     []Field           `json:"fields,omitempty" yaml:"fields,omitempty"`
	Methods    []Method          `json:"methods,omitempty" yaml:"methods,omitempty"`
	Frames     *Frames           `json:"frames,omitempty" yaml:"frames,omitempty"`
}

// Field is a named, typed slot on a unit.
type Field struct {
	Name  string   `json:"name" yaml:"name"`
	Type  string   `json:"type" yaml:"type"`
	Flags []string `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// Method is a named body of instructions.
type Method struct {
	Name  string   `json:"name" yaml:"name"`
	Sig   string   `json:"sig,omitempty" yaml:"sig,omitempty"`
	Flags []string `json:"flags,omitempty" yaml:"flags,omitempty"`
	Body  []string `json:"body,omitempty" yaml:"body,omitempty"`
}

// Frames is the verification metadata derived from a unit and its ancestors.
type Frames struct {
	Ancestors  []string `json:"ancestors" yaml:"ancestors"`
	Interfaces []string `json:"interfaces" yaml:"interfaces"`
	Digest     string   `json:"digest" yaml:"digest"`
}

// Descriptor is what a pass sees when deciding whether it applies.
// It is available before the unit bytes are decoded.
type Descriptor struct {
	Name string
}

// Package returns everything before the last '/', or "" for top-level units.
func (d Descriptor) Package() string {
	i := strings.LastIndexByte(d.Name, '/')
	if i < 0 {
		return ""
	}
	return d.Name[:i]
}

// SimpleName returns everything after the last '/'.
func (d Descriptor) SimpleName() string {
	return d.Name[strings.LastIndexByte(d.Name, '/')+1:]
}

// HasFlag reports whether flag is set on the unit.
func (u *Unit) HasFlag(flag string) bool {
	return slices.Contains(u.Flags, flag)
}

// AddInterface appends iface if not already present.
// Returns true if the interface list changed.
func (u *Unit) AddInterface(iface string) bool {
	if slices.Contains(u.Interfaces, iface) {
		return false
	}
	u.Interfaces = append(u.Interfaces, iface)
	return true
}

// SetAttr sets an attribute, allocating the map on first use.
func (u *Unit) SetAttr(key, value string) {
	if u.Attrs == nil {
		u.Attrs = make(map[string]string)
	}
	u.Attrs[key] = value
}

// Method returns the method with the given name, or nil.
func (u *Unit) Method(name string) *Method {
	for i := range u.Methods {
		if u.Methods[i].Name == name {
			return &u.Methods[i]
		}
	}
	return nil
}

// Clone returns a deep copy. Callers that hand a shared unit to a pass
// must clone it first.
func (u *Unit) Clone() *Unit {
	if u == nil {
		return nil
	}
	c := &Unit{
		Name:       u.Name,
		Super:      u.Super,
		Interfaces: slices.Clone(u.Interfaces),
		Flags:      slices.Clone(u.Flags),
	}
	if u.Attrs != nil {
		c.Attrs = make(map[string]string, len(u.Attrs))
		for k, v := range u.Attrs {
			c.Attrs[k] = v
		}
	}
	for _, f := range u.Fields {
		f.Flags = slices.Clone(f.Flags)
		c.Fields = append(c.Fields, f)
	}
	for _, m := range u.Methods {
		m.Flags = slices.Clone(m.Flags)
		m.Body = slices.Clone(m.Body)
		c.Methods = append(c.Methods, m)
	}
	if u.Frames != nil {
		c.Frames = &Frames{
			Ancestors:  slices.Clone(u.Frames.Ancestors),
			Interfaces: slices.Clone(u.Frames.Interfaces),
			Digest:     u.Frames.Digest,
		}
	}
	return c
}
