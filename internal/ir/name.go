package ir

import (
	"fmt"
	"strings"
)

// Name identifies a pass: a namespace and a local id joined by a colon,
// e.g. "weaver:access_widener".
type Name string

// NewName joins namespace and id.
func NewName(namespace, id string) Name {
	return Name(namespace + ":" + id)
}

// ParseName parses and validates "namespace:id".
func ParseName(s string) (Name, error) {
	n := Name(s)
	if err := n.Validate(); err != nil {
		return "", err
	}
	return n, nil
}

// MustName is like ParseName but panics on error.
// Use only for compile-time constant names.
func MustName(s string) Name {
	n, err := ParseName(s)
	if err != nil {
		panic(err)
	}
	return n
}

// Namespace returns the part before the colon.
func (n Name) Namespace() string {
	ns, _, _ := strings.Cut(string(n), ":")
	return ns
}

// ID returns the part after the colon.
func (n Name) ID() string {
	_, id, _ := strings.Cut(string(n), ":")
	return id
}

func (n Name) String() string {
	return string(n)
}

// Validate checks that both parts are present and use only [a-z0-9_.-/].
func (n Name) Validate() error {
	ns, id, ok := strings.Cut(string(n), ":")
	if !ok {
		return fmt.Errorf("pass name %q: missing namespace separator ':'", string(n))
	}
	if ns == "" || id == "" {
		return fmt.Errorf("pass name %q: namespace and id must be non-empty", string(n))
	}
	if !validNamePart(ns) || !validNamePart(id) {
		return fmt.Errorf("pass name %q: only [a-z0-9_.-/] allowed", string(n))
	}
	return nil
}

func validNamePart(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r == '_', r == '.', r == '-', r == '/':
		default:
			return false
		}
	}
	return true
}
