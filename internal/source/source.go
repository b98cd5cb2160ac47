// Package source supplies raw unit bytes by name.
//
// Several roots may provide the same name; the first root that has it
// wins, so roots listed earlier shadow later ones.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// ErrNotFound is returned (possibly wrapped) when no root has the unit.
var ErrNotFound = errors.New("unit not found")

// Ext is the file extension of unit files under a directory root.
const Ext = ".json"

// Lookup fetches raw unit bytes. An empty, non-nil-error result is an
// empty unit: present but without backing content.
//
// Implementations may block on I/O and must be safe for concurrent use.
type Lookup interface {
	Fetch(name string) ([]byte, error)
}

// Lister is implemented by lookups that can enumerate their units.
type Lister interface {
	Names() ([]string, error)
}

// ValidName reports whether name can address a unit file: slash-separated,
// relative and free of "." or ".." elements.
func ValidName(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}

// Dirs overlays directory roots. A unit named "app/Main" is read from
// "<root>/app/Main.json" in the first root where it exists.
type Dirs struct {
	roots []string
}

// NewDirs returns an overlay over roots in priority order.
func NewDirs(roots ...string) *Dirs {
	return &Dirs{roots: slices.Clone(roots)}
}

// Roots returns the roots in priority order.
func (d *Dirs) Roots() []string {
	return slices.Clone(d.roots)
}

// Fetch implements Lookup.
func (d *Dirs) Fetch(name string) ([]byte, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("invalid unit name %q", name)
	}
	rel := filepath.FromSlash(name) + Ext
	for _, root := range d.roots {
		data, err := os.ReadFile(filepath.Join(root, rel))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s from %s: %w", name, root, err)
		}
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
}

// Names implements Lister: every unit in any root, sorted and deduplicated.
func (d *Dirs) Names() ([]string, error) {
	seen := make(map[string]bool)
	for _, root := range d.roots {
		names, err := scanRoot(root)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			seen[n] = true
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	slices.Sort(out)
	return out, nil
}

// Overlaps returns, per unit provided by more than one root, the roots
// that provide it in priority order. The first entry is the one in use.
func (d *Dirs) Overlaps() (map[string][]string, error) {
	providers := make(map[string][]string)
	for _, root := range d.roots {
		names, err := scanRoot(root)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			providers[n] = append(providers[n], root)
		}
	}
	for n, roots := range providers {
		if len(roots) < 2 {
			delete(providers, n)
		}
	}
	return providers, nil
}

func scanRoot(root string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(root, func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() || filepath.Ext(p) != Ext {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		names = append(names, strings.TrimSuffix(filepath.ToSlash(rel), Ext))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan root %s: %w", root, err)
	}
	return names, nil
}

// Map is an in-memory Lookup. A nil value is an empty unit.
type Map map[string][]byte

// Fetch implements Lookup.
func (m Map) Fetch(name string) ([]byte, error) {
	data, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return data, nil
}

// Names implements Lister.
func (m Map) Names() ([]string, error) {
	out := make([]string, 0, len(m))
	for n := range m {
		out = append(out, n)
	}
	slices.Sort(out)
	return out, nil
}

// Chain tries each lookup in turn, returning the first hit.
type Chain []Lookup

// Fetch implements Lookup.
func (c Chain) Fetch(name string) ([]byte, error) {
	for _, l := range c {
		data, err := l.Fetch(name)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
}

// UnitPath returns the slash path of a unit file relative to a root.
func UnitPath(name string) string {
	return path.Clean(name) + Ext
}
