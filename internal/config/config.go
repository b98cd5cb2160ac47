// Package config reads weaver.yaml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/weaver/internal/passes"
	"github.com/roach88/weaver/internal/source"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "weaver.yaml"

// Config is the CLI configuration.
type Config struct {
	// Roots are unit source directories in priority order; the first root
	// that provides a unit wins.
	Roots []string `yaml:"roots"`

	// Platform lists unit-name prefixes that are never transformed.
	Platform []string `yaml:"platform,omitempty"`

	// Manifests is the directory of CUE pass manifests.
	Manifests string `yaml:"manifests,omitempty"`

	// Database is the SQLite file for audit persistence. Empty disables it.
	Database string `yaml:"database,omitempty"`

	// Passes configures the built-in passes.
	Passes Passes `yaml:"passes,omitempty"`
}

// Passes configures the built-in passes.
type Passes struct {
	Access         []string            `yaml:"access,omitempty"`
	Interfaces     map[string][]string `yaml:"interfaces,omitempty"`
	Trace          []string            `yaml:"trace,omitempty"`
	TraceInherited bool                `yaml:"trace_inherited,omitempty"`
}

// Builtin converts to the built-in pass configuration.
func (p Passes) Builtin() passes.Config {
	return passes.Config{
		Access:         p.Access,
		Interfaces:     p.Interfaces,
		Trace:          p.Trace,
		TraceInherited: p.TraceInherited,
	}
}

// Default returns the configuration used without a file.
func Default() *Config {
	return &Config{
		Roots:     []string{"units"},
		Manifests: "manifests",
	}
}

// Load reads path over the defaults. Unknown fields are rejected.
// Relative roots, manifests and database paths are resolved against the
// directory containing the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.resolve(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads path if it exists. A missing file is only an error
// when required is true.
func LoadOrDefault(path string, required bool) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !required {
		return Default(), nil
	}
	return Load(path)
}

func (c *Config) resolve(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	for i, r := range c.Roots {
		c.Roots[i] = abs(r)
	}
	c.Manifests = abs(c.Manifests)
	c.Database = abs(c.Database)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if len(c.Roots) == 0 {
		return fmt.Errorf("roots must list at least one directory")
	}
	for i, r := range c.Roots {
		if strings.TrimSpace(r) == "" {
			return fmt.Errorf("roots[%d]: empty path", i)
		}
	}
	for i, p := range c.Platform {
		if p == "" {
			return fmt.Errorf("platform[%d]: empty prefix", i)
		}
	}
	for unit, ifaces := range c.Passes.Interfaces {
		if !source.ValidName(unit) {
			return fmt.Errorf("passes.interfaces: invalid unit name %q", unit)
		}
		for _, iface := range ifaces {
			if !source.ValidName(iface) {
				return fmt.Errorf("passes.interfaces[%s]: invalid interface name %q", unit, iface)
			}
		}
	}
	return nil
}
