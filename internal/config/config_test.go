package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
roots: [overrides, units, /opt/shared]
platform: ["java/"]
manifests: passes
database: weaver.db
passes:
  access: ["app/"]
  interfaces:
    app/Main: [weaver/Traced]
  trace: ["app/service/"]
  trace_inherited: true
`)
	dir := filepath.Dir(path)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, "overrides"), filepath.Join(dir, "units"), "/opt/shared"}, cfg.Roots)
	assert.Equal(t, []string{"java/"}, cfg.Platform)
	assert.Equal(t, filepath.Join(dir, "passes"), cfg.Manifests)
	assert.Equal(t, filepath.Join(dir, "weaver.db"), cfg.Database)

	b := cfg.Passes.Builtin()
	assert.Equal(t, []string{"app/"}, b.Access)
	assert.Equal(t, map[string][]string{"app/Main": {"weaver/Traced"}}, b.Interfaces)
	assert.Equal(t, []string{"app/service/"}, b.Trace)
	assert.True(t, b.TraceInherited)
}

func TestLoad_DefaultsApply(t *testing.T) {
	path := writeConfig(t, "platform: [\"java/\"]\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, []string{filepath.Join(dir, "units")}, cfg.Roots)
	assert.Equal(t, filepath.Join(dir, "manifests"), cfg.Manifests)
	assert.Empty(t, cfg.Database)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Len(t, cfg.Roots, 1)
}

func TestLoad_UnknownField(t *testing.T) {
	_, err := Load(writeConfig(t, "rootz: [a]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no roots", "roots: []\n", "roots must list"},
		{"empty platform", "platform: [\"\"]\n", "platform[0]"},
		{"bad interface unit", "passes:\n  interfaces:\n    ../Main: [x]\n", "invalid unit name"},
		{"bad interface", "passes:\n  interfaces:\n    app/Main: [\"/abs\"]\n", "invalid interface name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	missing := filepath.Join(t.TempDir(), DefaultFile)

	cfg, err := LoadOrDefault(missing, false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = LoadOrDefault(missing, true)
	assert.Error(t, err)
}
