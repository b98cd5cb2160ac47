package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestParseScenario_Valid(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: ok
description: parses
units:
  com/ex/A:
    flags: [private]
  com/ex/Empty: null
passes:
  access: [com/ex/A]
steps:
  - unit: com/ex/A
    stop_before: weaver:interface_injector
    expect:
      outcome: simple_rewrite
assertions:
  - type: order
    passes: []
`))
	require.NoError(t, err)
	assert.Equal(t, "ok", s.Name)
	assert.Nil(t, s.Units["com/ex/Empty"])
	assert.Equal(t, []string{"private"}, s.Units["com/ex/A"].Flags)
	assert.Equal(t, []string{"com/ex/A"}, s.Passes.Access)
	assert.Equal(t, "weaver:interface_injector", s.Steps[0].StopBefore)
	assert.NotNil(t, s.Assertions[0].Passes)
}

func TestParseScenario_Errors(t *testing.T) {
	base := "name: n\ndescription: d\nunits: {com/ex/A: {}}\n"
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", base + "steps: [{unit: com/ex/A}]\nasertions: []\n", "failed to parse YAML"},
		{"no name", "description: d\nunits: {a/B: {}}\nsteps: [{unit: a/B}]\n", "name is required"},
		{"no description", "name: n\nunits: {a/B: {}}\nsteps: [{unit: a/B}]\n", "description is required"},
		{"no units", "name: n\ndescription: d\nsteps: [{unit: a/B}]\n", "units map is required"},
		{"no steps", base, "steps list is required"},
		{"step without unit", base + "steps: [{stop_before: \"a:b\"}]\n", "steps[0]: unit is required"},
		{"bad stop_before", base + "steps: [{unit: com/ex/A, stop_before: nocolon}]\n", "steps[0].stop_before"},
		{"bad outcome", base + "steps: [{unit: com/ex/A, expect: {outcome: maybe}}]\n", "steps[0].expect.outcome"},
		{"error and outcome", base + "steps: [{unit: com/ex/A, expect: {outcome: no_change, error: X}}]\n", "error excludes outcome"},
		{"name mismatch", "name: n\ndescription: d\nunits: {com/ex/A: {name: com/ex/B}}\nsteps: [{unit: com/ex/A}]\n", "does not match key"},
		{"unknown assertion", base + "steps: [{unit: com/ex/A}]\nassertions: [{type: vibes}]\n", "unknown assertion type"},
		{"order without passes", base + "steps: [{unit: com/ex/A}]\nassertions: [{type: order}]\n", "passes is required"},
		{"audit without lists", base + "steps: [{unit: com/ex/A}]\nassertions: [{type: audit, unit: com/ex/A}]\n", "asked or applied"},
		{"frames without unit", base + "steps: [{unit: com/ex/A}]\nassertions: [{type: frames}]\n", "unit is required for frames"},
		{"report without contains", base + "steps: [{unit: com/ex/A}]\nassertions: [{type: report, unit: com/ex/A}]\n", "unit and contains"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_ResolvesManifests(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "m"), 0o755))
	writeFile(t, filepath.Join(dir, "m", "x.cue"), "pass: p: {actions: []}\n")
	path := filepath.Join(dir, "s.yaml")
	writeFile(t, path, "name: n\ndescription: d\nunits: {com/ex/A: {}}\nmanifests: [m/x.cue]\nsteps: [{unit: com/ex/A}]\n")

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "m", "x.cue")}, s.Manifests)
}

func TestLoadScenario_MissingManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	writeFile(t, path, "name: n\ndescription: d\nunits: {com/ex/A: {}}\nmanifests: [nope.cue]\nsteps: [{unit: com/ex/A}]\n")

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
