package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeUnit(t *testing.T, root, name, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(UnitPath(name)))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestDirs_FirstRootWins(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeUnit(t, first, "app/Main", `{"name":"app/Main","flags":["first"]}`)
	writeUnit(t, second, "app/Main", `{"name":"app/Main","flags":["second"]}`)
	writeUnit(t, second, "lib/Base", `{"name":"lib/Base"}`)

	d := NewDirs(first, second)

	data, err := d.Fetch("app/Main")
	require.NoError(t, err)
	assert.Contains(t, string(data), "first")

	data, err = d.Fetch("lib/Base")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"lib/Base"}`, string(data))

	names, err := d.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"app/Main", "lib/Base"}, names)

	overlaps, err := d.Overlaps()
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"app/Main": {first, second}}, overlaps)
}

func TestDirs_NotFound(t *testing.T) {
	d := NewDirs(t.TempDir())
	_, err := d.Fetch("app/Missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDirs_EmptyFileIsEmptyUnit(t *testing.T) {
	root := t.TempDir()
	writeUnit(t, root, "app/Empty", "")

	data, err := NewDirs(root).Fetch("app/Empty")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestDirs_RejectsEscapingNames(t *testing.T) {
	d := NewDirs(t.TempDir())
	for _, name := range []string{"", "/abs", "../up", "a/../b", "a//b", `a\b`} {
		_, err := d.Fetch(name)
		require.Error(t, err, name)
		assert.NotErrorIs(t, err, ErrNotFound, name)
	}
}

func TestMap(t *testing.T) {
	m := Map{"a/B": []byte(`{}`), "a/Empty": nil}

	data, err := m.Fetch("a/B")
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))

	data, err = m.Fetch("a/Empty")
	require.NoError(t, err)
	assert.Nil(t, data)

	_, err = m.Fetch("a/C")
	assert.ErrorIs(t, err, ErrNotFound)

	names, err := m.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"a/B", "a/Empty"}, names)
}

func TestChain(t *testing.T) {
	c := Chain{Map{"a": []byte("1")}, Map{"a": []byte("2"), "b": []byte("3")}}

	data, err := c.Fetch("a")
	require.NoError(t, err)
	assert.Equal(t, "1", string(data))

	data, err = c.Fetch("b")
	require.NoError(t, err)
	assert.Equal(t, "3", string(data))

	_, err = c.Fetch("c")
	assert.ErrorIs(t, err, ErrNotFound)
}
