package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/weaver/internal/testutil"
)

const testConfig = `roots: [units]
passes:
  access: [com/ex/Widget]
  interfaces:
    com/ex/Widget: [weaver/Traced]
`

var testUnits = map[string]string{
	"com/ex/Widget": `{"name":"com/ex/Widget","flags":["private"],"methods":[{"name":"run","flags":["protected"],"body":["ret"]}]}`,
	"com/ex/Plain":  `{"name":"com/ex/Plain","methods":[{"name":"run","body":["ret"]}]}`,
}

// writeWorkspace lays out a configuration file and unit sources under a
// temp directory and returns the configuration path.
func writeWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "weaver.yaml"), testConfig)
	for name, data := range testUnits {
		writeFile(t, filepath.Join(dir, "units", filepath.FromSlash(name)+".json"), data)
	}
	return filepath.Join(dir, "weaver.yaml")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// newTestRoot returns a root command with deterministic run IDs.
func newTestRoot() *cobra.Command {
	return newRootCommand(testutil.NewFixedRunIDs())
}
