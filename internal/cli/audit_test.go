package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/weaver/internal/ir"
)

// transformedDB runs transform --all into a fresh database and returns the
// configuration and database paths.
func transformedDB(t *testing.T) (string, string) {
	t.Helper()
	cfg := writeWorkspace(t)
	db := filepath.Join(t.TempDir(), "audit.db")
	_, _, err := execute(newTestRoot(), "--config", cfg, "--format", "json",
		"transform", "--all", "--db", db)
	require.NoError(t, err)
	return cfg, db
}

func TestAudit_LatestRun(t *testing.T) {
	cfg, db := transformedDB(t)

	out, _, err := execute(newTestRoot(), "--config", cfg, "--format", "json", "audit", "--db", db)
	require.NoError(t, err)

	var resp struct {
		Data AuditResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "test-run-1", resp.Data.RunID)
	assert.Equal(t, ir.Version, resp.Data.WeaverVersion)
	assert.Len(t, resp.Data.PassOrder, 4)

	require.Len(t, resp.Data.Units, 2)
	plain := resp.Data.Units[0]
	assert.Equal(t, "com/ex/Plain", plain.Unit)
	assert.Equal(t, "no_change", plain.Outcome)
	require.Len(t, plain.Entries, 3)
	for _, e := range plain.Entries {
		assert.False(t, e.Applied, e.Pass)
	}

	widget := resp.Data.Units[1]
	assert.Equal(t, "com/ex/Widget", widget.Unit)
	assert.Equal(t, "recompute_metadata", widget.Outcome)
}

func TestAudit_TextForOneUnit(t *testing.T) {
	cfg, db := transformedDB(t)

	out, _, err := execute(newTestRoot(), "--config", cfg, "audit", "com/ex/Widget",
		"--db", db, "--run", "test-run-1")
	require.NoError(t, err)

	assert.Contains(t, out, "Run test-run-1 (weaver "+ir.Version+")")
	assert.Contains(t, out, "Transformations applied to com/ex/Widget:")
	assert.Contains(t, out, "  [x] weaver:interface_injector")
	assert.Contains(t, out, "  outcome: recompute_metadata")
	assert.NotContains(t, out, "com/ex/Plain")
}

func TestAudit_RunNotFound(t *testing.T) {
	cfg, db := transformedDB(t)

	_, errOut, err := execute(newTestRoot(), "--config", cfg, "audit", "--db", db, "--run", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, errOut, "E005")
}

func TestAudit_NoDatabase(t *testing.T) {
	cfg := writeWorkspace(t)

	_, errOut, err := execute(newTestRoot(), "--config", cfg, "audit")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, errOut, "E006")
}
