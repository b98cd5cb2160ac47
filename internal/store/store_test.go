package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/weaver/internal/audit"
	"github.com/roach88/weaver/internal/ir"
	"github.com/roach88/weaver/internal/provider"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)
	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.WriteRun(context.Background(), NewRun("run-1", nil)))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	run, err := s2.ReadRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
}

func TestOpen_MigratesOlderDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.DB().Exec("DROP INDEX idx_audit_entries_unit")
	require.NoError(t, err)
	_, err = s.DB().Exec("PRAGMA user_version = 0")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())
	assert.NoError(t, s.verifyPragma("user_version", fmt.Sprint(currentSchemaVersion)))

	var name string
	err = s.DB().QueryRow(
		"SELECT name FROM sqlite_master WHERE type = 'index' AND name = 'idx_audit_entries_unit'",
	).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "idx_audit_entries_unit", name)
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(Memory)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, NewRun("run-1", nil)))
	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.NoError(t, s.verifyPragma("user_version", fmt.Sprint(currentSchemaVersion)))
}

func TestRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	order := []ir.Name{"weaver:marker", "a:logger", "a:validator"}

	require.NoError(t, s.WriteRun(ctx, NewRun("run-1", order)))
	require.NoError(t, s.WriteRun(ctx, NewRun("run-1", nil)), "duplicate write is a no-op")

	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, order, run.PassOrder)
	assert.Equal(t, ir.Version, run.WeaverVersion)
	assert.Equal(t, ir.FormatVersion, run.FormatVersion)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadRun(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrRunNotFound))

	_, err = s.LatestRun(context.Background())
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestLatestRun_OrdersByID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	gen := UUIDv7Generator{}
	first, second := gen.Generate(), gen.Generate()
	require.NoError(t, s.WriteRun(ctx, NewRun(second, nil)))
	require.NoError(t, s.WriteRun(ctx, NewRun(first, nil)))

	run, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, run.ID)
	assert.Empty(t, run.PassOrder)
}

func TestWriteTrail_PreservesOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, NewRun("run-1", nil)))

	trail := audit.NewTrail()
	trail.Record("com/ex/A", "a:logger", true)
	trail.Record("com/ex/B", "a:logger", false)
	trail.Record("com/ex/A", "a:validator", false)
	require.NoError(t, s.WriteTrail(ctx, "run-1", trail))

	got, err := s.ReadAudit(ctx, "run-1", "com/ex/A")
	require.NoError(t, err)
	assert.Equal(t, trail.For("com/ex/A"), got)

	all, err := s.ReadAudit(ctx, "run-1", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Less(t, all[0].Seq, all[1].Seq)
	assert.Less(t, all[1].Seq, all[2].Seq)

	units, err := s.AuditUnits(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"com/ex/A", "com/ex/B"}, units)
}

func TestWriteAudit_RequiresRun(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteAudit(context.Background(), "nope", "com/ex/A", []audit.Entry{{Seq: 1, Pass: "a:b"}})
	assert.Error(t, err, "foreign key on runs")
}

func TestUnitResults_Upsert(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, NewRun("run-1", nil)))

	require.NoError(t, s.WriteUnitResult(ctx, "run-1", UnitResult{Unit: "com/ex/B", Outcome: ir.NoChange}))
	require.NoError(t, s.WriteUnitResult(ctx, "run-1", UnitResult{Unit: "com/ex/A", Outcome: ir.SimpleRewrite, Hash: "h1"}))
	require.NoError(t, s.WriteUnitResult(ctx, "run-1", UnitResult{Unit: "com/ex/A", Outcome: ir.RecomputeMetadata, Hash: "h2"}))

	got, err := s.ReadUnitResults(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []UnitResult{
		{Unit: "com/ex/A", Outcome: ir.RecomputeMetadata, Hash: "h2"},
		{Unit: "com/ex/B", Outcome: ir.NoChange},
	}, got)
}

func TestIssues_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteRun(ctx, NewRun("run-1", nil)))

	issues := []provider.Issue{
		{Source: "manifests/b.cue", Err: errors.New("bad action")},
		{Source: "builtin"},
	}
	require.NoError(t, s.WriteIssues(ctx, "run-1", issues))

	got, err := s.ReadIssues(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []Issue{
		{Source: "manifests/b.cue", Message: "bad action"},
		{Source: "builtin", Message: ""},
	}, got)
}

func TestUUIDv7Generator_Unique(t *testing.T) {
	gen := UUIDv7Generator{}
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := gen.Generate()
		assert.Len(t, id, 36)
		assert.False(t, seen[id])
		seen[id] = true
	}
}
