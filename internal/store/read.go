package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/weaver/internal/audit"
	"github.com/roach88/weaver/internal/ir"
)

// ErrRunNotFound is returned when a run ID has no record.
var ErrRunNotFound = errors.New("run not found")

// ReadRun retrieves a run by ID.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, weaver_version, format_version, pass_order
		FROM runs WHERE id = ?
	`, id)
	return scanRun(row, id)
}

// LatestRun returns the most recent run. UUIDv7 IDs sort by creation time.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, weaver_version, format_version, pass_order
		FROM runs ORDER BY id DESC LIMIT 1
	`)
	return scanRun(row, "latest")
}

func scanRun(row *sql.Row, id string) (Run, error) {
	var run Run
	var order string
	err := row.Scan(&run.ID, &run.WeaverVersion, &run.FormatVersion, &order)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run: %w", err)
	}
	if run.PassOrder, err = decodeOrder(order); err != nil {
		return Run{}, err
	}
	return run, nil
}

// ReadAudit returns the audit entries of one unit in recording order.
// An empty unit selects every unit of the run.
func (s *Store) ReadAudit(ctx context.Context, runID, unit string) ([]audit.Entry, error) {
	query := `
		SELECT seq, pass, applied FROM audit_entries
		WHERE run_id = ? AND unit = ?
		ORDER BY seq ASC
	`
	args := []any{runID, unit}
	if unit == "" {
		query = `
			SELECT seq, pass, applied FROM audit_entries
			WHERE run_id = ?
			ORDER BY seq ASC
		`
		args = args[:1]
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var e audit.Entry
		var pass string
		var applied int
		if err := rows.Scan(&e.Seq, &pass, &applied); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Pass = ir.Name(pass)
		e.Applied = applied == 1
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit: %w", err)
	}
	return entries, nil
}

// AuditUnits lists the units with audit entries in a run, sorted.
func (s *Store) AuditUnits(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT unit FROM audit_entries
		WHERE run_id = ?
		ORDER BY unit ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query audit units: %w", err)
	}
	defer rows.Close()

	var units []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan audit unit: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// ReadUnitResults returns the per-unit results of a run, sorted by unit.
func (s *Store) ReadUnitResults(ctx context.Context, runID string) ([]UnitResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT unit, outcome, hash, error FROM unit_results
		WHERE run_id = ?
		ORDER BY unit ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query unit results: %w", err)
	}
	defer rows.Close()

	var results []UnitResult
	for rows.Next() {
		var r UnitResult
		var outcome string
		if err := rows.Scan(&r.Unit, &outcome, &r.Hash, &r.Error); err != nil {
			return nil, fmt.Errorf("scan unit result: %w", err)
		}
		if r.Outcome, err = ir.ParseOutcome(outcome); err != nil {
			return nil, fmt.Errorf("unit result %s: %w", r.Unit, err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ReadIssues returns the loading issues of a run in discovery order.
func (s *Store) ReadIssues(ctx context.Context, runID string) ([]Issue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, message FROM loading_issues
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query issues: %w", err)
	}
	defer rows.Close()

	var issues []Issue
	for rows.Next() {
		var is Issue
		if err := rows.Scan(&is.Source, &is.Message); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, is)
	}
	return issues, rows.Err()
}
