package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/weaver/internal/audit"
	"github.com/roach88/weaver/internal/ir"
	"github.com/roach88/weaver/internal/provider"
)

// WriteRun inserts a run record.
// Idempotent: writing the same run ID twice is a no-op.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("write run: empty run id")
	}
	order := run.PassOrder
	if order == nil {
		order = []ir.Name{}
	}
	orderJSON, err := ir.MarshalCanonical(order)
	if err != nil {
		return fmt.Errorf("marshal pass order: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, weaver_version, format_version, pass_order)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.WeaverVersion, run.FormatVersion, string(orderJSON))
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteTrail persists every entry of the trail under runID.
// All units are written in a single transaction.
func (s *Store) WriteTrail(ctx context.Context, runID string, trail *audit.Trail) error {
	return s.withTx(ctx, "write trail", func(tx *sql.Tx) error {
		for _, unit := range trail.Units() {
			for _, e := range trail.For(unit) {
				if err := insertAudit(ctx, tx, runID, unit, e); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// WriteAudit persists the entries of a single unit.
func (s *Store) WriteAudit(ctx context.Context, runID, unit string, entries []audit.Entry) error {
	return s.withTx(ctx, "write audit", func(tx *sql.Tx) error {
		for _, e := range entries {
			if err := insertAudit(ctx, tx, runID, unit, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertAudit(ctx context.Context, tx *sql.Tx, runID, unit string, e audit.Entry) error {
	applied := 0
	if e.Applied {
		applied = 1
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_entries (run_id, seq, unit, pass, applied)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`, runID, e.Seq, unit, string(e.Pass), applied)
	if err != nil {
		return fmt.Errorf("write audit entry %d for %s: %w", e.Seq, unit, err)
	}
	return nil
}

// WriteUnitResult records the outcome of loading one unit.
// A second write for the same (run, unit) replaces the first.
func (s *Store) WriteUnitResult(ctx context.Context, runID string, r UnitResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO unit_results (run_id, unit, outcome, hash, error)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, unit) DO UPDATE SET
			outcome = excluded.outcome,
			hash = excluded.hash,
			error = excluded.error
	`, runID, r.Unit, r.Outcome.String(), r.Hash, r.Error)
	if err != nil {
		return fmt.Errorf("write unit result: %w", err)
	}
	return nil
}

// WriteIssues records provider loading issues in discovery order.
func (s *Store) WriteIssues(ctx context.Context, runID string, issues []provider.Issue) error {
	return s.withTx(ctx, "write issues", func(tx *sql.Tx) error {
		for i, is := range issues {
			msg := ""
			if is.Err != nil {
				msg = is.Err.Error()
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO loading_issues (run_id, idx, source, message)
				VALUES (?, ?, ?, ?)
				ON CONFLICT(run_id, idx) DO NOTHING
			`, runID, i, is.Source, msg)
			if err != nil {
				return fmt.Errorf("write issue %d: %w", i, err)
			}
		}
		return nil
	})
}

func (s *Store) withTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

func decodeOrder(s string) ([]ir.Name, error) {
	var order []ir.Name
	if err := json.Unmarshal([]byte(s), &order); err != nil {
		return nil, fmt.Errorf("unmarshal pass order: %w", err)
	}
	return order, nil
}
