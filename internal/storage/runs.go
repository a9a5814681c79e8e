package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mbagrov/bimtally/internal/common"
	"github.com/mbagrov/bimtally/internal/model"
)

const defaultRunListLimit = 20

// SaveRun persists one reconciliation run, assigning an ID and start time
// when the caller left them empty.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *model.RunRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.saveRunTx(ctx, tx, run); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) saveRunTx(ctx context.Context, q queryable, run *model.RunRecord) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, tolerance_pct, ok_count, red_flag_count, no_match_count, missing_count, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt, run.TolerancePct, run.OK, run.RedFlags, run.NoMatch, run.Missing, run.ReportJSON)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetRun retrieves one run by ID.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*model.RunRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getRunTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getRunTx(ctx context.Context, q queryable, id string) (*model.RunRecord, error) {
	var run model.RunRecord

	err := q.QueryRowContext(ctx, `
		SELECT id, started_at, tolerance_pct, ok_count, red_flag_count, no_match_count, missing_count, report_json
		FROM runs
		WHERE id = ?
	`, id).Scan(
		&run.ID,
		&run.StartedAt,
		&run.TolerancePct,
		&run.OK,
		&run.RedFlags,
		&run.NoMatch,
		&run.Missing,
		&run.ReportJSON,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listRunsTx(ctx, s.db, limit)
}

func (s *SQLiteStorage) listRunsTx(ctx context.Context, q queryable, limit int) ([]model.RunRecord, error) {
	if limit <= 0 {
		limit = defaultRunListLimit
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, started_at, tolerance_pct, ok_count, red_flag_count, no_match_count, missing_count, report_json
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.RunRecord
	for rows.Next() {
		var run model.RunRecord
		if err := rows.Scan(
			&run.ID,
			&run.StartedAt,
			&run.TolerancePct,
			&run.OK,
			&run.RedFlags,
			&run.NoMatch,
			&run.Missing,
			&run.ReportJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}
