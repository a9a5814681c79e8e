package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mbagrov/bimtally/internal/service"
)

// GetCachedMatch retrieves a persisted reconciler match, or nil when the
// pair was never cached.
func (s *SQLiteStorage) GetCachedMatch(ctx context.Context, name, labelsKey string) (*service.CachedMatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return s.getCachedMatchTx(ctx, s.db, name, labelsKey)
}

func (s *SQLiteStorage) getCachedMatchTx(ctx context.Context, q queryable, name, labelsKey string) (*service.CachedMatch, error) {
	var match service.CachedMatch

	err := q.QueryRowContext(ctx, `
		SELECT vor_name, labels_key, label, method, confidence, created_at
		FROM match_cache
		WHERE vor_name = ? AND labels_key = ?
	`, name, labelsKey).Scan(
		&match.Name,
		&match.LabelsKey,
		&match.Label,
		&match.Method,
		&match.Confidence,
		&match.CreatedAt,
	)

	if err == sql.ErrNoRows {
		// Not an error, just not cached yet
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached match: %w", err)
	}

	return &match, nil
}

// SaveCachedMatch inserts or replaces the match for (name, labels_key).
func (s *SQLiteStorage) SaveCachedMatch(ctx context.Context, match *service.CachedMatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCachedMatch(match); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.saveCachedMatchTx(ctx, tx, match); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) saveCachedMatchTx(ctx context.Context, q queryable, match *service.CachedMatch) error {
	createdAt := match.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO match_cache (vor_name, labels_key, label, method, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(vor_name, labels_key) DO UPDATE SET
			label = excluded.label,
			method = excluded.method,
			confidence = excluded.confidence,
			created_at = excluded.created_at
	`, match.Name, match.LabelsKey, match.Label, match.Method, match.Confidence, createdAt)
	if err != nil {
		return fmt.Errorf("failed to save cached match: %w", err)
	}
	return nil
}

// PruneMatchCache deletes cached matches older than the given time and
// reports how many rows went away.
func (s *SQLiteStorage) PruneMatchCache(ctx context.Context, olderThan time.Time) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return s.pruneMatchCacheTx(ctx, s.db, olderThan)
}

func (s *SQLiteStorage) pruneMatchCacheTx(ctx context.Context, q queryable, olderThan time.Time) (int64, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM match_cache WHERE created_at < ?`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to prune match cache: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned rows: %w", err)
	}
	return deleted, nil
}
