package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Veraticus/plansync/internal/service"
)

func cursorKey(kind service.EntityKind) string {
	return "last_sync:" + string(kind)
}

// LastSync returns the pull cursor for kind, or the zero time if the kind
// has never completed a pull.
func (s *SQLiteStorage) LastSync(ctx context.Context, kind service.EntityKind) (time.Time, error) {
	if err := validateContext(ctx); err != nil {
		return time.Time{}, err
	}

	var value string
	err := s.q.QueryRowContext(ctx, `SELECT value FROM sync_state WHERE key = ?`, cursorKey(kind)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get sync cursor for %s: %w", kind, err)
	}

	seconds, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt sync cursor for %s: %w", kind, err)
	}
	return time.Unix(seconds, 0).UTC(), nil
}

// SetLastSync persists the pull cursor for kind at second precision.
func (s *SQLiteStorage) SetLastSync(ctx context.Context, kind service.EntityKind, at time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, cursorKey(kind), strconv.FormatInt(at.Unix(), 10))
	if err != nil {
		return fmt.Errorf("failed to set sync cursor for %s: %w", kind, err)
	}
	return nil
}
