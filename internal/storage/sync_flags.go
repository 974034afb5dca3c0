package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Tables taking part in replication share the is_synced/is_deleted/revision
// columns, so the flag updates are written once here.

func markSynced(ctx context.Context, q queryable, table string, id uuid.UUID, revision int64) (bool, error) {
	res, err := q.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET is_synced = 1 WHERE id = ? AND revision = ?`, table),
		id, revision)
	if err != nil {
		return false, fmt.Errorf("failed to mark %s row synced: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

func flagDeleted(ctx context.Context, q queryable, table string, id uuid.UUID) error {
	_, err := q.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET is_deleted = 1, is_synced = 0, revision = revision + 1 WHERE id = ?`, table),
		id)
	if err != nil {
		return fmt.Errorf("failed to flag %s row deleted: %w", table, err)
	}
	return nil
}

// deleteFlagged physically removes a soft-deleted row.
func deleteFlagged(ctx context.Context, q queryable, table string, id uuid.UUID) error {
	_, err := q.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND is_deleted = 1`, table),
		id)
	if err != nil {
		return fmt.Errorf("failed to delete %s row: %w", table, err)
	}
	return nil
}
