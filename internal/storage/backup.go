package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrBackupExists is returned when the backup file is already present.
var ErrBackupExists = errors.New("backup already exists")

const maxAutoBackups = 5

// Backup writes a consistent copy of the database into dir and returns the
// path of the new file. An in-memory database cannot be backed up.
func (s *SQLiteStorage) Backup(ctx context.Context, dir, tag string) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if s.dbPath == ":memory:" {
		return "", fmt.Errorf("%w: in-memory database has no file to back up", ErrInvalidRecord)
	}
	if tag == "" {
		tag = "backup-" + time.Now().UTC().Format("2006-01-02-150405")
	}
	if strings.ContainsAny(tag, `/\'";`) || strings.Contains(tag, "..") {
		return "", errors.New("invalid backup tag: cannot contain path separators or quotes")
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve backup directory: %w", err)
	}
	if strings.ContainsAny(absDir, `'";`) {
		return "", errors.New("invalid backup directory: contains forbidden characters")
	}
	if err := os.MkdirAll(absDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	dest := filepath.Join(absDir, tag+".db")
	if _, err := os.Stat(dest); err == nil {
		return "", ErrBackupExists
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return "", fmt.Errorf("failed to checkpoint WAL: %w", err)
	}
	// #nosec G201 - dest is validated above
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dest)); err != nil {
		return "", fmt.Errorf("failed to back up database: %w", err)
	}

	slog.Info("Database backed up", "path", dest)
	return dest, nil
}

// AutoBackup backs the database up before a risky operation such as a
// schema migration and prunes older automatic backups.
func (s *SQLiteStorage) AutoBackup(ctx context.Context, dir, reason string) (string, error) {
	prefix := "auto-" + reason + "-"
	path, err := s.Backup(ctx, dir, prefix+time.Now().UTC().Format("2006-01-02-150405"))
	if err != nil {
		return "", err
	}

	if err := pruneBackups(dir, prefix, maxAutoBackups); err != nil {
		slog.Warn("Failed to prune old backups", "error", err)
	}
	return path, nil
}

func pruneBackups(dir, prefix string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read backup directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) && strings.HasSuffix(entry.Name(), ".db") {
			names = append(names, entry.Name())
		}
	}
	if len(names) <= keep {
		return nil
	}

	// Timestamps in the names sort chronologically.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	for _, name := range names[keep:] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			slog.Debug("Failed to remove old backup", "file", name, "error", err)
		}
	}
	return nil
}
