package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS accounts (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					currency TEXT NOT NULL,
					is_synced INTEGER NOT NULL DEFAULT 0,
					is_deleted INTEGER NOT NULL DEFAULT 0,
					revision INTEGER NOT NULL DEFAULT 0
				)`,

				`CREATE TABLE IF NOT EXISTS planned_payment_rules (
					id TEXT PRIMARY KEY,
					type TEXT NOT NULL,
					account_id TEXT NOT NULL,
					category_id TEXT,
					amount TEXT NOT NULL,
					title TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					one_time INTEGER NOT NULL DEFAULT 0,
					start_date DATETIME,
					interval_n INTEGER,
					interval_type TEXT,
					is_synced INTEGER NOT NULL DEFAULT 0,
					is_deleted INTEGER NOT NULL DEFAULT 0,
					revision INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE INDEX idx_rules_sync ON planned_payment_rules(is_synced, is_deleted)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					type TEXT NOT NULL,
					account_id TEXT NOT NULL,
					to_account_id TEXT,
					to_amount TEXT,
					category_id TEXT,
					amount TEXT NOT NULL,
					title TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					due_date DATETIME,
					date_time DATETIME,
					recurring_rule_id TEXT,
					is_synced INTEGER NOT NULL DEFAULT 0,
					is_deleted INTEGER NOT NULL DEFAULT 0,
					revision INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE INDEX idx_transactions_rule ON transactions(recurring_rule_id)`,
				`CREATE INDEX idx_transactions_due ON transactions(due_date)`,

				`CREATE TABLE IF NOT EXISTS exchange_rates (
					base_currency TEXT NOT NULL,
					currency TEXT NOT NULL,
					rate TEXT NOT NULL,
					PRIMARY KEY (base_currency, currency)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add budgets",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS budgets (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					amount TEXT NOT NULL,
					category_ids TEXT,
					account_ids TEXT,
					order_num REAL NOT NULL DEFAULT 0,
					is_synced INTEGER NOT NULL DEFAULT 0,
					is_deleted INTEGER NOT NULL DEFAULT 0,
					revision INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE INDEX idx_budgets_sync ON budgets(is_synced, is_deleted)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add durable sync state",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS sync_state (
					key TEXT PRIMARY KEY,
					value TEXT NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)
			`)
			if err != nil {
				return fmt.Errorf("failed to create sync_state table: %w", err)
			}
			return nil
		},
	},
}

// SchemaVersion returns the schema version currently recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
