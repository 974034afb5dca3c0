package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/plansync/internal/cli"
	"github.com/Veraticus/plansync/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

An existing database is backed up before any pending migration is applied.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")
	cmd.Flags().Bool("no-backup", false, "Skip the automatic backup before migrating")

	backup := &cobra.Command{
		Use:   "backup [tag]",
		Short: "Back up the database",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBackup,
	}
	cmd.AddCommand(backup)

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	status, _ := cmd.Flags().GetBool("status")
	noBackup, _ := cmd.Flags().GetBool("no-backup")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Opened without migrating so the current version can be inspected first.
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if status {
		table := cli.NewTable(cmd.OutOrStdout(), "Database", "Current", "Latest")
		table.Row(cfg.Database.Path, fmt.Sprint(current), fmt.Sprint(storage.ExpectedSchemaVersion))
		return table.Flush()
	}

	if current >= storage.ExpectedSchemaVersion {
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Database is up to date (version %d)", current))) //nolint:forbidigo // User-facing output
		return nil
	}

	if current > 0 && !noBackup {
		path, err := store.AutoBackup(ctx, cfg.Database.BackupDir, "migrate")
		if err != nil {
			return fmt.Errorf("backup before migration failed (use --no-backup to skip): %w", err)
		}
		slog.Info("Backed up database before migrating", "path", path)
	}

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Migrated database from version %d to %d", current, storage.ExpectedSchemaVersion))) //nolint:forbidigo // User-facing output
	return nil
}

func runBackup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	tag := ""
	if len(args) == 1 {
		tag = args[0]
	}
	path, err := store.Backup(ctx, cfg.Database.BackupDir, tag)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess("Backup written to " + path)) //nolint:forbidigo // User-facing output
	return nil
}
