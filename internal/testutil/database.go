// Package testutil provides database fixtures shared by package tests that
// need a real, migrated store.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/plansync/internal/model"
	"github.com/Veraticus/plansync/internal/storage"
	"github.com/google/uuid"
)

// TestDB is a migrated SQLite database that lives for one test.
type TestDB struct {
	Storage  *storage.SQLiteStorage
	t        *testing.T
	Accounts []model.Account
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup func(context.Context, *storage.SQLiteStorage) error
	Accounts    []model.Account
}

// SetupTestDB creates a migrated database in a temporary directory seeded
// with accounts. It is closed when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t, testutil.Account("Checking", "EUR"))
func SetupTestDB(t *testing.T, accounts ...model.Account) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{Accounts: accounts})
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	for _, account := range opts.Accounts {
		if err := store.Accounts().Save(ctx, account); err != nil {
			t.Fatalf("failed to seed account %q: %v", account.Name, err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return &TestDB{
		Storage:  store,
		Accounts: opts.Accounts,
		t:        t,
	}
}

// MustSaveRules stores rules or fails the test.
func (db *TestDB) MustSaveRules(rules ...model.PlannedPaymentRule) {
	db.t.Helper()
	for _, r := range rules {
		if err := db.Storage.Rules().Save(context.Background(), r); err != nil {
			db.t.Fatalf("failed to save rule %s: %v", r.ID, err)
		}
	}
}

// MustFindRule returns the stored rule or fails the test.
func (db *TestDB) MustFindRule(id uuid.UUID) *model.PlannedPaymentRule {
	db.t.Helper()
	r, err := db.Storage.Rules().FindByID(context.Background(), id)
	if err != nil {
		db.t.Fatalf("failed to find rule %s: %v", id, err)
	}
	return r
}
