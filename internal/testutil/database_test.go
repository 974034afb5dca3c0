package testutil_test

import (
	"context"
	"testing"

	"github.com/Veraticus/plansync/internal/model"
	"github.com/Veraticus/plansync/internal/storage"
	"github.com/Veraticus/plansync/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTestDB_SeedsAccounts(t *testing.T) {
	db := testutil.SetupTestDB(t, testutil.Account("Checking", "EUR"), testutil.Account("Savings", "USD"))

	accounts, err := db.Storage.Accounts().FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
	assert.Len(t, db.Accounts, 2)

	version, err := db.Storage.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, storage.ExpectedSchemaVersion, version)
}

func TestSetupTestDBWithOptions_CustomSetup(t *testing.T) {
	called := false
	testutil.SetupTestDBWithOptions(t, testutil.TestDBOptions{
		CustomSetup: func(_ context.Context, s *storage.SQLiteStorage) error {
			called = s != nil
			return nil
		},
	})
	assert.True(t, called)
}

func TestRuleFixtures(t *testing.T) {
	account := testutil.Account("Cash", "USD")
	db := testutil.SetupTestDB(t, account)

	once := testutil.OneTimeRule(account.ID, "Deposit", 500, testutil.Date(2024, 5, 1))
	monthly := testutil.RecurringRule(account.ID, "Rent", 1200, testutil.Date(2024, 1, 31), 1, model.IntervalMonth)
	require.NoError(t, once.Validate())
	require.NoError(t, monthly.Validate())

	db.MustSaveRules(once, monthly)
	got := db.MustFindRule(monthly.ID)
	assert.Equal(t, "Rent", got.Title)
	assert.False(t, got.IsSynced)
}
