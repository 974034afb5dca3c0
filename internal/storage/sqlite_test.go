package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/plansync/internal/common"
	"github.com/Veraticus/plansync/internal/model"
	"github.com/Veraticus/plansync/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func monthlyRule(start time.Time) model.PlannedPaymentRule {
	n := 1
	it := model.IntervalMonth
	return model.PlannedPaymentRule{
		ID:           uuid.New(),
		AccountID:    uuid.New(),
		Type:         model.TypeExpense,
		Title:        "Rent",
		Amount:       decimal.RequireFromString("1200.50"),
		StartDate:    &start,
		IntervalN:    &n,
		IntervalType: &it,
	}
}

func pendingInstance(ruleID uuid.UUID, due time.Time) *model.Transaction {
	return &model.Transaction{
		ID:              uuid.New(),
		AccountID:       uuid.New(),
		Type:            model.TypeExpense,
		Amount:          decimal.NewFromInt(10),
		DueDate:         &due,
		RecurringRuleID: &ruleID,
	}
}

func TestNewSQLiteStorage_Memory(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Migrate(context.Background()))
	assert.Equal(t, ":memory:", store.Path())
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage("  ")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestRuleRepository_SaveAndFind(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	rules := store.Rules()

	rule := monthlyRule(date(2024, 1, 31))
	category := uuid.New()
	rule.CategoryID = &category
	require.NoError(t, rules.Save(ctx, rule))

	got, err := rules.FindByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, rule.Title, got.Title)
	assert.True(t, rule.Amount.Equal(got.Amount))
	assert.Equal(t, rule.StartDate.UTC(), got.StartDate.UTC())
	assert.Equal(t, *rule.IntervalN, *got.IntervalN)
	assert.Equal(t, *rule.IntervalType, *got.IntervalType)
	assert.Equal(t, category, *got.CategoryID)
	assert.Equal(t, int64(1), got.Revision)
	assert.False(t, got.IsSynced)

	rule.Title = "Rent (new flat)"
	require.NoError(t, rules.Save(ctx, rule))

	got, err = rules.FindByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rent (new flat)", got.Title)
	assert.Equal(t, int64(2), got.Revision)

	all, err := rules.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRuleRepository_FindByIDMissing(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, err := store.Rules().FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRuleRepository_OneTimeRoundTrip(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	start := date(2024, 5, 1)
	rule := model.PlannedPaymentRule{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		Type:      model.TypeIncome,
		Amount:    decimal.NewFromInt(50),
		StartDate: &start,
		OneTime:   true,
	}
	require.NoError(t, store.Rules().Save(ctx, rule))

	got, err := store.Rules().FindByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.True(t, got.OneTime)
	assert.Nil(t, got.IntervalN)
	assert.Nil(t, got.IntervalType)
	assert.Nil(t, got.CategoryID)
}

func TestRuleRepository_SyncFlags(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	rules := store.Rules()

	rule := monthlyRule(date(2024, 1, 1))
	require.NoError(t, rules.Save(ctx, rule))

	dirty, err := rules.FindByIsSyncedAndIsDeleted(ctx, false, false)
	require.NoError(t, err)
	require.Len(t, dirty, 1)

	t.Run("stale revision is not marked synced", func(t *testing.T) {
		ok, err := rules.MarkSynced(ctx, rule.ID, dirty[0].Revision+1)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("current revision is marked synced", func(t *testing.T) {
		ok, err := rules.MarkSynced(ctx, rule.ID, dirty[0].Revision)
		require.NoError(t, err)
		assert.True(t, ok)

		dirty, err := rules.FindByIsSyncedAndIsDeleted(ctx, false, false)
		require.NoError(t, err)
		assert.Empty(t, dirty)
	})

	t.Run("flag deleted hides the rule and queues the deletion", func(t *testing.T) {
		require.NoError(t, rules.FlagDeleted(ctx, rule.ID))

		all, err := rules.FindAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)

		pending, err := rules.FindByIsSyncedAndIsDeleted(ctx, false, true)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, rule.ID, pending[0].ID)
	})

	t.Run("delete removes the row", func(t *testing.T) {
		require.NoError(t, rules.Delete(ctx, rule.ID))
		_, err := rules.FindByID(ctx, rule.ID)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestRuleRepository_DeleteKeepsLiveRows(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	rule := monthlyRule(date(2024, 1, 1))
	require.NoError(t, store.Rules().Save(ctx, rule))
	require.NoError(t, store.Rules().Delete(ctx, rule.ID))

	_, err := store.Rules().FindByID(ctx, rule.ID)
	assert.NoError(t, err)
}

func TestTransactions_PendingLifecycle(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	ruleID := uuid.New()
	first := pendingInstance(ruleID, date(2024, 1, 1))
	second := pendingInstance(ruleID, date(2024, 2, 1))
	other := pendingInstance(uuid.New(), date(2024, 1, 15))
	for _, txn := range []*model.Transaction{first, second, other} {
		require.NoError(t, store.SaveTransaction(ctx, txn))
	}

	first.Realize(date(2024, 1, 2))
	require.NoError(t, store.SaveTransaction(ctx, first))

	got, err := store.FindTransactionByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRealized())
	assert.Nil(t, got.DueDate)

	flagged, err := store.FlagDeletedByRecurringRuleIDAndNoDateTime(ctx, ruleID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), flagged)

	remaining, err := store.FindAllByRecurringRuleID(ctx, ruleID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, first.ID, remaining[0].ID)

	due, err := store.FindPendingDue(ctx, date(2024, 1, 1), date(2024, 3, 1))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, other.ID, due[0].ID)

	realized, err := store.FindRealizedTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, realized, 1)
	assert.Equal(t, first.ID, realized[0].ID)
}

func TestTransactions_FindPendingDueRange(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.FindPendingDue(ctx, date(2024, 2, 1), date(2024, 1, 1))
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	ruleID := uuid.New()
	for _, d := range []time.Time{date(2024, 3, 1), date(2024, 1, 1), date(2024, 2, 1)} {
		require.NoError(t, store.SaveTransaction(ctx, pendingInstance(ruleID, d)))
	}

	due, err := store.FindPendingDue(ctx, date(2024, 1, 1), date(2024, 3, 1))
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, date(2024, 1, 1), due[0].DueDate.UTC())
	assert.Equal(t, date(2024, 2, 1), due[1].DueDate.UTC())
}

func TestTransactions_TransferRoundTrip(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	to := uuid.New()
	at := date(2024, 4, 4)
	txn := &model.Transaction{
		ID:          uuid.New(),
		AccountID:   uuid.New(),
		ToAccountID: &to,
		ToAmount:    decimal.NewNullDecimal(decimal.RequireFromString("91.20")),
		Type:        model.TypeTransfer,
		Amount:      decimal.NewFromInt(100),
		DateTime:    &at,
	}
	require.NoError(t, store.SaveTransaction(ctx, txn))

	got, err := store.FindTransactionByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, to, *got.ToAccountID)
	require.True(t, got.ToAmount.Valid)
	assert.Equal(t, "91.2", got.ToAmount.Decimal.String())
	assert.Nil(t, got.RecurringRuleID)
}

func TestBudgetRepository(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	budgets := store.Budgets()

	maxOrder, err := budgets.FindMaxOrderNum(ctx)
	require.NoError(t, err)
	assert.Zero(t, maxOrder)

	ids := model.SerializeIDs([]uuid.UUID{uuid.New(), uuid.New()})
	food := model.Budget{ID: uuid.New(), Name: "Food", Amount: decimal.NewFromInt(400), CategoryIDs: &ids, OrderNum: 1}
	total := model.Budget{ID: uuid.New(), Name: "Total", Amount: decimal.NewFromInt(2000), OrderNum: 0}
	require.NoError(t, budgets.Save(ctx, food))
	require.NoError(t, budgets.Save(ctx, total))

	all, err := budgets.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Total", all[0].Name)
	assert.Equal(t, ids, *all[1].CategoryIDs)
	assert.Nil(t, all[1].AccountIDs)

	maxOrder, err = budgets.FindMaxOrderNum(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, maxOrder, 0.0001)

	ok, err := budgets.MarkSynced(ctx, food.ID, all[1].Revision)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, budgets.FlagDeleted(ctx, food.ID))
	got, err := budgets.FindByID(ctx, food.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
	assert.False(t, got.IsSynced)

	require.NoError(t, budgets.Delete(ctx, food.ID))
	_, err = budgets.FindByID(ctx, food.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAccountRepository(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	accounts := store.Accounts()

	err := accounts.Save(ctx, model.Account{ID: uuid.New(), Name: "Bad", Currency: "eur"})
	assert.ErrorIs(t, err, ErrInvalidRecord)

	checking := model.Account{ID: uuid.New(), Name: "Checking", Currency: "USD"}
	require.NoError(t, accounts.Save(ctx, checking))

	got, err := accounts.FindByID(ctx, checking.ID)
	require.NoError(t, err)
	assert.Equal(t, "USD", got.Currency)

	pulled := got.Pulled()
	pulled.Name = "Main checking"
	require.NoError(t, accounts.Save(ctx, pulled))

	dirty, err := accounts.FindByIsSyncedAndIsDeleted(ctx, false, false)
	require.NoError(t, err)
	assert.Empty(t, dirty)

	all, err := accounts.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Main checking", all[0].Name)
}

func TestExchangeRates(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	missing, err := store.FindExchangeRate(ctx, "USD", "EUR")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.SaveExchangeRate(ctx, model.ExchangeRate{
		BaseCurrency: "USD", Currency: "EUR", Rate: decimal.RequireFromString("0.92"),
	}))
	require.NoError(t, store.SaveExchangeRate(ctx, model.ExchangeRate{
		BaseCurrency: "USD", Currency: "EUR", Rate: decimal.RequireFromString("0.93"),
	}))

	rate, err := store.FindExchangeRate(ctx, "USD", "EUR")
	require.NoError(t, err)
	require.NotNil(t, rate)
	assert.Equal(t, "0.93", rate.Rate.String())

	all, err := store.FindExchangeRates(ctx, "USD")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSyncCursor(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	last, err := store.LastSync(ctx, service.KindBudgets)
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	at := time.Date(2024, 6, 1, 12, 30, 15, 250*int(time.Millisecond), time.UTC)
	require.NoError(t, store.SetLastSync(ctx, service.KindBudgets, at))

	last, err = store.LastSync(ctx, service.KindBudgets)
	require.NoError(t, err)
	assert.Equal(t, at.Truncate(time.Second), last)

	other, err := store.LastSync(ctx, service.KindAccounts)
	require.NoError(t, err)
	assert.True(t, other.IsZero())
}

func TestWithTx(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	rule := monthlyRule(date(2024, 1, 1))
	errBoom := errors.New("boom")

	err := store.WithTx(ctx, func(tx *SQLiteStorage) error {
		require.NoError(t, tx.Rules().Save(ctx, rule))
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	_, err = store.Rules().FindByID(ctx, rule.ID)
	assert.ErrorIs(t, err, common.ErrNotFound, "rolled back save must not be visible")

	err = store.WithTx(ctx, func(tx *SQLiteStorage) error {
		if err := tx.Rules().Save(ctx, rule); err != nil {
			return err
		}
		return tx.WithTx(ctx, func(nested *SQLiteStorage) error {
			return nested.SaveTransaction(ctx, pendingInstance(rule.ID, date(2024, 1, 1)))
		})
	})
	require.NoError(t, err)

	instances, err := store.FindAllByRecurringRuleID(ctx, rule.ID)
	require.NoError(t, err)
	assert.Len(t, instances, 1)
}

func TestSQLiteStorage_ConcurrentAccess(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	ruleID := uuid.New()

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if err := store.SaveTransaction(ctx, pendingInstance(ruleID, date(2024, 1, 1+i))); err != nil {
				errs <- err
			}
		}(i)
		go func() {
			defer wg.Done()
			if _, err := store.FindAllByRecurringRuleID(ctx, ruleID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent operation failed: %v", err)
	}

	instances, err := store.FindAllByRecurringRuleID(ctx, ruleID)
	require.NoError(t, err)
	assert.Len(t, instances, 10)
}
