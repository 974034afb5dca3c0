package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/plansync/internal/budget"
	"github.com/Veraticus/plansync/internal/common"
	"github.com/Veraticus/plansync/internal/config"
	"github.com/Veraticus/plansync/internal/currency"
	"github.com/Veraticus/plansync/internal/metrics"
	"github.com/Veraticus/plansync/internal/model"
	"github.com/Veraticus/plansync/internal/planned"
	"github.com/Veraticus/plansync/internal/rates"
	"github.com/Veraticus/plansync/internal/remote"
	"github.com/Veraticus/plansync/internal/service"
	"github.com/Veraticus/plansync/internal/session"
	"github.com/Veraticus/plansync/internal/storage"
	"github.com/Veraticus/plansync/internal/syncer"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

// app wires the components a command needs around one open database.
type app struct {
	cfg     *config.Config
	store   *storage.SQLiteStorage
	metrics metrics.Collector
	rates   *currency.Normalizer
}

// openApp loads configuration and opens the migrated database. Callers must
// Close the result.
func openApp(ctx context.Context, collector metrics.Collector) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if collector == nil {
		collector = metrics.NoOp{}
	}

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	fetcher := rates.NewCoinbaseClient(cfg.Rates.BaseURL, cfg.Rates.Timeout, cfg.Sync.Retry())
	normalizer, err := currency.NewNormalizer(store, fetcher)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &app{cfg: cfg, store: store, metrics: collector, rates: normalizer}, nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, common.NewUserError("Invalid configuration: check config.yaml and PLANSYNC_* variables", err)
	}
	return cfg, nil
}

// initStorage opens the database and brings its schema up to date.
func initStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func (a *app) Close() {
	a.rates.Close()
	if err := a.store.Close(); err != nil {
		slog.Error("failed to close storage", "error", err)
	}
}

func (a *app) plannedService() *planned.Service {
	return planned.NewService(a.store.Rules(), a.store, planned.NewGenerator(a.store, a.metrics))
}

func (a *app) budgetService() *budget.Service {
	return budget.NewService(a.store.Budgets())
}

func (a *app) accounts(ctx context.Context) ([]model.Account, error) {
	accounts, err := a.store.Accounts().FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	return accounts, nil
}

// syncManager builds one syncer per replicated entity kind. It fails when no
// sync server is configured.
func (a *app) syncManager() (*syncer.Manager, *session.TokenSession, error) {
	if err := a.cfg.RequireRemote(); err != nil {
		return nil, nil, common.NewUserError("No sync server configured: set remote.base_url or PLANSYNC_REMOTE_BASE_URL", err)
	}

	sess := session.NewTokenSession(a.cfg.Remote.Token)
	client := remote.NewClient(a.cfg.Remote.Client(), sess, a.metrics)
	opts := syncer.Options{
		Metrics: a.metrics,
		Logger:  slog.Default(),
		Retry:   a.cfg.Sync.Retry(),
	}

	manager := syncer.NewManager(
		syncer.New[model.PlannedPaymentRule](service.KindPlannedPaymentRules, a.store.Rules(), remote.PlannedPaymentRules(client), a.store, sess, opts),
		syncer.New[model.Budget](service.KindBudgets, a.store.Budgets(), remote.Budgets(client), a.store, sess, opts),
		syncer.New[model.Account](service.KindAccounts, a.store.Accounts(), remote.Accounts(client), a.store, sess, opts),
	)
	return manager, sess, nil
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

func parseIDs(values []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := parseID(v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return amount, nil
}

// parseDate accepts a calendar date in the local time zone or an RFC 3339
// timestamp.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}

func accountCurrency(accounts []model.Account, id uuid.UUID) string {
	if a := model.FindAccount(accounts, id); a != nil {
		return a.Currency
	}
	return ""
}
