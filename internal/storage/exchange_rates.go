package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/plansync/internal/model"
)

// SaveExchangeRate upserts the rate for a (base, currency) pair.
func (s *SQLiteStorage) SaveExchangeRate(ctx context.Context, rate model.ExchangeRate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCurrency(rate.BaseCurrency, "rate.BaseCurrency"); err != nil {
		return err
	}
	if err := validateCurrency(rate.Currency, "rate.Currency"); err != nil {
		return err
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO exchange_rates (base_currency, currency, rate)
		VALUES (?, ?, ?)
		ON CONFLICT(base_currency, currency) DO UPDATE SET rate = excluded.rate
	`, rate.BaseCurrency, rate.Currency, rate.Rate)
	if err != nil {
		return fmt.Errorf("failed to save exchange rate %s/%s: %w", rate.BaseCurrency, rate.Currency, err)
	}
	return nil
}

// FindExchangeRate returns the stored rate for the pair, or nil if unknown.
func (s *SQLiteStorage) FindExchangeRate(ctx context.Context, base, currency string) (*model.ExchangeRate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rate := model.ExchangeRate{}
	err := s.q.QueryRowContext(ctx, `
		SELECT base_currency, currency, rate FROM exchange_rates
		WHERE base_currency = ? AND currency = ?
	`, base, currency).Scan(&rate.BaseCurrency, &rate.Currency, &rate.Rate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange rate %s/%s: %w", base, currency, err)
	}
	return &rate, nil
}

// FindExchangeRates returns every stored rate for the base currency.
func (s *SQLiteStorage) FindExchangeRates(ctx context.Context, base string) ([]model.ExchangeRate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT base_currency, currency, rate FROM exchange_rates
		WHERE base_currency = ? ORDER BY currency
	`, base)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchange rates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rates []model.ExchangeRate
	for rows.Next() {
		var rate model.ExchangeRate
		if err := rows.Scan(&rate.BaseCurrency, &rate.Currency, &rate.Rate); err != nil {
			return nil, fmt.Errorf("failed to scan exchange rate: %w", err)
		}
		rates = append(rates, rate)
	}
	return rates, rows.Err()
}
