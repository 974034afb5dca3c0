package model

import "github.com/shopspring/decimal"

// ExchangeRate converts between a base currency and another currency:
// amountInBase = amountInCurrency / Rate.
type ExchangeRate struct {
	BaseCurrency string
	Currency     string
	Rate         decimal.Decimal
}
