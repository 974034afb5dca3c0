package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/plansync/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: false,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateContext() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateString(t *testing.T) {
	tests := []struct {
		name      string
		str       string
		paramName string
		wantErr   bool
	}{
		{
			name:      "valid string",
			str:       "test",
			paramName: "param",
			wantErr:   false,
		},
		{
			name:      "empty string",
			str:       "",
			paramName: "param",
			wantErr:   true,
		},
		{
			name:      "whitespace only",
			str:       "   ",
			paramName: "param",
			wantErr:   true,
		},
		{
			name:      "string with spaces",
			str:       "  test  ",
			paramName: "param",
			wantErr:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateString(tt.str, tt.paramName)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), tt.paramName) {
				t.Errorf("validateString() error should contain param name %s, got %v", tt.paramName, err)
			}
		})
	}
}

func TestValidateCurrency(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr error
	}{
		{name: "upper case", code: "USD"},
		{name: "empty", code: "", wantErr: ErrEmptyString},
		{name: "lower case", code: "usd", wantErr: ErrInvalidRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCurrency(tt.code, "currency")
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateTransaction(t *testing.T) {
	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		txn     *model.Transaction
		wantErr error
		name    string
	}{
		{
			name: "pending instance",
			txn:  &model.Transaction{ID: uuid.New(), AccountID: uuid.New(), DueDate: &due},
		},
		{
			name: "realized transaction",
			txn:  &model.Transaction{ID: uuid.New(), AccountID: uuid.New(), DateTime: &due},
		},
		{
			name:    "nil transaction",
			wantErr: ErrNilParameter,
		},
		{
			name:    "missing id",
			txn:     &model.Transaction{AccountID: uuid.New(), DueDate: &due},
			wantErr: ErrNilID,
		},
		{
			name:    "missing account",
			txn:     &model.Transaction{ID: uuid.New(), DueDate: &due},
			wantErr: ErrNilID,
		},
		{
			name:    "no dates",
			txn:     &model.Transaction{ID: uuid.New(), AccountID: uuid.New()},
			wantErr: ErrInvalidRecord,
		},
		{
			name:    "both dates",
			txn:     &model.Transaction{ID: uuid.New(), AccountID: uuid.New(), DueDate: &due, DateTime: &due},
			wantErr: ErrInvalidRecord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTransaction(tt.txn)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
