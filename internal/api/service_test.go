package api

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"smsglobe-go/internal/database"
	"smsglobe-go/internal/models"
	"smsglobe-go/internal/store"
	"smsglobe-go/internal/validation"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLedger(t *testing.T) (*LedgerService, *database.Service) {
	t.Helper()
	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "api.db"),
		MaxOpenConns: 1,
		PingTimeout:  time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = db.CreateUser(context.Background(), "u1", "Api User", "api@example.com")
	require.NoError(t, err)
	return NewLedgerService(db), db
}

func TestHealthCheck(t *testing.T) {
	svc, _ := setupLedger(t)
	assert.NoError(t, svc.HealthCheck(context.Background()))
}

func TestRecordTransaction(t *testing.T) {
	svc, _ := setupLedger(t)
	ctx := context.Background()

	rec, err := svc.RecordTransaction(ctx, "u1", TransactionRequest{
		Type: models.TransactionDeposit, Amount: decimal.NewFromInt(25), Description: "Top up",
	})
	require.NoError(t, err)
	assert.True(t, rec.BalanceAfter.Equal(decimal.NewFromInt(25)))

	bal, err := svc.GetUserBalance(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, bal.Balance.Equal(decimal.NewFromInt(25)))
}

func TestRecordTransaction_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		req     TransactionRequest
		message string
	}{
		{
			name:    "wrong sign",
			req:     TransactionRequest{Type: models.TransactionPurchase, Amount: decimal.NewFromInt(5), Description: "x"},
			message: "purchase amount must be negative",
		},
		{
			name:    "unknown type",
			req:     TransactionRequest{Type: "gift", Amount: decimal.NewFromInt(5), Description: "x"},
			message: `invalid type: "gift"`,
		},
		{
			name:    "overdraw",
			req:     TransactionRequest{Type: models.TransactionWithdrawal, Amount: decimal.NewFromInt(-5), Description: "x"},
			message: "balanceAfter cannot be negative",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, db := setupLedger(t)
			_, err := svc.RecordTransaction(context.Background(), "u1", tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, validation.ErrInvalid))
			assert.Contains(t, err.Error(), tt.message)

			txs, err := db.ListTransactions(context.Background(), "u1")
			require.NoError(t, err)
			assert.Empty(t, txs)
		})
	}
}

func TestGetUserBalance_Errors(t *testing.T) {
	svc, _ := setupLedger(t)

	_, err := svc.GetUserBalance(context.Background(), "")
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = svc.GetUserBalance(context.Background(), "ghost")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestGetTransactionHistory(t *testing.T) {
	svc, db := setupLedger(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := db.ApplyTransaction(ctx, store.ApplyTransactionParams{
			UserId: "u1", Type: models.TransactionDeposit, Amount: decimal.NewFromInt(int64(i + 1)),
		})
		require.NoError(t, err)
	}

	history, err := svc.GetTransactionHistory(ctx, "u1", 0, -1)
	require.NoError(t, err)
	assert.Len(t, history, 3)
	assert.True(t, history[0].BalanceAfter.Equal(decimal.NewFromInt(6)))
}
