package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"smsglobe-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetBalance returns the stored balance of a user
func (s *SubledgerService) GetBalance(ctx context.Context, userId string) (decimal.Decimal, error) {
	var balanceStr string
	err := s.db.QueryRowContext(ctx, queryGetBalance, userId).Scan(&balanceStr)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}
	if err != nil {
		zap.L().Error("Failed to get balance", zap.String("user_id", userId), zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		zap.L().Error("Failed to parse balance", zap.String("balance_str", balanceStr), zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to parse balance: %w", err)
	}

	zap.L().Debug("Retrieved balance", zap.String("user_id", userId), zap.String("balance", balance.String()))
	return balance, nil
}

// SetBalance overwrites the stored balance with a recomputed value.
// This is a blind write: it does not compare the version it read earlier.
func (s *SubledgerService) SetBalance(ctx context.Context, userId string, balance decimal.Decimal, fixedAt time.Time) error {
	result, err := s.db.ExecContext(ctx, querySetBalance, balance.String(), fixedAt, fixedAt, userId)
	if err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}

	zap.L().Info("Balance overwritten",
		zap.String("user_id", userId),
		zap.String("balance", balance.String()),
		zap.Time("fixed_at", fixedAt))
	return nil
}
