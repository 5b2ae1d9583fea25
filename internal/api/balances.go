/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"context"
	"errors"
	"fmt"

	"smsglobe-go/internal/models"
	"smsglobe-go/internal/store"
	"smsglobe-go/internal/validation"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrBadRequest marks caller mistakes as opposed to storage failures.
var ErrBadRequest = errors.New("bad request")

// TransactionRequest is a manual balance movement posted by an operator.
type TransactionRequest struct {
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	ExternalRef string          `json:"external_ref,omitempty"`
}

// GetUserBalance returns the stored balance of a user
func (s *LedgerService) GetUserBalance(ctx context.Context, userId string) (*models.UserBalance, error) {
	if userId == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrBadRequest)
	}

	user, err := s.store.GetUserById(ctx, userId)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, err
		}
		zap.L().Error("Failed to get user balance", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve balance")
	}

	return &models.UserBalance{
		UserId:         user.Id,
		Balance:        user.Balance,
		BalanceFixedAt: user.BalanceFixedAt,
	}, nil
}

// GetTransactionHistory returns paginated transaction history for a user
func (s *LedgerService) GetTransactionHistory(ctx context.Context, userId string, limit, offset int) ([]models.TransactionRecord, error) {
	if userId == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrBadRequest)
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	transactions, err := s.store.GetTransactionHistory(ctx, userId, limit, offset)
	if err != nil {
		zap.L().Error("Failed to get transaction history",
			zap.String("user_id", userId),
			zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve transaction history")
	}

	result := make([]models.TransactionRecord, len(transactions))
	for i, tx := range transactions {
		result[i] = toRecord(tx)
	}
	return result, nil
}

// RecordTransaction checks a manual movement against the projected balance
// and applies it. Warnings are logged, errors reject the request.
func (s *LedgerService) RecordTransaction(ctx context.Context, userId string, req TransactionRequest) (*models.TransactionRecord, error) {
	if userId == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrBadRequest)
	}

	balance, err := s.store.GetUserBalance(ctx, userId)
	if err != nil {
		return nil, err
	}

	check := validation.ValidateTransaction(validation.Record{
		"userId":       userId,
		"type":         req.Type,
		"amount":       req.Amount,
		"description":  req.Description,
		"balanceAfter": balance.Add(req.Amount),
	})
	for _, w := range check.Warnings {
		zap.L().Warn("Transaction warning", zap.String("user_id", userId), zap.String("warning", w))
	}
	if err := check.Err(); err != nil {
		return nil, err
	}

	tx, err := s.store.ApplyTransaction(ctx, store.ApplyTransactionParams{
		UserId:      userId,
		Type:        req.Type,
		Amount:      req.Amount,
		Description: req.Description,
		ExternalRef: req.ExternalRef,
	})
	if err != nil {
		return nil, err
	}

	record := toRecord(*tx)
	return &record, nil
}

func toRecord(tx models.Transaction) models.TransactionRecord {
	return models.TransactionRecord{
		Id:           tx.Id,
		Type:         tx.Type,
		Amount:       tx.Amount,
		Description:  tx.Description,
		BalanceAfter: tx.NewBalance,
		CreatedAt:    tx.CreatedAt,
	}
}
