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

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smsglobe-go/internal/models"
	"smsglobe-go/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const transactionColumns = `id, user_id, type, amount::text, description, previous_balance::text, new_balance::text, external_ref, created_at`

// SetBalance overwrites the stored balance. It is a blind write with no version check.
func (s *Store) SetBalance(ctx context.Context, userId string, balance decimal.Decimal, fixedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET balance = $1::numeric, version = version + 1, updated_at = $2, balance_fixed_at = $2
		WHERE id = $3`, balance.String(), fixedAt, userId)
	if err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}

	zap.L().Info("Balance overwritten",
		zap.String("user_id", userId),
		zap.String("balance", balance.String()),
		zap.Time("fixed_at", fixedAt))
	return nil
}

// ApplyTransaction locks the user row, records the movement and its journal pair, then bumps the balance.
func (s *Store) ApplyTransaction(ctx context.Context, params store.ApplyTransactionParams) (*models.Transaction, error) {
	var transaction *models.Transaction

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var currentStr string
		err := tx.QueryRow(ctx, `SELECT balance::text FROM users WHERE id = $1 AND active FOR UPDATE`, params.UserId).
			Scan(&currentStr)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", store.ErrUserNotFound, params.UserId)
		}
		if err != nil {
			return fmt.Errorf("failed to get current balance: %w", err)
		}

		current, err := decimal.NewFromString(currentStr)
		if err != nil {
			return fmt.Errorf("failed to parse current balance '%s': %w", currentStr, err)
		}
		newBalance := current.Add(params.Amount)
		if params.Amount.IsNegative() && newBalance.IsNegative() {
			return fmt.Errorf("%w: balance %s, debit %s", store.ErrInsufficientBalance, current.String(), params.Amount.Abs().String())
		}
		now := s.now()

		transaction, err = scanTransaction(tx.QueryRow(ctx, `
			INSERT INTO transactions (id, user_id, type, amount, description, previous_balance, new_balance, external_ref, created_at)
			VALUES ($1, $2, $3, $4::numeric, $5, $6::numeric, $7::numeric, $8, $9)
			RETURNING `+transactionColumns,
			uuid.New().String(), params.UserId, params.Type, params.Amount.String(), params.Description,
			current.String(), newBalance.String(), nullableString(params.ExternalRef), now))
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: external_ref %s already exists", store.ErrDuplicateTransaction, params.ExternalRef)
			}
			return fmt.Errorf("failed to insert transaction: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE users SET balance = $1::numeric, version = version + 1, updated_at = $2 WHERE id = $3`,
			newBalance.String(), now, params.UserId); err != nil {
			return fmt.Errorf("failed to update balance: %w", err)
		}

		return insertJournalEntries(ctx, tx, transaction)
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Transaction processed successfully",
		zap.String("transaction_id", transaction.Id),
		zap.String("user_id", params.UserId),
		zap.String("new_balance", transaction.NewBalance.String()))
	return transaction, nil
}

func insertJournalEntries(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	amount := t.Amount.Abs().String()
	userDebit, userCredit := amount, "0"
	if t.Amount.IsNegative() {
		userDebit, userCredit = "0", amount
	}

	batch := &pgx.Batch{}
	const q = `INSERT INTO journal_entries (id, transaction_id, account_type, account_id, debit_amount, credit_amount)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric)`
	batch.Queue(q, uuid.New().String(), t.Id, "user_balance", store.UserAccount(t.UserId), userDebit, userCredit)
	batch.Queue(q, uuid.New().String(), t.Id, "platform", store.CounterAccount(t.Type), userCredit, userDebit)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to add journal entries: %w", err)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, userId string) ([]models.Transaction, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+transactionColumns+`
		FROM transactions WHERE user_id = $1 ORDER BY created_at ASC, seq ASC`, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return collectTransactions(rows)
}

func (s *Store) GetTransactionHistory(ctx context.Context, userId string, limit, offset int) ([]models.Transaction, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+transactionColumns+`
		FROM transactions WHERE user_id = $1 ORDER BY created_at DESC, seq DESC LIMIT $2 OFFSET $3`,
		userId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	return collectTransactions(rows)
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	var amountStr, previousStr, newStr string
	var externalRef *string
	if err := row.Scan(&t.Id, &t.UserId, &t.Type, &amountStr, &t.Description,
		&previousStr, &newStr, &externalRef, &t.CreatedAt); err != nil {
		return nil, err
	}
	if externalRef != nil {
		t.ExternalRef = *externalRef
	}

	var err error
	if t.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}
	if t.PreviousBalance, err = decimal.NewFromString(previousStr); err != nil {
		return nil, fmt.Errorf("failed to parse previous balance '%s': %w", previousStr, err)
	}
	if t.NewBalance, err = decimal.NewFromString(newStr); err != nil {
		return nil, fmt.Errorf("failed to parse new balance '%s': %w", newStr, err)
	}
	return &t, nil
}

func collectTransactions(rows pgx.Rows) ([]models.Transaction, error) {
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return transactions, nil
}
