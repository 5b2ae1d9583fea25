package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"smsglobe-go/internal/models"
	"smsglobe-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProcessTransaction atomically updates the user balance and records the transaction
func (s *SubledgerService) ProcessTransaction(ctx context.Context, params store.ApplyTransactionParams) (*models.Transaction, error) {
	zap.L().Info("Processing transaction",
		zap.String("user_id", params.UserId),
		zap.String("type", params.Type),
		zap.String("amount", params.Amount.String()),
		zap.String("external_ref", params.ExternalRef))

	if params.ExternalRef != "" {
		var existingTxId string
		err := s.db.QueryRowContext(ctx, queryCheckDuplicateTransaction, params.ExternalRef).Scan(&existingTxId)
		if err == nil {
			zap.L().Warn("Duplicate external reference detected, skipping",
				zap.String("external_ref", params.ExternalRef),
				zap.String("existing_tx_id", existingTxId))
			return nil, fmt.Errorf("%w: external_ref %s already exists", store.ErrDuplicateTransaction, params.ExternalRef)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to check for duplicate transaction: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var currentBalanceStr string
	var version int64
	err = tx.QueryRowContext(ctx, queryGetBalanceForUpdate, params.UserId).Scan(&currentBalanceStr, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, params.UserId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	}

	currentBalance, err := decimal.NewFromString(currentBalanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse current balance '%s': %w", currentBalanceStr, err)
	}

	newBalance := currentBalance.Add(params.Amount)
	if params.Amount.IsNegative() && newBalance.IsNegative() {
		return nil, fmt.Errorf("%w: balance %s, debit %s", store.ErrInsufficientBalance, currentBalance.String(), params.Amount.Abs().String())
	}
	now := s.now()

	row := tx.QueryRowContext(ctx, queryInsertTransaction,
		uuid.New().String(), params.UserId, params.Type, params.Amount.String(), params.Description,
		currentBalance.String(), newBalance.String(), nullableString(params.ExternalRef), now)
	transaction, err := scanTransaction(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	result, err := tx.ExecContext(ctx, queryUpdateBalance, newBalance.String(), now, params.UserId, version)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}

	if err := s.addJournalEntries(ctx, tx, transaction); err != nil {
		return nil, fmt.Errorf("failed to add journal entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Transaction processed successfully",
		zap.String("transaction_id", transaction.Id),
		zap.String("user_id", params.UserId),
		zap.String("old_balance", currentBalance.String()),
		zap.String("new_balance", newBalance.String()))

	return transaction, nil
}

type journalEntry struct {
	accountType  string
	accountId    string
	debitAmount  decimal.Decimal
	creditAmount decimal.Decimal
}

// addJournalEntries creates the double-entry pair for a transaction:
// credits to the user are a debit on user_balance, debits the opposite.
func (s *SubledgerService) addJournalEntries(ctx context.Context, tx *sql.Tx, transaction *models.Transaction) error {
	counter := store.CounterAccount(transaction.Type)
	amount := transaction.Amount.Abs()
	userAccount := store.UserAccount(transaction.UserId)

	var entries []journalEntry
	if transaction.Amount.IsNegative() {
		entries = []journalEntry{
			{"user_balance", userAccount, decimal.Zero, amount},
			{"platform", counter, amount, decimal.Zero},
		}
	} else {
		entries = []journalEntry{
			{"user_balance", userAccount, amount, decimal.Zero},
			{"platform", counter, decimal.Zero, amount},
		}
	}

	for _, entry := range entries {
		_, err := tx.ExecContext(ctx, queryInsertJournalEntry,
			uuid.New().String(), transaction.Id, entry.accountType, entry.accountId,
			entry.debitAmount.String(), entry.creditAmount.String())
		if err != nil {
			return err
		}
	}
	return nil
}

// ListTransactions returns every transaction for a user ordered by creation time, oldest first
func (s *SubledgerService) ListTransactions(ctx context.Context, userId string) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, queryListTransactions, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return collectTransactions(rows)
}

// GetTransactionHistory returns paginated transaction history for a user, newest first
func (s *SubledgerService) GetTransactionHistory(ctx context.Context, userId string, limit, offset int) ([]models.Transaction, error) {
	zap.L().Debug("Getting transaction history",
		zap.String("user_id", userId),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, queryGetTransactionHistory, userId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	return collectTransactions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var t models.Transaction
	var amountStr, previousStr, newStr string
	var externalRef sql.NullString
	if err := row.Scan(&t.Id, &t.UserId, &t.Type, &amountStr, &t.Description,
		&previousStr, &newStr, &externalRef, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.ExternalRef = externalRef.String

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

func collectTransactions(rows *sql.Rows) ([]models.Transaction, error) {
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var transactions []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *t)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during transaction row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return transactions, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
