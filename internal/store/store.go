package store

import (
	"context"
	"errors"
	"time"

	"smsglobe-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared by all backends.
var (
	ErrDuplicateTransaction   = errors.New("duplicate transaction")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrUserNotFound           = errors.New("user not found")
	ErrActivationNotFound     = errors.New("activation not found")
	ErrActivationFinal        = errors.New("activation already in a final state")
	ErrInsufficientBalance    = errors.New("insufficient balance")
)

// ApplyTransactionParams describes a new balance movement. Amount is signed.
type ApplyTransactionParams struct {
	UserId      string
	Type        string
	Amount      decimal.Decimal
	Description string
	ExternalRef string // optional idempotency key
}

// StatusUpdate is the new state written onto a waiting activation.
type StatusUpdate struct {
	Status  string
	SmsCode *string
	SmsText *string
}

// counterAccounts maps a transaction kind to the platform account on the other side of the user balance.
var counterAccounts = map[string]string{
	models.TransactionDeposit:       "payments_received",
	models.TransactionReferralBonus: "marketing_expense",
	models.TransactionRefund:        "sales_refunds",
	models.TransactionPurchase:      "sales_revenue",
	models.TransactionWithdrawal:    "payouts",
}

// CounterAccount returns the platform account a transaction kind posts against.
func CounterAccount(txType string) string {
	if account, ok := counterAccounts[txType]; ok {
		return account
	}
	return "suspense"
}

// UserAccount is the journal account id of a user balance.
func UserAccount(userId string) string {
	return "user_" + userId
}

// LedgerStore defines the contract that every backend (SQLite, Postgres) must satisfy.
type LedgerStore interface {
	// --- Users ---
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, userId, name, email string) (*models.User, error)

	// --- Balances ---
	GetUserBalance(ctx context.Context, userId string) (decimal.Decimal, error)
	// SetBalance overwrites the stored balance and stamps updated_at and
	// balance_fixed_at. It performs no version check.
	SetBalance(ctx context.Context, userId string, balance decimal.Decimal, fixedAt time.Time) error

	// --- Transactions ---
	ApplyTransaction(ctx context.Context, params ApplyTransactionParams) (*models.Transaction, error)
	// ListTransactions returns every transaction of the user, oldest first.
	ListTransactions(ctx context.Context, userId string) ([]models.Transaction, error)
	GetTransactionHistory(ctx context.Context, userId string, limit, offset int) ([]models.Transaction, error)

	// --- Activations ---
	CreateActivation(ctx context.Context, activation models.Activation) (*models.Activation, error)
	GetActivation(ctx context.Context, userId, activationId string) (*models.Activation, error)
	// UpdateActivationStatus moves a waiting activation to a new state.
	// Returns ErrActivationFinal when the activation is already terminal.
	UpdateActivationStatus(ctx context.Context, userId, activationId string, update StatusUpdate) (*models.Activation, error)
	ListActivationsByStatus(ctx context.Context, status string, limit int) ([]models.Activation, error)
	ListUserActivations(ctx context.Context, userId string) ([]models.Activation, error)

	// --- Lifecycle ---
	Close()
}
