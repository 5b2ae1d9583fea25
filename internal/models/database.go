package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction kinds recognised by the ledger.
const (
	TransactionDeposit       = "deposit"
	TransactionWithdrawal    = "withdrawal"
	TransactionPurchase      = "purchase"
	TransactionRefund        = "refund"
	TransactionReferralBonus = "referral_bonus"
)

// TransactionTypes lists every recognised transaction kind.
var TransactionTypes = []string{
	TransactionDeposit,
	TransactionWithdrawal,
	TransactionPurchase,
	TransactionRefund,
	TransactionReferralBonus,
}

// IsCreditType reports whether transactions of this kind add to the balance.
func IsCreditType(txType string) bool {
	switch txType {
	case TransactionDeposit, TransactionReferralBonus, TransactionRefund:
		return true
	}
	return false
}

// IsDebitType reports whether transactions of this kind subtract from the balance.
func IsDebitType(txType string) bool {
	switch txType {
	case TransactionPurchase, TransactionWithdrawal:
		return true
	}
	return false
}

// User is a storefront customer profile with its stored balance
type User struct {
	Id             string          `db:"id"`
	Name           string          `db:"name"`
	Email          string          `db:"email"`
	Balance        decimal.Decimal `db:"balance"`
	Version        int64           `db:"version"`
	BalanceFixedAt *time.Time      `db:"balance_fixed_at"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// Transaction is an immutable balance movement. Amount is signed.
type Transaction struct {
	Id              string          `db:"id"`
	UserId          string          `db:"user_id"`
	Type            string          `db:"type"`
	Amount          decimal.Decimal `db:"amount"`
	Description     string          `db:"description"`
	PreviousBalance decimal.Decimal `db:"previous_balance"`
	NewBalance      decimal.Decimal `db:"new_balance"`
	ExternalRef     string          `db:"external_ref"`
	CreatedAt       time.Time       `db:"created_at"`
}

// Activation statuses.
const (
	ActivationWaiting   = "waiting"
	ActivationCompleted = "completed"
	ActivationCancelled = "cancelled"
)

// ActivationStatuses lists every activation status.
var ActivationStatuses = []string{ActivationWaiting, ActivationCompleted, ActivationCancelled}

// IsTerminalStatus reports whether an activation in this status can no longer change.
func IsTerminalStatus(status string) bool {
	return status == ActivationCompleted || status == ActivationCancelled
}

// Activation is a leased virtual number waiting for (or holding) a verification code
type Activation struct {
	Id        string          `db:"id"`
	UserId    string          `db:"user_id"`
	Service   string          `db:"service"`
	Country   string          `db:"country"`
	Phone     string          `db:"phone"`
	Price     decimal.Decimal `db:"price"`
	Status    string          `db:"status"`
	SmsCode   *string         `db:"sms_code"`
	SmsText   *string         `db:"sms_text"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}
