package store

import (
	"errors"
	"fmt"
	"testing"
)

// Compile-time checks that the interface is importable and usable.
func TestLedgerStoreInterfaceExists(t *testing.T) {
	_ = ApplyTransactionParams{}
	_ = StatusUpdate{}

	var _ LedgerStore
}

func TestSentinelErrorsWrap(t *testing.T) {
	sentinels := []error{
		ErrDuplicateTransaction,
		ErrConcurrentModification,
		ErrUserNotFound,
		ErrActivationNotFound,
		ErrActivationFinal,
		ErrInsufficientBalance,
	}
	for _, sentinel := range sentinels {
		wrapped := fmt.Errorf("context: %w", sentinel)
		if !errors.Is(wrapped, sentinel) {
			t.Errorf("Expected wrapped error to match %v", sentinel)
		}
	}
}

func TestCounterAccount(t *testing.T) {
	tests := map[string]string{
		"deposit":        "payments_received",
		"purchase":       "sales_revenue",
		"refund":         "sales_refunds",
		"withdrawal":     "payouts",
		"referral_bonus": "marketing_expense",
		"mystery":        "suspense",
	}
	for txType, want := range tests {
		if got := CounterAccount(txType); got != want {
			t.Errorf("CounterAccount(%q) = %q, want %q", txType, got, want)
		}
	}
	if got := UserAccount("u1"); got != "user_u1" {
		t.Errorf("UserAccount = %q", got)
	}
}
