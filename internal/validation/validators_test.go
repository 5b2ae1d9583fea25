package validation

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"smsglobe-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestValidateTransaction(t *testing.T) {
	tests := []struct {
		name         string
		rec          Record
		wantValid    bool
		wantErrors   []string
		wantWarnings []string
	}{
		{
			name:      "valid purchase",
			rec:       Record{"userId": "u1", "type": "purchase", "amount": dec("-2.5"), "description": "tg number"},
			wantValid: true,
		},
		{
			name:       "purchase with positive amount",
			rec:        Record{"userId": "u1", "type": "purchase", "amount": dec("2.5"), "description": ""},
			wantErrors: []string{"purchase amount must be negative, got 2.5"},
		},
		{
			name:       "deposit with negative amount",
			rec:        Record{"userId": "u1", "type": "deposit", "amount": -10, "description": ""},
			wantErrors: []string{"deposit amount must be positive, got -10"},
		},
		{
			name:       "zero refund",
			rec:        Record{"userId": "u1", "type": "refund", "amount": 0.0, "description": ""},
			wantErrors: []string{"refund amount must be positive, got 0"},
		},
		{
			name:       "unknown type",
			rec:        Record{"userId": "u1", "type": "gift", "amount": 5, "description": ""},
			wantErrors: []string{`invalid type: "gift"`},
		},
		{
			name: "wrong shapes",
			rec:  Record{"userId": 42, "type": nil, "amount": "10", "description": false},
			wantErrors: []string{
				"userId must be a string",
				"type must be a string",
				"description must be a string",
				"amount must be a number",
			},
		},
		{
			name:       "negative balance after",
			rec:        Record{"userId": "u1", "type": "withdrawal", "amount": -5, "description": "", "balanceAfter": dec("-1")},
			wantErrors: []string{"balanceAfter cannot be negative"},
		},
		{
			name:       "NaN is not a number",
			rec:        Record{"userId": "u1", "type": "deposit", "amount": math.NaN(), "description": ""},
			wantErrors: []string{"amount must be a number"},
		},
		{
			name:         "large deposit only warns",
			rec:          Record{"userId": "u1", "type": "deposit", "amount": json.Number("1500"), "description": ""},
			wantValid:    true,
			wantWarnings: []string{"large transaction amount: $1500.00"},
		},
		{
			name:      "exactly 1000 does not warn",
			rec:       Record{"userId": "u1", "type": "withdrawal", "amount": dec("-1000"), "description": ""},
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateTransaction(tt.rec)
			assert.Equal(t, tt.wantValid, res.IsValid)
			if tt.wantErrors == nil {
				assert.Empty(t, res.Errors)
			} else {
				assert.Equal(t, tt.wantErrors, res.Errors)
			}
			if tt.wantWarnings == nil {
				assert.Empty(t, res.Warnings)
			} else {
				assert.Equal(t, tt.wantWarnings, res.Warnings)
			}
		})
	}
}

func TestValidateTransaction_SignInvariantForAllAmounts(t *testing.T) {
	for _, a := range []string{"0.01", "1", "19.99", "999"} {
		amount := dec(a)
		assert.True(t, ValidateTransaction(Record{
			"userId": "u1", "type": models.TransactionPurchase, "amount": amount.Neg(), "description": "",
		}).IsValid, "purchase of -%s should be valid", a)
		assert.False(t, ValidateTransaction(Record{
			"userId": "u1", "type": models.TransactionPurchase, "amount": amount, "description": "",
		}).IsValid, "purchase of +%s should be invalid", a)
	}
}

func TestTransactionRecord(t *testing.T) {
	tx := models.Transaction{
		Id:          "t1",
		UserId:      "u1",
		Type:        models.TransactionRefund,
		Amount:      dec("3"),
		Description: "refund",
		NewBalance:  dec("-1"),
		CreatedAt:   time.Now(),
	}

	res := ValidateTransaction(TransactionRecord(tx))
	assert.False(t, res.IsValid)
	assert.Equal(t, []string{"balanceAfter cannot be negative"}, res.Errors)
}

func TestValidateBalanceConsistency(t *testing.T) {
	t.Run("within tolerance", func(t *testing.T) {
		res := ValidateBalanceConsistency(dec("40.005"), dec("40"), DefaultTolerance)
		assert.True(t, res.IsValid)
		assert.Empty(t, res.Warnings)
	})

	t.Run("exactly tolerance is not drift", func(t *testing.T) {
		res := ValidateBalanceConsistency(dec("40.01"), dec("40"), DefaultTolerance)
		assert.True(t, res.IsValid)
	})

	t.Run("drift", func(t *testing.T) {
		res := ValidateBalanceConsistency(dec("30"), dec("40"), DefaultTolerance)
		assert.False(t, res.IsValid)
		assert.Equal(t, []string{"balance discrepancy: profile $30.00, calculated $40.00, difference $10.00"}, res.Errors)
	})

	t.Run("negative profile", func(t *testing.T) {
		res := ValidateBalanceConsistency(dec("-5"), dec("-5"), DefaultTolerance)
		assert.False(t, res.IsValid)
		assert.Equal(t, []string{"profile balance is negative: -$5.00"}, res.Errors)
		assert.Equal(t, []string{"calculated balance is negative: -$5.00"}, res.Warnings)
	})

	t.Run("negative calculated only warns", func(t *testing.T) {
		res := ValidateBalanceConsistency(dec("0"), dec("-0.005"), DefaultTolerance)
		assert.True(t, res.IsValid)
		assert.Len(t, res.Warnings, 1)
	})
}

func TestValidatePurchaseRequest(t *testing.T) {
	t.Run("insufficient balance shows both amounts", func(t *testing.T) {
		res := ValidatePurchaseRequest(PurchaseRecord("u1", "tg:6", dec("5"), dec("10"), nil))
		require.False(t, res.IsValid)
		assert.Contains(t, res.Errors, "insufficient balance: required $10.00, available $5.00")
	})

	t.Run("valid with low remaining balance", func(t *testing.T) {
		res := ValidatePurchaseRequest(PurchaseRecord("u1", "tg:6", dec("10.50"), dec("10"), nil))
		assert.True(t, res.IsValid)
		assert.Equal(t, []string{"low balance after purchase: $0.50"}, res.Warnings)
	})

	t.Run("high value", func(t *testing.T) {
		res := ValidatePurchaseRequest(PurchaseRecord("u1", "esim:us", dec("500"), dec("150"), nil))
		assert.True(t, res.IsValid)
		assert.Equal(t, []string{"high-value purchase: $150.00"}, res.Warnings)
	})

	t.Run("missing identifiers and bad amounts", func(t *testing.T) {
		res := ValidatePurchaseRequest(Record{
			"userId":       "",
			"productId":    7,
			"userBalance":  dec("-1"),
			"productPrice": dec("0"),
		})
		assert.False(t, res.IsValid)
		assert.Contains(t, res.Errors, "userId is required")
		assert.Contains(t, res.Errors, "productId must be a string")
		assert.Contains(t, res.Errors, "productPrice must be positive")
		assert.Contains(t, res.Errors, "userBalance cannot be negative")
	})

	t.Run("undefined fields reported by path", func(t *testing.T) {
		details := Record{
			"note": Undefined,
			"meta": map[string]any{
				"ref":   "abc",
				"promo": Undefined,
			},
			"items": []any{
				map[string]any{"name": Undefined, "qty": 1},
				"ok",
			},
		}
		res := ValidatePurchaseRequest(PurchaseRecord("u1", "tg:6", dec("20"), dec("1"), details))
		assert.False(t, res.IsValid)
		assert.Equal(t, []string{
			"requestDetails.items.0.name is undefined",
			"requestDetails.meta.promo is undefined",
			"requestDetails.note is undefined",
		}, res.Errors)
	})
}

func TestValidateOrder(t *testing.T) {
	order := models.Activation{
		Id:      "1001",
		UserId:  "u1",
		Service: "tg",
		Country: "6",
		Price:   dec("0.35"),
		Status:  models.ActivationWaiting,
	}
	assert.True(t, ValidateOrder(OrderRecord(order)).IsValid)

	order.Status = "refunded"
	order.Price = decimal.Zero
	res := ValidateOrder(OrderRecord(order))
	assert.False(t, res.IsValid)
	assert.Equal(t, []string{"price must be positive", `invalid status: "refunded"`}, res.Errors)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$10.00", FormatAmount(dec("10")))
	assert.Equal(t, "$0.35", FormatAmount(dec("0.345")))
	assert.Equal(t, "-$2.50", FormatAmount(dec("-2.5")))
}

func TestResultErr(t *testing.T) {
	assert.NoError(t, ValidateOrder(Record{
		"userId": "u1", "activationId": "1", "service": "tg", "country": "6",
		"price": dec("1"), "status": models.ActivationWaiting,
	}).Err())

	err := ValidatePurchaseRequest(PurchaseRecord("u1", "tg:6", dec("5"), dec("10"), nil)).Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.EqualError(t, err, "validation failed: insufficient balance: required $10.00, available $5.00")
}
