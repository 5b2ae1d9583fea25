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

package validation

import (
	"smsglobe-go/internal/models"

	"github.com/shopspring/decimal"
)

var (
	// DefaultTolerance is the smallest balance difference treated as real drift.
	DefaultTolerance = decimal.RequireFromString("0.01")

	largeTransactionLimit = decimal.NewFromInt(1000)
	highValuePriceLimit   = decimal.NewFromInt(100)
	lowBalanceThreshold   = decimal.NewFromInt(1)
)

// ValidateTransaction checks the shape of a ledger transaction and the sign
// its amount must carry for its kind.
func ValidateTransaction(rec Record) Result {
	return Validate(rec,
		String("userId"),
		String("type"),
		String("description"),
		Number("amount"),
		NonNegative("balanceAfter"),
		OneOf("type", models.TransactionTypes),
		SignMatchesType("type", "amount", models.IsCreditType, models.IsDebitType),
		WarnAbove("amount", largeTransactionLimit, "large transaction amount"),
	)
}

// TransactionRecord normalizes a stored transaction for ValidateTransaction.
func TransactionRecord(tx models.Transaction) Record {
	return Record{
		"userId":       tx.UserId,
		"type":         tx.Type,
		"amount":       tx.Amount,
		"description":  tx.Description,
		"balanceAfter": tx.NewBalance,
	}
}

// ValidateBalanceConsistency compares a stored balance with one recomputed
// from history.
func ValidateBalanceConsistency(profileBalance, calculatedBalance, tolerance decimal.Decimal) Result {
	rec := Record{"profileBalance": profileBalance, "calculatedBalance": calculatedBalance}
	return Validate(rec, func(_ Record, res *Result) {
		diff := profileBalance.Sub(calculatedBalance).Abs()
		if diff.GreaterThan(tolerance) {
			res.errorf("balance discrepancy: profile %s, calculated %s, difference %s",
				FormatAmount(profileBalance), FormatAmount(calculatedBalance), FormatAmount(diff))
		}
		if profileBalance.IsNegative() {
			res.errorf("profile balance is negative: %s", FormatAmount(profileBalance))
		}
		if calculatedBalance.IsNegative() {
			res.warnf("calculated balance is negative: %s", FormatAmount(calculatedBalance))
		}
	})
}

// PurchaseRecord builds the record ValidatePurchaseRequest expects.
// details may be nil.
func PurchaseRecord(userId, productId string, userBalance, productPrice decimal.Decimal, details Record) Record {
	rec := Record{
		"userId":       userId,
		"productId":    productId,
		"userBalance":  userBalance,
		"productPrice": productPrice,
	}
	if details != nil {
		rec["requestDetails"] = details
	}
	return rec
}

// ValidatePurchaseRequest checks that a user can afford a product and that
// the request carries nothing that would corrupt the stored order.
func ValidatePurchaseRequest(rec Record) Result {
	return Validate(rec,
		Identifier("userId"),
		Identifier("productId"),
		Positive("productPrice"),
		NonNegative("userBalance"),
		sufficientBalance("userBalance", "productPrice"),
		NoUndefined("requestDetails"),
		WarnAbove("productPrice", highValuePriceLimit, "high-value purchase"),
	)
}

func sufficientBalance(balanceField, priceField string) Check {
	return func(rec Record, res *Result) {
		balance, ok := AsDecimal(rec[balanceField])
		if !ok {
			return
		}
		price, ok := AsDecimal(rec[priceField])
		if !ok {
			return
		}
		if balance.LessThan(price) {
			res.errorf("insufficient balance: required %s, available %s",
				FormatAmount(price), FormatAmount(balance))
			return
		}
		if remaining := balance.Sub(price); remaining.LessThan(lowBalanceThreshold) {
			res.warnf("low balance after purchase: %s", FormatAmount(remaining))
		}
	}
}

// ValidateOrder checks a stored activation order.
func ValidateOrder(rec Record) Result {
	return Validate(rec,
		Identifier("userId"),
		Identifier("activationId"),
		Identifier("service"),
		Identifier("country"),
		Positive("price"),
		OneOf("status", models.ActivationStatuses),
		Identifier("status"),
	)
}

// OrderRecord normalizes an activation for ValidateOrder.
func OrderRecord(a models.Activation) Record {
	return Record{
		"userId":       a.UserId,
		"activationId": a.Id,
		"service":      a.Service,
		"country":      a.Country,
		"price":        a.Price,
		"status":       a.Status,
	}
}
