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

package reconcile

import (
	"smsglobe-go/internal/models"

	"github.com/shopspring/decimal"
)

// Calculate recomputes a balance from transaction history.
//
// Credit kinds add |amount| and debit kinds subtract |amount|, so a
// wrong-signed record still moves the balance in the direction of its kind.
// Unknown kinds are skipped. raw is the unclamped running total; calculated
// is max(0, raw). The clamp is applied once, after the whole history.
func Calculate(txs []models.Transaction) (calculated, raw decimal.Decimal) {
	raw = decimal.Zero
	for _, tx := range txs {
		switch {
		case models.IsCreditType(tx.Type):
			raw = raw.Add(tx.Amount.Abs())
		case models.IsDebitType(tx.Type):
			raw = raw.Sub(tx.Amount.Abs())
		}
	}
	if raw.IsNegative() {
		return decimal.Zero, raw
	}
	return raw, raw
}
