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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserBalance is the balance view returned to API callers
type UserBalance struct {
	UserId         string          `json:"user_id"`
	Balance        decimal.Decimal `json:"balance"`
	BalanceFixedAt *time.Time      `json:"balance_fixed_at,omitempty"`
}

// TransactionRecord represents a transaction in the user's history
type TransactionRecord struct {
	Id           string          `json:"id"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ActivationView is the activation state shown to the dashboard.
// SmsCode and SmsText are only present once the activation completed.
type ActivationView struct {
	Id      string          `json:"activation_id"`
	Status  string          `json:"status"`
	Phone   string          `json:"phone,omitempty"`
	Price   decimal.Decimal `json:"price"`
	SmsCode *string         `json:"sms_code"`
	SmsText *string         `json:"sms_text"`
}

// NewActivationView builds the API view of an activation.
func NewActivationView(a *Activation) ActivationView {
	return ActivationView{
		Id:      a.Id,
		Status:  a.Status,
		Phone:   a.Phone,
		Price:   a.Price,
		SmsCode: a.SmsCode,
		SmsText: a.SmsText,
	}
}
