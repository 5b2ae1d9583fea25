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

package database

const (
	// User queries
	queryGetActiveUsers = `
		SELECT id, name, email, balance, version, balance_fixed_at, created_at, updated_at
		FROM users
		WHERE active = 1
		ORDER BY created_at, rowid`

	queryInsertUser = `
		INSERT OR IGNORE INTO users (id, name, email, balance, version, created_at, updated_at)
		VALUES (?, ?, ?, '0', 1, ?, ?)`

	queryGetUserById = `
		SELECT id, name, email, balance, version, balance_fixed_at, created_at, updated_at
		FROM users
		WHERE id = ? AND active = 1`

	queryGetUserByEmail = `
		SELECT id, name, email, balance, version, balance_fixed_at, created_at, updated_at
		FROM users
		WHERE email = ? AND active = 1`

	// Balance queries
	queryGetBalance = `
		SELECT balance
		FROM users
		WHERE id = ?`

	queryGetBalanceForUpdate = `
		SELECT balance, version
		FROM users
		WHERE id = ? AND active = 1`

	queryUpdateBalance = `
		UPDATE users
		SET balance = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	querySetBalance = `
		UPDATE users
		SET balance = ?, version = version + 1, updated_at = ?, balance_fixed_at = ?
		WHERE id = ?`

	// Transaction queries
	queryCheckDuplicateTransaction = `
		SELECT id FROM transactions WHERE external_ref = ? LIMIT 1`

	queryInsertTransaction = `
		INSERT INTO transactions (
			id, user_id, type, amount, description, previous_balance, new_balance, external_ref, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, user_id, type, amount, description, previous_balance, new_balance, external_ref, created_at`

	queryInsertJournalEntry = `
		INSERT INTO journal_entries (id, transaction_id, account_type, account_id, debit_amount, credit_amount)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryListTransactions = `
		SELECT id, user_id, type, amount, description, previous_balance, new_balance, external_ref, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY created_at ASC, rowid ASC`

	queryGetTransactionHistory = `
		SELECT id, user_id, type, amount, description, previous_balance, new_balance, external_ref, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	// Activation queries
	queryInsertActivation = `
		INSERT INTO activations (id, user_id, service, country, phone, price, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetActivation = `
		SELECT id, user_id, service, country, phone, price, status, sms_code, sms_text, created_at, updated_at
		FROM activations
		WHERE id = ? AND user_id = ?`

	queryUpdateActivationStatus = `
		UPDATE activations
		SET status = ?, sms_code = ?, sms_text = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND status = 'waiting'`

	queryListActivationsByStatus = `
		SELECT id, user_id, service, country, phone, price, status, sms_code, sms_text, created_at, updated_at
		FROM activations
		WHERE status = ?
		ORDER BY created_at ASC
		LIMIT ?`

	queryListUserActivations = `
		SELECT id, user_id, service, country, phone, price, status, sms_code, sms_text, created_at, updated_at
		FROM activations
		WHERE user_id = ?
		ORDER BY created_at DESC`
)
