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

import (
	"database/sql"
	"time"
)

// SubledgerService handles balance and transaction operations
type SubledgerService struct {
	db  *sql.DB
	now func() time.Time
}

func NewSubledgerService(db *sql.DB) *SubledgerService {
	return &SubledgerService{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *SubledgerService) InitSchema() error {
	schema := `
	-- Transactions Table (Audit Trail - immutable)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		amount TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		previous_balance TEXT NOT NULL,
		new_balance TEXT NOT NULL,
		external_ref TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_user_created ON transactions(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_external_ref ON transactions(external_ref);
	CREATE INDEX IF NOT EXISTS idx_transactions_type ON transactions(type);

	-- Double-entry journal for every applied transaction
	CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL,
		account_type TEXT NOT NULL,
		account_id TEXT NOT NULL,
		debit_amount TEXT DEFAULT '0',
		credit_amount TEXT DEFAULT '0',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_journal_transaction_id ON journal_entries(transaction_id);
	CREATE INDEX IF NOT EXISTS idx_journal_account ON journal_entries(account_type, account_id);
	`

	_, err := s.db.Exec(schema)
	return err
}
