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
	"context"
	"database/sql"
	"fmt"
	"time"

	"smsglobe-go/internal/models"
	"smsglobe-go/internal/store"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.LedgerStore.
var _ store.LedgerStore = (*Service)(nil)

type Service struct {
	db        *sql.DB
	subledger *SubledgerService
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := newServiceWithDB(db)
	if err := service.initSchema(cfg.CreateDummyUsers); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	if err := service.subledger.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to initialize subledger schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func newServiceWithDB(db *sql.DB) *Service {
	return &Service{db: db, subledger: NewSubledgerService(db)}
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

const schema = `
	-- Users carry the stored balance the reconciliation pass verifies
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		balance TEXT NOT NULL DEFAULT '0',
		version INTEGER NOT NULL DEFAULT 1,
		active BOOLEAN NOT NULL DEFAULT 1,
		balance_fixed_at TIMESTAMP NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	CREATE INDEX IF NOT EXISTS idx_users_active ON users(active);

	-- Leased numbers and the verification code they received
	CREATE TABLE IF NOT EXISTS activations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		service TEXT NOT NULL,
		country TEXT NOT NULL,
		phone TEXT NOT NULL,
		price TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL DEFAULT 'waiting',
		sms_code TEXT NULL,
		sms_text TEXT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_activations_user ON activations(user_id);
	CREATE INDEX IF NOT EXISTS idx_activations_status ON activations(status);
	`

func (s *Service) initSchema(createDummyUsers bool) error {
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	if !createDummyUsers {
		zap.L().Info("Skipping dummy user creation (CREATE_DUMMY_USERS=false)")
		return nil
	}

	users := []struct {
		id    string
		name  string
		email string
	}{
		{uuid.New().String(), "Alice Johnson", "alice.johnson@example.com"},
		{uuid.New().String(), "Bob Smith", "bob.smith@example.com"},
		{uuid.New().String(), "Carol Williams", "carol.williams@example.com"},
	}

	now := time.Now().UTC()
	for _, user := range users {
		_, err := s.db.Exec(queryInsertUser, user.id, user.name, user.email, now, now)
		if err != nil {
			zap.L().Error("Failed to insert dummy user", zap.String("name", user.name), zap.Error(err))
		} else {
			zap.L().Info("Dummy user created", zap.String("id", user.id), zap.String("name", user.name))
		}
	}
	return nil
}

// Subledger convenience methods

func (s *Service) GetUserBalance(ctx context.Context, userId string) (decimal.Decimal, error) {
	return s.subledger.GetBalance(ctx, userId)
}

func (s *Service) SetBalance(ctx context.Context, userId string, balance decimal.Decimal, fixedAt time.Time) error {
	return s.subledger.SetBalance(ctx, userId, balance, fixedAt)
}

func (s *Service) ApplyTransaction(ctx context.Context, params store.ApplyTransactionParams) (*models.Transaction, error) {
	return s.subledger.ProcessTransaction(ctx, params)
}

func (s *Service) ListTransactions(ctx context.Context, userId string) ([]models.Transaction, error) {
	return s.subledger.ListTransactions(ctx, userId)
}

func (s *Service) GetTransactionHistory(ctx context.Context, userId string, limit, offset int) ([]models.Transaction, error) {
	return s.subledger.GetTransactionHistory(ctx, userId, limit, offset)
}
