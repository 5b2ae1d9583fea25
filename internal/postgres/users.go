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

package postgres

import (
	"context"
	"errors"
	"fmt"

	"smsglobe-go/internal/models"
	"smsglobe-go/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const userColumns = `id, name, email, balance::text, version, balance_fixed_at, created_at, updated_at`

func (s *Store) GetUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE active ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("unable to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan user row: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	zap.L().Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

func (s *Store) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 AND active`, userId))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query user by ID: %w", err)
	}
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 AND active`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, email)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query user by email: %w", err)
	}
	return user, nil
}

func (s *Store) CreateUser(ctx context.Context, userId, name, email string) (*models.User, error) {
	now := s.now()
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, balance, version, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 1, $4, $4)
		ON CONFLICT DO NOTHING`, userId, name, email, now)
	if err != nil {
		return nil, fmt.Errorf("unable to insert user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("user with email %s already exists", email)
	}

	zap.L().Info("User created successfully", zap.String("id", userId), zap.String("email", email))
	return s.GetUserById(ctx, userId)
}

func (s *Store) GetUserBalance(ctx context.Context, userId string) (decimal.Decimal, error) {
	var balanceStr string
	err := s.pool.QueryRow(ctx, `SELECT balance::text FROM users WHERE id = $1`, userId).Scan(&balanceStr)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	return decimal.NewFromString(balanceStr)
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	var balanceStr string
	if err := row.Scan(&user.Id, &user.Name, &user.Email, &balanceStr, &user.Version,
		&user.BalanceFixedAt, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance '%s': %w", balanceStr, err)
	}
	user.Balance = balance
	return &user, nil
}
