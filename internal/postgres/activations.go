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

const activationColumns = `id, user_id, service, country, phone, price::text, status, sms_code, sms_text, created_at, updated_at`

func (s *Store) CreateActivation(ctx context.Context, activation models.Activation) (*models.Activation, error) {
	if activation.Id == "" || activation.UserId == "" {
		return nil, fmt.Errorf("activation id and user id are required")
	}
	if activation.Status == "" {
		activation.Status = models.ActivationWaiting
	}
	now := s.now()

	created, err := scanActivation(s.pool.QueryRow(ctx, `
		INSERT INTO activations (id, user_id, service, country, phone, price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $8)
		RETURNING `+activationColumns,
		activation.Id, activation.UserId, activation.Service, activation.Country, activation.Phone,
		activation.Price.String(), activation.Status, now))
	if err != nil {
		return nil, fmt.Errorf("unable to insert activation: %w", err)
	}

	zap.L().Info("Activation stored",
		zap.String("activation_id", created.Id),
		zap.String("user_id", created.UserId),
		zap.String("service", created.Service))
	return created, nil
}

func (s *Store) GetActivation(ctx context.Context, userId, activationId string) (*models.Activation, error) {
	activation, err := scanActivation(s.pool.QueryRow(ctx,
		`SELECT `+activationColumns+` FROM activations WHERE id = $1 AND user_id = $2`, activationId, userId))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrActivationNotFound, activationId)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query activation: %w", err)
	}
	return activation, nil
}

func (s *Store) UpdateActivationStatus(ctx context.Context, userId, activationId string, update store.StatusUpdate) (*models.Activation, error) {
	updated, err := scanActivation(s.pool.QueryRow(ctx, `
		UPDATE activations
		SET status = $1, sms_code = $2, sms_text = $3, updated_at = $4
		WHERE id = $5 AND user_id = $6 AND status = 'waiting'
		RETURNING `+activationColumns,
		update.Status, update.SmsCode, update.SmsText, s.now(), activationId, userId))
	if errors.Is(err, pgx.ErrNoRows) {
		current, getErr := s.GetActivation(ctx, userId, activationId)
		if getErr != nil {
			return nil, getErr
		}
		return current, fmt.Errorf("%w: %s is %s", store.ErrActivationFinal, activationId, current.Status)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to update activation: %w", err)
	}

	zap.L().Info("Activation status updated",
		zap.String("activation_id", activationId),
		zap.String("status", update.Status))
	return updated, nil
}

func (s *Store) ListActivationsByStatus(ctx context.Context, status string, limit int) ([]models.Activation, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+activationColumns+`
		FROM activations WHERE status = $1 ORDER BY created_at ASC LIMIT $2`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to list activations: %w", err)
	}
	return collectActivations(rows)
}

func (s *Store) ListUserActivations(ctx context.Context, userId string) ([]models.Activation, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+activationColumns+`
		FROM activations WHERE user_id = $1 ORDER BY created_at DESC`, userId)
	if err != nil {
		return nil, fmt.Errorf("unable to list user activations: %w", err)
	}
	return collectActivations(rows)
}

func scanActivation(row pgx.Row) (*models.Activation, error) {
	var a models.Activation
	var priceStr string
	if err := row.Scan(&a.Id, &a.UserId, &a.Service, &a.Country, &a.Phone, &priceStr,
		&a.Status, &a.SmsCode, &a.SmsText, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price '%s': %w", priceStr, err)
	}
	a.Price = price
	return &a, nil
}

func collectActivations(rows pgx.Rows) ([]models.Activation, error) {
	defer rows.Close()

	var activations []models.Activation
	for rows.Next() {
		a, err := scanActivation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activation: %w", err)
		}
		activations = append(activations, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activation rows: %w", err)
	}
	return activations, nil
}
