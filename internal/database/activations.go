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
	"errors"
	"fmt"

	"smsglobe-go/internal/models"
	"smsglobe-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) CreateActivation(ctx context.Context, activation models.Activation) (*models.Activation, error) {
	if activation.Id == "" || activation.UserId == "" {
		return nil, fmt.Errorf("activation id and user id are required")
	}
	if activation.Status == "" {
		activation.Status = models.ActivationWaiting
	}
	now := s.subledger.now()

	_, err := s.db.ExecContext(ctx, queryInsertActivation,
		activation.Id, activation.UserId, activation.Service, activation.Country, activation.Phone,
		activation.Price.String(), activation.Status, now, now)
	if err != nil {
		zap.L().Error("Failed to insert activation",
			zap.String("activation_id", activation.Id),
			zap.String("user_id", activation.UserId),
			zap.Error(err))
		return nil, fmt.Errorf("unable to insert activation: %w", err)
	}

	zap.L().Info("Activation stored",
		zap.String("activation_id", activation.Id),
		zap.String("user_id", activation.UserId),
		zap.String("service", activation.Service),
		zap.String("phone", activation.Phone))
	return s.GetActivation(ctx, activation.UserId, activation.Id)
}

func (s *Service) GetActivation(ctx context.Context, userId, activationId string) (*models.Activation, error) {
	activation, err := scanActivation(s.db.QueryRowContext(ctx, queryGetActivation, activationId, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrActivationNotFound, activationId)
		}
		return nil, fmt.Errorf("unable to query activation: %w", err)
	}
	return activation, nil
}

func (s *Service) UpdateActivationStatus(ctx context.Context, userId, activationId string, update store.StatusUpdate) (*models.Activation, error) {
	result, err := s.db.ExecContext(ctx, queryUpdateActivationStatus,
		update.Status, update.SmsCode, update.SmsText, s.subledger.now(), activationId, userId)
	if err != nil {
		return nil, fmt.Errorf("unable to update activation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("unable to get rows affected: %w", err)
	}

	current, err := s.GetActivation(ctx, userId, activationId)
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return current, fmt.Errorf("%w: %s is %s", store.ErrActivationFinal, activationId, current.Status)
	}

	zap.L().Info("Activation status updated",
		zap.String("activation_id", activationId),
		zap.String("user_id", userId),
		zap.String("status", update.Status))
	return current, nil
}

func (s *Service) ListActivationsByStatus(ctx context.Context, status string, limit int) ([]models.Activation, error) {
	rows, err := s.db.QueryContext(ctx, queryListActivationsByStatus, status, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to list activations: %w", err)
	}
	return collectActivations(rows)
}

func (s *Service) ListUserActivations(ctx context.Context, userId string) ([]models.Activation, error) {
	rows, err := s.db.QueryContext(ctx, queryListUserActivations, userId)
	if err != nil {
		return nil, fmt.Errorf("unable to list user activations: %w", err)
	}
	return collectActivations(rows)
}

func scanActivation(row rowScanner) (*models.Activation, error) {
	var a models.Activation
	var priceStr string
	var code, text sql.NullString
	if err := row.Scan(&a.Id, &a.UserId, &a.Service, &a.Country, &a.Phone, &priceStr,
		&a.Status, &code, &text, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price '%s': %w", priceStr, err)
	}
	a.Price = price
	if code.Valid {
		a.SmsCode = &code.String
	}
	if text.Valid {
		a.SmsText = &text.String
	}
	return &a, nil
}

func collectActivations(rows *sql.Rows) ([]models.Activation, error) {
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

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
