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

package activation

import (
	"context"
	"errors"
	"fmt"

	"smsglobe-go/internal/gateway"
	"smsglobe-go/internal/metrics"
	"smsglobe-go/internal/models"
	"smsglobe-go/internal/store"
	"smsglobe-go/internal/validation"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Gateway is the upstream SMS service.
type Gateway interface {
	GetNumber(ctx context.Context, service, country string) (*gateway.Number, error)
	GetStatus(ctx context.Context, activationId string) (string, error)
	SetStatus(ctx context.Context, activationId string, status int) (string, error)
}

// Store is the part of the ledger activations need.
type Store interface {
	GetUserBalance(ctx context.Context, userId string) (decimal.Decimal, error)
	ApplyTransaction(ctx context.Context, params store.ApplyTransactionParams) (*models.Transaction, error)
	CreateActivation(ctx context.Context, activation models.Activation) (*models.Activation, error)
	GetActivation(ctx context.Context, userId, activationId string) (*models.Activation, error)
	UpdateActivationStatus(ctx context.Context, userId, activationId string, update store.StatusUpdate) (*models.Activation, error)
}

// Pricer quotes the sale price of a number for service in country.
type Pricer interface {
	Price(ctx context.Context, service, country string) (decimal.Decimal, error)
}

type Service struct {
	store   Store
	gateway Gateway
	pricer  Pricer
	metrics *metrics.Metrics
}

func NewService(st Store, gw Gateway, pricer Pricer, m *metrics.Metrics) *Service {
	return &Service{store: st, gateway: gw, pricer: pricer, metrics: m}
}

// Purchase leases a number, charges the user and stores the activation as waiting.
func (s *Service) Purchase(ctx context.Context, userId, service, country string) (*models.Activation, error) {
	price, err := s.pricer.Price(ctx, service, country)
	if err != nil {
		return nil, fmt.Errorf("unable to price %s/%s: %w", service, country, err)
	}

	balance, err := s.store.GetUserBalance(ctx, userId)
	if err != nil {
		return nil, err
	}

	check := validation.ValidatePurchaseRequest(validation.PurchaseRecord(
		userId, service+":"+country, balance, price,
		validation.Record{"service": service, "country": country},
	))
	for _, w := range check.Warnings {
		zap.L().Warn("Purchase warning", zap.String("user_id", userId), zap.String("warning", w))
	}
	if err := check.Err(); err != nil {
		return nil, err
	}

	number, err := s.gateway.GetNumber(ctx, service, country)
	if err != nil {
		return nil, fmt.Errorf("unable to lease number: %w", err)
	}

	_, err = s.store.ApplyTransaction(ctx, store.ApplyTransactionParams{
		UserId:      userId,
		Type:        models.TransactionPurchase,
		Amount:      price.Neg(),
		Description: fmt.Sprintf("Number for %s (%s)", service, country),
		ExternalRef: "purchase-" + number.ActivationId,
	})
	if err != nil {
		s.releaseNumber(ctx, number.ActivationId)
		return nil, fmt.Errorf("unable to charge user: %w", err)
	}

	activation, err := s.store.CreateActivation(ctx, models.Activation{
		Id:      number.ActivationId,
		UserId:  userId,
		Service: service,
		Country: country,
		Phone:   number.Phone,
		Price:   price,
		Status:  models.ActivationWaiting,
	})
	if err != nil {
		s.releaseNumber(ctx, number.ActivationId)
		s.reverseCharge(ctx, userId, number.ActivationId, price)
		return nil, fmt.Errorf("unable to store activation: %w", err)
	}

	if order := validation.ValidateOrder(validation.OrderRecord(*activation)); !order.IsValid {
		zap.L().Error("Stored activation failed order validation",
			zap.String("activation_id", activation.Id),
			zap.Strings("errors", order.Errors))
	}
	s.metrics.ObserveTransition(activation.Status)
	return activation, nil
}

// releaseNumber hands an unpaid number back to the upstream.
func (s *Service) releaseNumber(ctx context.Context, activationId string) {
	if _, err := s.gateway.SetStatus(ctx, activationId, gateway.StatusCancel); err != nil {
		zap.L().Warn("Failed to release unpaid number", zap.String("activation_id", activationId), zap.Error(err))
	}
}

// reverseCharge refunds a purchase whose activation could not be stored.
func (s *Service) reverseCharge(ctx context.Context, userId, activationId string, price decimal.Decimal) {
	_, err := s.store.ApplyTransaction(ctx, store.ApplyTransactionParams{
		UserId:      userId,
		Type:        models.TransactionRefund,
		Amount:      price,
		Description: fmt.Sprintf("Refund for unstored activation %s", activationId),
		ExternalRef: "refund-" + activationId,
	})
	if err != nil && !errors.Is(err, store.ErrDuplicateTransaction) {
		s.metrics.IncError("refund")
		zap.L().Error("Failed to reverse purchase charge",
			zap.String("activation_id", activationId),
			zap.String("user_id", userId),
			zap.Error(err))
	}
}

// Refresh asks the upstream for the current status of a waiting activation
// and persists it when it changed. Terminal activations are returned as is.
func (s *Service) Refresh(ctx context.Context, userId, activationId string) (*models.Activation, error) {
	current, err := s.store.GetActivation(ctx, userId, activationId)
	if err != nil {
		return nil, err
	}
	if models.IsTerminalStatus(current.Status) {
		return current, nil
	}

	line, err := s.gateway.GetStatus(ctx, activationId)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch status: %w", err)
	}

	status := ParseStatus(line)
	if status.Status == current.Status {
		return current, nil
	}

	updated, err := s.store.UpdateActivationStatus(ctx, userId, activationId, store.StatusUpdate{
		Status:  status.Status,
		SmsCode: status.SmsCode,
		SmsText: status.SmsText,
	})
	if errors.Is(err, store.ErrActivationFinal) {
		// someone else finished it first
		return updated, nil
	}
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveTransition(updated.Status)

	if updated.Status == models.ActivationCancelled {
		if err := s.refund(ctx, updated); err != nil {
			return updated, err
		}
	}
	return updated, nil
}

// Cancel signals the upstream and marks the activation cancelled whatever
// the upstream answered. The response body is logged only.
func (s *Service) Cancel(ctx context.Context, userId, activationId string) (*models.Activation, error) {
	current, err := s.store.GetActivation(ctx, userId, activationId)
	if err != nil {
		return nil, err
	}
	if models.IsTerminalStatus(current.Status) {
		return current, fmt.Errorf("%w: %s is %s", store.ErrActivationFinal, activationId, current.Status)
	}

	body, err := s.gateway.SetStatus(ctx, activationId, gateway.StatusCancel)
	if err != nil {
		zap.L().Warn("Upstream cancel request failed",
			zap.String("activation_id", activationId),
			zap.Error(err))
	} else {
		zap.L().Info("Upstream cancel response",
			zap.String("activation_id", activationId),
			zap.String("body", body))
	}

	updated, err := s.store.UpdateActivationStatus(ctx, userId, activationId, store.StatusUpdate{
		Status: models.ActivationCancelled,
	})
	if err != nil {
		return updated, err
	}
	s.metrics.ObserveTransition(updated.Status)

	if err := s.refund(ctx, updated); err != nil {
		return updated, err
	}
	return updated, nil
}

// refund returns the price of a cancelled activation once.
func (s *Service) refund(ctx context.Context, a *models.Activation) error {
	if !a.Price.IsPositive() {
		return nil
	}

	_, err := s.store.ApplyTransaction(ctx, store.ApplyTransactionParams{
		UserId:      a.UserId,
		Type:        models.TransactionRefund,
		Amount:      a.Price,
		Description: fmt.Sprintf("Refund for cancelled number %s", a.Phone),
		ExternalRef: "refund-" + a.Id,
	})
	if errors.Is(err, store.ErrDuplicateTransaction) {
		zap.L().Info("Refund already recorded", zap.String("activation_id", a.Id))
		return nil
	}
	if err != nil {
		s.metrics.IncError("refund")
		zap.L().Error("Failed to refund cancelled activation",
			zap.String("activation_id", a.Id),
			zap.String("user_id", a.UserId),
			zap.Error(err))
		return fmt.Errorf("activation cancelled but refund failed: %w", err)
	}
	return nil
}
