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

package common

import (
	"context"
	"fmt"

	"smsglobe-go/internal/models"
	"smsglobe-go/internal/store"

	"go.uber.org/zap"
)

// InitializeUsers retrieves users based on an optional email filter.
// If emailFilter is provided, returns a single user with that email.
// If emailFilter is empty, returns all users.
func InitializeUsers(ctx context.Context, st store.LedgerStore, emailFilter string) ([]models.User, error) {
	if emailFilter != "" {
		zap.L().Info("Looking up user by email", zap.String("email", emailFilter))
		user, err := st.GetUserByEmail(ctx, emailFilter)
		if err != nil {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return []models.User{*user}, nil
	}

	users, err := st.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	zap.L().Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

// ResolveUser finds a user by id, falling back to email.
func ResolveUser(ctx context.Context, st store.LedgerStore, idOrEmail string) (*models.User, error) {
	user, err := st.GetUserById(ctx, idOrEmail)
	if err == nil {
		return user, nil
	}
	user, emailErr := st.GetUserByEmail(ctx, idOrEmail)
	if emailErr != nil {
		return nil, err
	}
	return user, nil
}
