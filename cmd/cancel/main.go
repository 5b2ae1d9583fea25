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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"smsglobe-go/internal/common"
	"smsglobe-go/internal/config"
	"smsglobe-go/internal/store"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.String("user", "", "User id or email (required)")
	idFlag := flag.String("id", "", "Activation id (required)")
	flag.Parse()

	if *userFlag == "" || *idFlag == "" {
		zap.L().Fatal("Flags --user and --id are required")
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	user, err := common.ResolveUser(ctx, services.Store, *userFlag)
	if err != nil {
		zap.L().Fatal("User not found", zap.String("user", *userFlag), zap.Error(err))
	}

	activation, err := services.Activations.Cancel(ctx, user.Id, *idFlag)
	if errors.Is(err, store.ErrActivationFinal) {
		fmt.Printf("Activation %s is already %s, nothing to cancel\n", activation.Id, activation.Status)
		return
	}
	if err != nil {
		zap.L().Fatal("Cancel failed", zap.String("activation_id", *idFlag), zap.Error(err))
	}

	balance, err := services.Store.GetUserBalance(ctx, user.Id)
	if err != nil {
		zap.L().Warn("Unable to read balance after cancel", zap.Error(err))
	}

	common.PrintHeader("ACTIVATION CANCELLED", common.DefaultWidth)
	fmt.Printf("Activation: %s\n", activation.Id)
	fmt.Printf("Refunded:   %s\n", common.Money(activation.Price))
	fmt.Printf("Balance:    %s\n", common.Money(balance))
	common.PrintSeparator("=", common.DefaultWidth)
}
