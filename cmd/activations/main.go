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
	"flag"
	"fmt"

	"smsglobe-go/internal/common"
	"smsglobe-go/internal/config"
	"smsglobe-go/internal/models"

	"go.uber.org/zap"
)

func printActivation(a models.Activation, isLast bool) {
	code := "-"
	if a.SmsCode != nil {
		code = *a.SmsCode
	}
	fmt.Printf("%s %-12s %-10s %-4s +%-14s %9s  code: %-8s %s\n",
		common.BoxPrefix(isLast),
		common.Truncate(a.Id, 9),
		a.Status,
		a.Service,
		a.Phone,
		common.Money(a.Price),
		code,
		a.CreatedAt.Format("2006-01-02 15:04"))
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.String("user", "", "User id or email (required)")
	refreshFlag := flag.Bool("refresh", false, "Ask the gateway for the status of waiting activations first")
	flag.Parse()

	if *userFlag == "" {
		logger.Fatal("Flag --user is required")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	user, err := common.ResolveUser(ctx, services.Store, *userFlag)
	if err != nil {
		logger.Fatal("User not found", zap.String("user", *userFlag), zap.Error(err))
	}

	activations, err := services.Store.ListUserActivations(ctx, user.Id)
	if err != nil {
		logger.Fatal("Failed to list activations", zap.Error(err))
	}

	if *refreshFlag {
		for i, a := range activations {
			if a.Status != models.ActivationWaiting {
				continue
			}
			updated, err := services.Activations.Refresh(ctx, user.Id, a.Id)
			if err != nil {
				logger.Warn("Refresh failed", zap.String("activation_id", a.Id), zap.Error(err))
				continue
			}
			activations[i] = *updated
		}
	}

	common.PrintHeader(fmt.Sprintf("ACTIVATIONS: %s (%s)", user.Name, user.Email), common.WideWidth)
	for i, a := range activations {
		printActivation(a, i == len(activations)-1)
	}
	common.PrintFooter(fmt.Sprintf("TOTAL: %d activations", len(activations)), common.WideWidth)
}
