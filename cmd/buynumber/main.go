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

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.String("user", "", "User id or email (required)")
	serviceFlag := flag.String("service", "", "Service code, e.g. tg (required)")
	countryFlag := flag.String("country", "", "Country code, e.g. 0 (required)")
	flag.Parse()

	if *userFlag == "" || *serviceFlag == "" || *countryFlag == "" {
		zap.L().Fatal("Flags --user, --service and --country are required")
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

	activation, err := services.Activations.Purchase(ctx, user.Id, *serviceFlag, *countryFlag)
	if err != nil {
		zap.L().Fatal("Purchase failed", zap.String("user_id", user.Id), zap.Error(err))
	}

	common.PrintHeader("NUMBER PURCHASED", common.DefaultWidth)
	fmt.Printf("Activation: %s\n", activation.Id)
	fmt.Printf("Phone:      +%s\n", activation.Phone)
	fmt.Printf("Service:    %s (country %s)\n", activation.Service, activation.Country)
	fmt.Printf("Price:      %s\n", common.Money(activation.Price))
	fmt.Printf("Status:     %s\n", activation.Status)
	common.PrintSeparator("=", common.DefaultWidth)
}
