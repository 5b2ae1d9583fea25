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
	"regexp"
	"strings"

	"smsglobe-go/internal/api"
	"smsglobe-go/internal/common"
	"smsglobe-go/internal/config"
	"smsglobe-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	return nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	nameFlag := flag.String("name", "", "User's full name (required)")
	emailFlag := flag.String("email", "", "User's email address (required)")
	depositFlag := flag.String("deposit", "", "Opening deposit in USD (optional)")
	flag.Parse()

	if *nameFlag == "" || *emailFlag == "" {
		zap.L().Fatal("Both flags are required: --name and --email")
	}
	if err := validateName(*nameFlag); err != nil {
		zap.L().Fatal("Invalid name", zap.Error(err))
	}
	if err := validateEmail(*emailFlag); err != nil {
		zap.L().Fatal("Invalid email", zap.Error(err))
	}

	var deposit decimal.Decimal
	if *depositFlag != "" {
		var err error
		deposit, err = decimal.NewFromString(*depositFlag)
		if err != nil || !deposit.IsPositive() {
			zap.L().Fatal("Invalid deposit amount", zap.String("deposit", *depositFlag))
		}
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	st, err := common.InitializeStore(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize store", zap.Error(err))
	}
	defer st.Close()

	userId := uuid.New().String()
	user, err := st.CreateUser(ctx, userId, *nameFlag, *emailFlag)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			zap.L().Fatal("User already exists with this email", zap.String("email", *emailFlag))
		}
		zap.L().Fatal("Failed to create user", zap.Error(err))
	}

	common.PrintHeader("USER CREATED", common.DefaultWidth)
	fmt.Printf("ID:      %s\n", user.Id)
	fmt.Printf("Name:    %s\n", user.Name)
	fmt.Printf("Email:   %s\n", user.Email)

	if deposit.IsPositive() {
		ledger := api.NewLedgerService(st)
		record, err := ledger.RecordTransaction(ctx, user.Id, api.TransactionRequest{
			Type:        models.TransactionDeposit,
			Amount:      deposit,
			Description: "Opening deposit",
			ExternalRef: "opening-" + user.Id,
		})
		if err != nil {
			zap.L().Error("User created but opening deposit failed", zap.String("user_id", user.Id), zap.Error(err))
			fmt.Printf("Deposit: FAILED (%s)\n", err)
		} else {
			fmt.Printf("Balance: %s\n", common.Money(record.BalanceAfter))
		}
	}
	common.PrintSeparator("=", common.DefaultWidth)

	zap.L().Info("User created successfully", zap.String("id", user.Id))
}
