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
	"smsglobe-go/internal/reconcile"
	"smsglobe-go/internal/store"
	"smsglobe-go/internal/validation"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type balanceStats struct {
	totalUsers   int
	consistent   int
	inconsistent int
	failed       int
}

func printUserHeader(user models.User, txCount int) {
	fmt.Printf("\n┌─ User: %s (%s)\n", user.Name, user.Email)
	fmt.Printf("│  ID: %s\n", user.Id)
	fmt.Printf("│  Transactions: %d\n", txCount)
	common.PrintBoxSeparator(78)
}

// processUser recomputes the balance and reports consistency without writing.
func processUser(ctx context.Context, user models.User, st store.LedgerStore, tolerance decimal.Decimal) (bool, error) {
	txs, err := st.ListTransactions(ctx, user.Id)
	if err != nil {
		return false, fmt.Errorf("failed to list transactions: %w", err)
	}
	calculated, raw := reconcile.Calculate(txs)
	check := validation.ValidateBalanceConsistency(user.Balance, calculated, tolerance)
	if raw.IsNegative() {
		check.Warnings = append(check.Warnings, validation.ValidateBalanceConsistency(user.Balance, raw, tolerance).Warnings...)
	}

	printUserHeader(user, len(txs))
	fmt.Printf("%s Stored:     %12s\n", common.BoxPrefix(false), common.Money(user.Balance))
	fmt.Printf("%s Calculated: %12s\n", common.BoxPrefix(false), common.Money(calculated))
	if user.BalanceFixedAt != nil {
		fmt.Printf("%s Last fixed: %s\n", common.BoxPrefix(false), user.BalanceFixedAt.Format("2006-01-02 15:04:05"))
	}
	for _, w := range check.Warnings {
		fmt.Printf("%s Warning: %s\n", common.BoxPrefix(false), w)
	}

	status := "consistent"
	if !check.IsValid {
		status = "INCONSISTENT"
	}
	fmt.Printf("%s Status:     %s\n", common.BoxPrefix(true), status)
	for _, e := range check.Errors {
		fmt.Printf("%s  %s\n", common.BoxDetailPrefix(true), e)
	}
	return check.IsValid, nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "Filter by specific user email (optional)")
	flag.Parse()

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// read-only: no gateway, cache or journal needed
	st, err := common.InitializeStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize store", zap.Error(err))
	}
	defer st.Close()

	users, err := common.InitializeUsers(ctx, st, *emailFlag)
	if err != nil {
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}

	common.PrintHeader("USER BALANCE REPORT", common.DefaultWidth)

	stats := balanceStats{}
	for _, user := range users {
		stats.totalUsers++
		ok, err := processUser(ctx, user, st, cfg.Reconcile.Tolerance)
		switch {
		case err != nil:
			stats.failed++
			logger.Error("Failed to process user", zap.String("user_id", user.Id), zap.Error(err))
		case ok:
			stats.consistent++
		default:
			stats.inconsistent++
		}
	}

	summary := fmt.Sprintf("SUMMARY: %d users | %d consistent | %d inconsistent | %d failed",
		stats.totalUsers, stats.consistent, stats.inconsistent, stats.failed)
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("inconsistent", stats.inconsistent))
}
