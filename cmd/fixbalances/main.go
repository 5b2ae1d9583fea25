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
	"os"
	"os/signal"
	"syscall"

	"smsglobe-go/internal/common"
	"smsglobe-go/internal/config"
	"smsglobe-go/internal/models"
	"smsglobe-go/internal/reconcile"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func printCorrections(corrections []reconcile.Correction, dryRun bool) {
	verb := "fixed"
	if dryRun {
		verb = "would fix"
	}
	for i, c := range corrections {
		isLast := i == len(corrections)-1
		fmt.Printf("%s %-36s %-30s %s %12s -> %-12s\n",
			common.BoxPrefix(isLast), c.UserId, c.Email, verb,
			common.Money(c.OldBalance), common.Money(c.NewBalance))
	}
}

func printFailures(failures []reconcile.Failure) {
	for i, f := range failures {
		isLast := i == len(failures)-1
		fmt.Printf("%s %-36s %s\n", common.BoxPrefix(isLast), f.UserId, f.Error)
	}
}

// errIncomplete marks a run that finished with failures or was interrupted.
var errIncomplete = errors.New("reconciliation incomplete")

// outcome reports whether a finished run should exit non-zero.
func outcome(summary *reconcile.Summary) error {
	if summary.Interrupted {
		return fmt.Errorf("%w: interrupted after %d users", errIncomplete, summary.Total)
	}
	if summary.Errors > 0 {
		return fmt.Errorf("%w: %d errors", errIncomplete, summary.Errors)
	}
	return nil
}

func main() {
	emailFlag := flag.String("email", "", "Reconcile a single user by email (optional)")
	dryRunFlag := flag.Bool("dry-run", false, "Report drift without writing fixes")
	flag.Parse()

	logger, loggerCleanup := common.InitializeLogger()

	err := run(*emailFlag, *dryRunFlag)
	if err != nil {
		logger.Error("Balance reconciliation failed", zap.Error(err))
	}
	loggerCleanup()
	if err != nil {
		os.Exit(1)
	}
}

// run closes everything it opens before returning.
func run(email string, dryRun bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer services.Close()

	users, err := common.InitializeUsers(ctx, services.Store, email)
	if err != nil {
		return fmt.Errorf("failed to initialize users: %w", err)
	}

	ctx = models.WithReconcileRun(ctx, &models.ReconcileRun{RunId: uuid.New().String(), TriggeredBy: "cli"})
	reconciler := services.NewReconciler(cfg, dryRun)

	title := "BALANCE RECONCILIATION"
	if dryRun || cfg.Reconcile.DryRun {
		title += " (DRY RUN)"
	}
	common.PrintHeader(title, common.WideWidth)

	summary := reconciler.RunUsers(ctx, users)

	if len(summary.Corrections) > 0 {
		fmt.Printf("\n┌─ Corrections (%d)\n", len(summary.Corrections))
		common.PrintBoxSeparator(98)
		printCorrections(summary.Corrections, summary.DryRun)
	}
	if len(summary.Failures) > 0 {
		fmt.Printf("\n┌─ Failures (%d)\n", len(summary.Failures))
		common.PrintBoxSeparator(98)
		printFailures(summary.Failures)
	}

	footer := fmt.Sprintf("SUMMARY: %d users | %d fixed | %d correct | %d errors | run %s",
		summary.Total, summary.Fixed, summary.Correct, summary.Errors, summary.RunId)
	if summary.Interrupted {
		footer += " | INTERRUPTED"
	}
	common.PrintFooter(footer, common.WideWidth)

	return outcome(summary)
}
