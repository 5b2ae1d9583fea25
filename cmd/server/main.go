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
	"os"
	"os/signal"
	"syscall"
	"time"

	"smsglobe-go/internal/api"
	"smsglobe-go/internal/common"
	"smsglobe-go/internal/config"
	"smsglobe-go/internal/poller"
	"smsglobe-go/internal/server"

	"go.uber.org/zap"
)

func main() {
	withPoller := flag.Bool("poller", false, "Also run the activation status poller in this process")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	deps := server.Dependencies{
		Ledger: api.NewLedgerService(services.Store),
		Reconciler: func(dryRun bool) server.Reconciler {
			return services.NewReconciler(cfg, dryRun)
		},
		Activations: services.Activations,
		Rates:       services.Rates,
		Redis:       services.Redis,
	}
	if services.Journal != nil {
		deps.Corrections = services.Journal
	}
	srv := server.New(cfg.Server, deps)

	var p *poller.Poller
	if *withPoller {
		p = poller.New(services.Store, services.Activations, poller.Options{
			Interval:    cfg.Poller.Interval,
			Concurrency: cfg.Poller.Concurrency,
			Lifetime:    cfg.Poller.ActivationLifetime,
		})
		p.Start(ctx)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		zap.L().Info("Shutdown signal received")
	case err := <-errChan:
		if err != nil {
			zap.L().Error("HTTP server stopped", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("Forced shutdown after timeout", zap.Error(err))
	}
	if p != nil {
		p.Stop()
	}
	zap.L().Info("Server stopped")
}
