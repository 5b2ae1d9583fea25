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

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"smsglobe-go/internal/api"
	"smsglobe-go/internal/cache"
	"smsglobe-go/internal/fx"
	"smsglobe-go/internal/models"
	"smsglobe-go/internal/reconcile"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const requestTimeout = 30 * time.Second

// Reconciler runs balance reconciliation.
type Reconciler interface {
	Run(ctx context.Context) (*reconcile.Summary, error)
	ReconcileUser(ctx context.Context, userId string) reconcile.Result
}

// Activations drives the number lifecycle.
type Activations interface {
	Purchase(ctx context.Context, userId, service, country string) (*models.Activation, error)
	Refresh(ctx context.Context, userId, activationId string) (*models.Activation, error)
	Cancel(ctx context.Context, userId, activationId string) (*models.Activation, error)
}

// Rates answers FX lookups.
type Rates interface {
	GetOrRefresh(ctx context.Context, pair string, now time.Time) (fx.Quote, error)
}

// Corrections reads the correction journal back for audit.
type Corrections interface {
	ListCorrections(ctx context.Context, userId string, limit int) ([]reconcile.Correction, error)
	NetCorrection(ctx context.Context, userId string) (decimal.Decimal, error)
}

// Dependencies are the services the routes call into. Redis and Corrections are optional.
type Dependencies struct {
	Ledger      *api.LedgerService
	Reconciler  func(dryRun bool) Reconciler
	Activations Activations
	Rates       Rates
	Corrections Corrections
	Redis       *cache.Redis
	Metrics     http.Handler
}

// Server wraps an http.Server with the admin and dashboard routes.
type Server struct {
	httpServer *http.Server
	deps       Dependencies
	last       *lastSummary
	now        func() time.Time
}

func New(cfg models.ServerConfig, deps Dependencies) *Server {
	if deps.Metrics == nil {
		deps.Metrics = promhttp.Handler()
	}
	s := &Server{
		deps: deps,
		last: &lastSummary{redis: deps.Redis},
		now:  func() time.Time { return time.Now().UTC() },
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(cfg.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) routes(allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.deps.Metrics)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/reconcile", s.handleReconcileAll)
		r.Get("/reconcile/last", s.handleLastSummary)
		r.With(middleware.Timeout(requestTimeout)).Post("/users/{userId}/reconcile", s.handleReconcileUser)
		r.With(middleware.Timeout(requestTimeout)).Get("/users/{userId}/corrections", s.handleCorrections)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/users/{userId}/balance", s.handleBalance)
		r.Get("/users/{userId}/transactions", s.handleTransactions)
		r.Post("/users/{userId}/transactions", s.handleRecordTransaction)

		r.Post("/users/{userId}/activations", s.handlePurchase)
		r.Get("/users/{userId}/activations/{activationId}", s.handleRefresh)
		r.Post("/users/{userId}/activations/{activationId}/cancel", s.handleCancel)

		r.Get("/fx/{base}/{quote}", s.handleRate)
	})

	return r
}

// Start begins listening for incoming HTTP requests.
func (s *Server) Start() error {
	zap.L().Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	zap.L().Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
