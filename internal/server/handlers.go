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
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"smsglobe-go/internal/api"
	"smsglobe-go/internal/common"
	"smsglobe-go/internal/gateway"
	"smsglobe-go/internal/models"
	"smsglobe-go/internal/reconcile"
	"smsglobe-go/internal/store"
	"smsglobe-go/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error    string   `json:"error"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

type purchaseRequest struct {
	Service string `json:"service"`
	Country string `json:"country"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("Failed to encode response", zap.Error(err))
	}
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var invalid *validation.Error
	if errors.As(err, &invalid) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:    validation.ErrInvalid.Error(),
			Errors:   invalid.Result.Errors,
			Warnings: invalid.Result.Warnings,
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, api.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrActivationNotFound),
		errors.Is(err, common.ErrProductNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrActivationFinal),
		errors.Is(err, store.ErrDuplicateTransaction),
		errors.Is(err, store.ErrConcurrentModification),
		errors.Is(err, store.ErrInsufficientBalance):
		status = http.StatusConflict
	case errors.Is(err, gateway.ErrNoNumbers),
		errors.Is(err, gateway.ErrNoBalance):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		zap.L().Error("Request failed", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ledger != nil {
		if err := s.deps.Ledger.HealthCheck(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func dryRunParam(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))
	return v
}

func (s *Server) handleReconcileAll(w http.ResponseWriter, r *http.Request) {
	ctx := models.WithReconcileRun(r.Context(), &models.ReconcileRun{
		RunId:       uuid.New().String(),
		TriggeredBy: "http",
	})

	summary, err := s.deps.Reconciler(dryRunParam(r)).Run(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	s.last.Save(r.Context(), summary)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleLastSummary(w http.ResponseWriter, r *http.Request) {
	summary := s.last.Load(r.Context())
	if summary == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no reconciliation has run yet"})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleReconcileUser(w http.ResponseWriter, r *http.Request) {
	userId := chi.URLParam(r, "userId")
	result := s.deps.Reconciler(dryRunParam(r)).ReconcileUser(r.Context(), userId)
	status := http.StatusOK
	if result.Error != "" {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result)
}

func (s *Server) handleCorrections(w http.ResponseWriter, r *http.Request) {
	if s.deps.Corrections == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "correction journal is not configured"})
		return
	}

	userId := chi.URLParam(r, "userId")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	corrections, err := s.deps.Corrections.ListCorrections(r.Context(), userId, limit)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	net, err := s.deps.Corrections.NetCorrection(r.Context(), userId)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	if corrections == nil {
		corrections = []reconcile.Correction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"userId":      userId,
		"net":         net,
		"corrections": corrections,
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.deps.Ledger.GetUserBalance(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	history, err := s.deps.Ledger.GetTransactionHistory(r.Context(), chi.URLParam(r, "userId"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req api.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}

	record, err := s.deps.Ledger.RecordTransaction(r.Context(), chi.URLParam(r, "userId"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}

	a, err := s.deps.Activations.Purchase(r.Context(), chi.URLParam(r, "userId"), req.Service, req.Country)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewActivationView(a))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Activations.Refresh(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "activationId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewActivationView(a))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Activations.Cancel(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "activationId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewActivationView(a))
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	pair := chi.URLParam(r, "base") + "/" + chi.URLParam(r, "quote")
	quote, err := s.deps.Rates.GetOrRefresh(r.Context(), pair, s.now())
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

