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

package reconcile

import (
	"context"
	"encoding/json"
	"time"

	"smsglobe-go/internal/metrics"
	"smsglobe-go/internal/models"
	"smsglobe-go/internal/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Store is the part of the ledger the pass reads and corrects.
type Store interface {
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserBalance(ctx context.Context, userId string) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, userId string) ([]models.Transaction, error)
	SetBalance(ctx context.Context, userId string, balance decimal.Decimal, fixedAt time.Time) error
}

// Correction describes one balance overwrite.
type Correction struct {
	UserId     string          `json:"userId"`
	Email      string          `json:"email,omitempty"`
	OldBalance decimal.Decimal `json:"oldBalance"`
	NewBalance decimal.Decimal `json:"newBalance"`
	FixedAt    time.Time       `json:"fixedAt"`
	RunId      string          `json:"runId,omitempty"`
}

// CorrectionJournal receives a copy of every correction written.
type CorrectionJournal interface {
	RecordBalanceFix(ctx context.Context, c Correction) error
}

const (
	OutcomeFixed   = "fixed"
	OutcomeCorrect = "correct"
	OutcomeError   = "error"
)

// Result is the outcome of reconciling one user. Exactly one shape is
// meaningful: an error, a fix with old and new balances, or a correct balance.
type Result struct {
	Fixed      bool
	DryRun     bool
	OldBalance decimal.Decimal
	NewBalance decimal.Decimal
	Balance    decimal.Decimal
	FixedAt    time.Time
	Error      string
}

func (r Result) Outcome() string {
	switch {
	case r.Error != "":
		return OutcomeError
	case r.Fixed:
		return OutcomeFixed
	default:
		return OutcomeCorrect
	}
}

func (r Result) MarshalJSON() ([]byte, error) {
	switch r.Outcome() {
	case OutcomeError:
		return json.Marshal(struct {
			Error string `json:"error"`
		}{r.Error})
	case OutcomeFixed:
		return json.Marshal(struct {
			Fixed      bool            `json:"fixed"`
			DryRun     bool            `json:"dryRun,omitempty"`
			OldBalance decimal.Decimal `json:"oldBalance"`
			NewBalance decimal.Decimal `json:"newBalance"`
		}{true, r.DryRun, r.OldBalance, r.NewBalance})
	default:
		return json.Marshal(struct {
			Fixed   bool            `json:"fixed"`
			Balance decimal.Decimal `json:"balance"`
		}{false, r.Balance})
	}
}

// Options tunes a Reconciler. A zero Tolerance means the default of 0.01.
// The zero value has no delay between users and writes fixes.
type Options struct {
	Tolerance decimal.Decimal
	UserDelay time.Duration
	DryRun    bool
	Journal   CorrectionJournal
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// Reconciler recomputes stored balances from transaction history and
// overwrites the ones that drifted.
//
// The read of history and the overwrite are not atomic and carry no version
// check: a transaction applied between the two is lost from this pass and
// corrected on the next one.
type Reconciler struct {
	store     Store
	journal   CorrectionJournal
	metrics   *metrics.Metrics
	limiter   *rate.Limiter
	tolerance decimal.Decimal
	dryRun    bool
	now       func() time.Time
}

func New(store Store, opts Options) *Reconciler {
	tolerance := opts.Tolerance
	if tolerance.IsZero() {
		tolerance = validation.DefaultTolerance
	}

	limit := rate.Inf
	if opts.UserDelay > 0 {
		limit = rate.Every(opts.UserDelay)
	}

	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &Reconciler{
		store:     store,
		journal:   opts.Journal,
		metrics:   opts.Metrics,
		limiter:   rate.NewLimiter(limit, 1),
		tolerance: tolerance,
		dryRun:    opts.DryRun,
		now:       now,
	}
}

// ReconcileUser checks one user and corrects the stored balance when it is
// more than the tolerance away from the recomputed one. Failures are
// reported in Result.Error.
func (r *Reconciler) ReconcileUser(ctx context.Context, userId string) Result {
	result := r.reconcileUser(ctx, userId)
	r.metrics.ObserveReconcile(result.Outcome())
	if result.Outcome() == OutcomeError {
		r.metrics.IncError("reconcile")
	}
	return result
}

func (r *Reconciler) reconcileUser(ctx context.Context, userId string) Result {
	stored, err := r.store.GetUserBalance(ctx, userId)
	if err != nil {
		zap.L().Error("Failed to read stored balance", zap.String("user_id", userId), zap.Error(err))
		return Result{Error: err.Error()}
	}

	txs, err := r.store.ListTransactions(ctx, userId)
	if err != nil {
		zap.L().Error("Failed to read transaction history", zap.String("user_id", userId), zap.Error(err))
		return Result{Error: err.Error()}
	}

	calculated, raw := Calculate(txs)

	check := validation.ValidateBalanceConsistency(stored, raw, r.tolerance)
	for _, w := range check.Warnings {
		zap.L().Warn("Balance consistency warning", zap.String("user_id", userId), zap.String("warning", w))
	}

	drift := stored.Sub(calculated).Abs()
	if !drift.GreaterThan(r.tolerance) {
		zap.L().Debug("Balance is correct",
			zap.String("user_id", userId),
			zap.String("balance", stored.String()),
			zap.Int("transactions", len(txs)))
		return Result{Balance: stored}
	}

	zap.L().Warn("Balance discrepancy detected",
		zap.String("user_id", userId),
		zap.String("old_balance", stored.String()),
		zap.String("new_balance", calculated.String()),
		zap.String("raw_total", raw.String()),
		zap.String("difference", drift.String()),
		zap.Bool("dry_run", r.dryRun))

	if r.dryRun {
		return Result{Fixed: true, DryRun: true, OldBalance: stored, NewBalance: calculated}
	}

	fixedAt := r.now()
	if err := r.store.SetBalance(ctx, userId, calculated, fixedAt); err != nil {
		zap.L().Error("Failed to write corrected balance", zap.String("user_id", userId), zap.Error(err))
		return Result{Error: err.Error()}
	}
	r.metrics.ObserveDrift(drift.InexactFloat64())

	r.journalFix(ctx, Correction{
		UserId:     userId,
		OldBalance: stored,
		NewBalance: calculated,
		FixedAt:    fixedAt,
	})

	return Result{Fixed: true, OldBalance: stored, NewBalance: calculated, FixedAt: fixedAt}
}

func (r *Reconciler) journalFix(ctx context.Context, c Correction) {
	if r.journal == nil {
		return
	}
	if run := models.GetReconcileRun(ctx); run != nil {
		c.RunId = run.RunId
	}
	if err := r.journal.RecordBalanceFix(ctx, c); err != nil {
		r.metrics.IncError("journal")
		zap.L().Error("Failed to journal balance correction",
			zap.String("user_id", c.UserId),
			zap.String("run_id", c.RunId),
			zap.Error(err))
	}
}

// Failure records a user the pass could not reconcile.
type Failure struct {
	UserId string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Error  string `json:"error"`
}

// Summary aggregates a batch run.
type Summary struct {
	RunId       string       `json:"runId"`
	TriggeredBy string       `json:"triggeredBy,omitempty"`
	StartedAt   time.Time    `json:"startedAt"`
	FinishedAt  time.Time    `json:"finishedAt"`
	DryRun      bool         `json:"dryRun"`
	Total       int          `json:"total"`
	Fixed       int          `json:"fixed"`
	Correct     int          `json:"correct"`
	Errors      int          `json:"errors"`
	Interrupted bool         `json:"interrupted,omitempty"`
	Corrections []Correction `json:"corrections"`
	Failures    []Failure    `json:"failures"`
}

// Run reconciles every active user.
func (r *Reconciler) Run(ctx context.Context) (*Summary, error) {
	users, err := r.store.GetUsers(ctx)
	if err != nil {
		return nil, err
	}
	return r.RunUsers(ctx, users), nil
}

// RunUsers reconciles users one after another, waiting on the limiter
// between them. A failure on one user is counted and the pass moves on.
// Cancelling ctx stops the pass before the next user and returns what was
// done so far with Interrupted set.
func (r *Reconciler) RunUsers(ctx context.Context, users []models.User) *Summary {
	run := models.GetReconcileRun(ctx)
	if run == nil {
		run = &models.ReconcileRun{RunId: uuid.New().String()}
		ctx = models.WithReconcileRun(ctx, run)
	}

	summary := &Summary{
		RunId:       run.RunId,
		TriggeredBy: run.TriggeredBy,
		StartedAt:   r.now(),
		DryRun:      r.dryRun,
		Corrections: []Correction{},
		Failures:    []Failure{},
	}

	zap.L().Info("Starting balance reconciliation",
		zap.String("run_id", run.RunId),
		zap.Int("users", len(users)),
		zap.String("tolerance", r.tolerance.String()),
		zap.Bool("dry_run", r.dryRun))

	for _, user := range users {
		if err := r.limiter.Wait(ctx); err != nil {
			zap.L().Warn("Reconciliation interrupted", zap.String("run_id", run.RunId), zap.Error(err))
			summary.Interrupted = true
			break
		}

		summary.Total++
		result := r.ReconcileUser(ctx, user.Id)
		switch result.Outcome() {
		case OutcomeError:
			summary.Errors++
			summary.Failures = append(summary.Failures, Failure{UserId: user.Id, Email: user.Email, Error: result.Error})
		case OutcomeFixed:
			summary.Fixed++
			summary.Corrections = append(summary.Corrections, Correction{
				UserId:     user.Id,
				Email:      user.Email,
				OldBalance: result.OldBalance,
				NewBalance: result.NewBalance,
				FixedAt:    result.FixedAt,
				RunId:      run.RunId,
			})
		default:
			summary.Correct++
		}
	}

	summary.FinishedAt = r.now()
	zap.L().Info("Balance reconciliation finished",
		zap.String("run_id", run.RunId),
		zap.Int("total", summary.Total),
		zap.Int("fixed", summary.Fixed),
		zap.Int("correct", summary.Correct),
		zap.Int("errors", summary.Errors),
		zap.Bool("interrupted", summary.Interrupted))
	return summary
}
