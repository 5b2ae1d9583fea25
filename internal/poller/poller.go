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

package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"smsglobe-go/internal/models"
	"smsglobe-go/internal/store"

	"golang.org/x/sync/errgroup"
	"go.uber.org/zap"
)

const defaultBatchSize = 500

// Activations is the activation service the poller drives.
type Activations interface {
	Refresh(ctx context.Context, userId, activationId string) (*models.Activation, error)
	Cancel(ctx context.Context, userId, activationId string) (*models.Activation, error)
}

// Store lists the activations still waiting for a code.
type Store interface {
	ListActivationsByStatus(ctx context.Context, status string, limit int) ([]models.Activation, error)
}

// Options tune the poller. Zero values fall back to sane defaults.
type Options struct {
	Interval    time.Duration
	Concurrency int
	Lifetime    time.Duration
	BatchSize   int
	Now         func() time.Time
}

// Stats summarises one polling round.
type Stats struct {
	Polled    int
	Completed int
	Cancelled int
	Expired   int
	Errors    int
}

// Poller refreshes waiting activations on a ticker and cancels the ones
// that outlived their lease.
type Poller struct {
	store       Store
	activations Activations
	interval    time.Duration
	concurrency int
	lifetime    time.Duration
	batchSize   int
	now         func() time.Time

	stopOnce sync.Once
	stopChan chan struct{}
	doneChan chan struct{}
}

func New(st Store, activations Activations, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Lifetime <= 0 {
		opts.Lifetime = 20 * time.Minute
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Poller{
		store:       st,
		activations: activations,
		interval:    opts.Interval,
		concurrency: opts.Concurrency,
		lifetime:    opts.Lifetime,
		batchSize:   opts.BatchSize,
		now:         opts.Now,
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
	}
}

// Start launches the polling loop in the background.
func (p *Poller) Start(ctx context.Context) {
	zap.L().Info("Starting activation poller",
		zap.Duration("interval", p.interval),
		zap.Int("concurrency", p.concurrency),
		zap.Duration("lifetime", p.lifetime))
	go p.pollLoop(ctx)
}

// Stop ends the loop and waits for the round in flight to finish.
func (p *Poller) Stop() {
	zap.L().Info("Stopping activation poller")
	p.stopOnce.Do(func() { close(p.stopChan) })
	<-p.doneChan
	zap.L().Info("Activation poller stopped")
}

func (p *Poller) pollLoop(ctx context.Context) {
	defer close(p.doneChan)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.runRound(ctx)

	for {
		select {
		case <-ticker.C:
			p.runRound(ctx)
		case <-p.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) runRound(ctx context.Context) {
	stats, err := p.PollOnce(ctx)
	if err != nil {
		zap.L().Error("Polling round failed", zap.Error(err))
		return
	}
	if stats.Polled > 0 {
		zap.L().Info("Polling round finished",
			zap.Int("polled", stats.Polled),
			zap.Int("completed", stats.Completed),
			zap.Int("cancelled", stats.Cancelled),
			zap.Int("expired", stats.Expired),
			zap.Int("errors", stats.Errors))
	}
}

// PollOnce runs a single round over every waiting activation.
func (p *Poller) PollOnce(ctx context.Context) (Stats, error) {
	waiting, err := p.store.ListActivationsByStatus(ctx, models.ActivationWaiting, p.batchSize)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to list waiting activations: %w", err)
	}

	var completed, cancelled, expired, failed atomic.Int64
	now := p.now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, a := range waiting {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}

			var (
				updated *models.Activation
				err     error
			)
			if now.Sub(a.CreatedAt) > p.lifetime {
				updated, err = p.activations.Cancel(gctx, a.UserId, a.Id)
				if err == nil || errors.Is(err, store.ErrActivationFinal) {
					expired.Add(1)
				}
			} else {
				updated, err = p.activations.Refresh(gctx, a.UserId, a.Id)
			}

			if err != nil && !errors.Is(err, store.ErrActivationFinal) {
				failed.Add(1)
				zap.L().Error("Failed to poll activation",
					zap.String("activation_id", a.Id),
					zap.String("user_id", a.UserId),
					zap.Error(err))
				return nil
			}
			if updated == nil {
				return nil
			}
			switch updated.Status {
			case models.ActivationCompleted:
				completed.Add(1)
			case models.ActivationCancelled:
				cancelled.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return Stats{
		Polled:    len(waiting),
		Completed: int(completed.Load()),
		Cancelled: int(cancelled.Load()),
		Expired:   int(expired.Load()),
		Errors:    int(failed.Load()),
	}, ctx.Err()
}
