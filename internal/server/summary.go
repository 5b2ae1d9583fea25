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
	"sync"

	"smsglobe-go/internal/cache"
	"smsglobe-go/internal/reconcile"

	"go.uber.org/zap"
)

const lastSummaryKey = "reconcile:last"

// lastSummary keeps the most recent batch summary, in Redis when available
// so every replica serves the same one.
type lastSummary struct {
	mu      sync.Mutex
	summary *reconcile.Summary
	redis   *cache.Redis
}

func (l *lastSummary) Save(ctx context.Context, summary *reconcile.Summary) {
	l.mu.Lock()
	l.summary = summary
	l.mu.Unlock()

	if l.redis == nil {
		return
	}
	if err := l.redis.SetJSON(ctx, lastSummaryKey, summary, 0); err != nil {
		zap.L().Warn("Failed to store reconciliation summary", zap.String("run_id", summary.RunId), zap.Error(err))
	}
}

func (l *lastSummary) Load(ctx context.Context) *reconcile.Summary {
	if l.redis != nil {
		var shared reconcile.Summary
		found, err := l.redis.GetJSON(ctx, lastSummaryKey, &shared)
		if err != nil {
			zap.L().Warn("Failed to read reconciliation summary", zap.Error(err))
		} else if found {
			return &shared
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.summary
}
