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

package fx

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"smsglobe-go/internal/cache"
	"smsglobe-go/internal/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Where a quote came from.
const (
	SourceMemory   = "memory"
	SourceRedis    = "redis"
	SourceUpstream = "upstream"
	SourceFallback = "fallback"
)

const (
	PairRUBUSD = "RUB/USD"

	redisKeyPrefix = "fx:rate:"
	defaultTTL     = time.Hour
)

// Source fetches a live rate for base/quote.
type Source interface {
	Rate(ctx context.Context, base, quote string) (decimal.Decimal, error)
}

// Entry is a cached rate.
type Entry struct {
	Rate      decimal.Decimal `json:"rate"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// Quote is the answer to a lookup.
type Quote struct {
	Pair      string          `json:"pair"`
	Rate      decimal.Decimal `json:"rate"`
	FetchedAt time.Time       `json:"fetchedAt"`
	Source    string          `json:"source"`
}

type Options struct {
	TTL       time.Duration
	Fallbacks map[string]decimal.Decimal
	Redis     *cache.Redis
	Metrics   *metrics.Metrics
}

// RateCache keeps exchange rates per currency pair for a fixed TTL, with an
// optional Redis copy shared between processes. Callers own the instance.
type RateCache struct {
	mu        sync.Mutex
	entries   map[string]Entry
	source    Source
	ttl       time.Duration
	fallbacks map[string]decimal.Decimal
	redis     *cache.Redis
	metrics   *metrics.Metrics
}

func NewRateCache(source Source, opts Options) *RateCache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	fallbacks := make(map[string]decimal.Decimal, len(opts.Fallbacks))
	for pair, rate := range opts.Fallbacks {
		fallbacks[NormalizePair(pair)] = rate
	}
	return &RateCache{
		entries:   make(map[string]Entry),
		source:    source,
		ttl:       ttl,
		fallbacks: fallbacks,
		redis:     opts.Redis,
		metrics:   opts.Metrics,
	}
}

// NormalizePair upper-cases a "BASE/QUOTE" pair.
func NormalizePair(pair string) string {
	return strings.ToUpper(strings.TrimSpace(pair))
}

func splitPair(pair string) (string, string, error) {
	base, quote, ok := strings.Cut(pair, "/")
	if !ok || base == "" || quote == "" {
		return "", "", fmt.Errorf("invalid currency pair %q", pair)
	}
	return base, quote, nil
}

func (e Entry) fresh(now time.Time, ttl time.Duration) bool {
	return !e.FetchedAt.IsZero() && now.Sub(e.FetchedAt) < ttl
}

// GetOrRefresh returns the rate for pair as of now. A cached entry younger
// than the TTL is served as is; otherwise the source is asked. When the
// source fails the configured fallback is returned and nothing is cached,
// so the next lookup tries the source again.
func (c *RateCache) GetOrRefresh(ctx context.Context, pair string, now time.Time) (Quote, error) {
	pair = NormalizePair(pair)
	base, quote, err := splitPair(pair)
	if err != nil {
		return Quote{}, err
	}
	if base == quote {
		return Quote{Pair: pair, Rate: decimal.NewFromInt(1), FetchedAt: now, Source: SourceMemory}, nil
	}

	c.mu.Lock()
	entry, ok := c.entries[pair]
	c.mu.Unlock()
	if ok && entry.fresh(now, c.ttl) {
		return c.answer(pair, entry, SourceMemory), nil
	}

	if c.redis != nil {
		var shared Entry
		found, err := c.redis.GetJSON(ctx, redisKeyPrefix+pair, &shared)
		if err != nil {
			zap.L().Warn("Failed to read shared rate", zap.String("pair", pair), zap.Error(err))
		} else if found && shared.fresh(now, c.ttl) {
			c.store(pair, shared)
			return c.answer(pair, shared, SourceRedis), nil
		}
	}

	rate, err := c.source.Rate(ctx, base, quote)
	if err != nil || !rate.IsPositive() {
		if err == nil {
			err = fmt.Errorf("non-positive rate %s", rate.String())
		}
		c.metrics.IncError("fx")
		fallback, ok := c.fallbacks[pair]
		if !ok {
			return Quote{}, fmt.Errorf("unable to fetch rate for %s: %w", pair, err)
		}
		zap.L().Warn("Rate source unavailable, using fallback",
			zap.String("pair", pair),
			zap.String("fallback", fallback.String()),
			zap.Error(err))
		return c.answer(pair, Entry{Rate: fallback, FetchedAt: now}, SourceFallback), nil
	}

	fetched := Entry{Rate: rate, FetchedAt: now}
	c.store(pair, fetched)
	if c.redis != nil {
		if err := c.redis.SetJSON(ctx, redisKeyPrefix+pair, fetched, c.ttl); err != nil {
			zap.L().Warn("Failed to share rate", zap.String("pair", pair), zap.Error(err))
		}
	}
	zap.L().Info("Rate refreshed", zap.String("pair", pair), zap.String("rate", rate.String()))
	return c.answer(pair, fetched, SourceUpstream), nil
}

// Convert multiplies amount by the rate for pair.
func (c *RateCache) Convert(ctx context.Context, amount decimal.Decimal, pair string, now time.Time) (decimal.Decimal, Quote, error) {
	q, err := c.GetOrRefresh(ctx, pair, now)
	if err != nil {
		return decimal.Zero, Quote{}, err
	}
	return amount.Mul(q.Rate), q, nil
}

func (c *RateCache) store(pair string, e Entry) {
	c.mu.Lock()
	c.entries[pair] = e
	c.mu.Unlock()
}

func (c *RateCache) answer(pair string, e Entry, source string) Quote {
	c.metrics.ObserveFXLookup(source)
	return Quote{Pair: pair, Rate: e.Rate, FetchedAt: e.FetchedAt, Source: source}
}
