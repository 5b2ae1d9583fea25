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

package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smsglobe-go/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis wraps a go-redis client with JSON helpers.
type Redis struct {
	client *redis.Client
}

// New returns a Redis client for cfg. It does not dial; call Ping to check.
func New(cfg models.RedisConfig) *Redis {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	zap.L().Info("Redis client created", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB), zap.Bool("tls", cfg.UseTLS))
	return &Redis{client: redis.NewClient(opts)}
}

// NewFromClient wraps an existing client.
func NewFromClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Client exposes the underlying go-redis client.
func (r *Redis) Client() *redis.Client {
	return r.client
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// SetJSON stores value as JSON under key. A zero ttl keeps it forever.
func (r *Redis) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// GetJSON loads key into dest. It reports false, nil when the key is absent.
func (r *Redis) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	res, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(res), dest); err != nil {
		return false, fmt.Errorf("json unmarshal: %w", err)
	}
	return true, nil
}

// Close releases Redis resources.
func (r *Redis) Close() error {
	return r.client.Close()
}
