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

package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"smsglobe-go/internal/models"
	"smsglobe-go/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Compile-time check: *Store must satisfy store.LedgerStore.
var _ store.LedgerStore = (*Store)(nil)

const uniqueViolation = "23505"

// Store is the Postgres backend of the ledger.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// New opens a pool with the desired search_path and applies the embedded migrations.
func New(ctx context.Context, cfg models.DatabaseConfig, migrations fs.FS) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database url cannot be empty")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if poolCfg.ConnConfig.RuntimeParams == nil {
		poolCfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	if cfg.Schema != "" {
		poolCfg.ConnConfig.RuntimeParams["search_path"] = cfg.Schema
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}

	zap.L().Info("Opening Postgres pool", zap.String("schema", cfg.Schema))
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx := ctx
	if cfg.PingTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.PingTimeout)
		defer cancel()
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	if migrations != nil {
		if err := ApplyMigrations(ctx, pool, migrations); err != nil {
			pool.Close()
			return nil, err
		}
	}

	zap.L().Info("Postgres store initialized successfully")
	return &Store{pool: pool, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// ApplyMigrations executes SQL files against the pool in lexicographical order.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool, filesystem fs.FS) error {
	names, err := migrationNames(filesystem)
	if err != nil {
		return err
	}

	for _, name := range names {
		sqlBytes, err := fs.ReadFile(filesystem, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if len(sqlBytes) == 0 {
			continue
		}

		err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, string(sqlBytes))
			return err
		})
		if err != nil {
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
		zap.L().Debug("Migration applied", zap.String("file", name))
	}
	return nil
}

func migrationNames(filesystem fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(filesystem, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
