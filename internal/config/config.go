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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"smsglobe-go/internal/models"

	"github.com/shopspring/decimal"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	userDelay, err := getEnvDuration("RECONCILE_USER_DELAY", 100*time.Millisecond)
	if err != nil {
		return nil, err
	}

	tolerance, err := getEnvDecimal("RECONCILE_TOLERANCE", decimal.NewFromFloat(0.01))
	if err != nil {
		return nil, err
	}
	if !tolerance.IsPositive() {
		return nil, fmt.Errorf("RECONCILE_TOLERANCE must be positive, got %s", tolerance.String())
	}

	gatewayTimeout, err := getEnvDuration("SMS_ACTIVATE_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	pollerInterval, err := getEnvDuration("POLLER_INTERVAL", 10*time.Second)
	if err != nil {
		return nil, err
	}

	activationLifetime, err := getEnvDuration("ACTIVATION_LIFETIME", 20*time.Minute)
	if err != nil {
		return nil, err
	}

	fxTTL, err := getEnvDuration("FX_TTL", time.Hour)
	if err != nil {
		return nil, err
	}

	fxFallback, err := getEnvDecimal("FX_FALLBACK_RUB_USD", decimal.RequireFromString("0.011"))
	if err != nil {
		return nil, err
	}

	backend := strings.ToLower(getEnvString("STORE_BACKEND", models.BackendSQLite))
	if backend != models.BackendSQLite && backend != models.BackendPostgres {
		return nil, fmt.Errorf("invalid STORE_BACKEND %q (expected %s or %s)", backend, models.BackendSQLite, models.BackendPostgres)
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Backend:          backend,
			Path:             getEnvString("DATABASE_PATH", "smsglobe.db"),
			URL:              getEnvString("DATABASE_URL", ""),
			Schema:           getEnvString("DB_SCHEMA", "public"),
			MaxOpenConns:     getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  connMaxLifetime,
			ConnMaxIdleTime:  connMaxIdleTime,
			PingTimeout:      pingTimeout,
			CreateDummyUsers: getEnvBool("CREATE_DUMMY_USERS", false),
		},
		Reconcile: models.ReconcileConfig{
			Tolerance: tolerance,
			UserDelay: userDelay,
			DryRun:    getEnvBool("RECONCILE_DRY_RUN", false),
		},
		Gateway: models.GatewayConfig{
			BaseURL: getEnvString("SMS_ACTIVATE_BASE_URL", "https://api.sms-activate.ae/stubs/handler_api.php"),
			APIKey:  getEnvString("SMS_ACTIVATE_API_KEY", ""),
			Timeout: gatewayTimeout,
		},
		Poller: models.PollerConfig{
			Interval:           pollerInterval,
			Concurrency:        getEnvInt("POLLER_CONCURRENCY", 4),
			ActivationLifetime: activationLifetime,
		},
		Redis: models.RedisConfig{
			Addr:     getEnvString("REDIS_ADDR", ""),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			UseTLS:   getEnvBool("REDIS_TLS", false),
		},
		Formance: models.FormanceConfig{
			StackURL:     getEnvString("FORMANCE_STACK_URL", ""),
			ClientID:     getEnvString("FORMANCE_CLIENT_ID", ""),
			ClientSecret: getEnvString("FORMANCE_CLIENT_SECRET", ""),
			LedgerName:   getEnvString("FORMANCE_LEDGER", "smsglobe-corrections"),
		},
		FX: models.FXConfig{
			SourceURL:      getEnvString("FX_SOURCE_URL", "https://open.er-api.com/v6/latest"),
			TTL:            fxTTL,
			FallbackRUBUSD: fxFallback,
		},
		Server: models.ServerConfig{
			Addr:             getEnvString("HTTP_ADDR", ":8080"),
			MetricsNamespace: getEnvString("METRICS_NAMESPACE", "smsglobe"),
			AllowedOrigins:   getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Catalog: models.CatalogConfig{
			File: getEnvString("CATALOG_FILE", "catalog.yaml"),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	if value := os.Getenv(key); value != "" {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid decimal for %s: %q (%w)", key, value, err)
		}
		return d, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
