package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig
	Reconcile ReconcileConfig
	Gateway   GatewayConfig
	Poller    PollerConfig
	Redis     RedisConfig
	Formance  FormanceConfig
	FX        FXConfig
	Server    ServerConfig
	Catalog   CatalogConfig
}

// Store backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Backend          string
	Path             string
	URL              string
	Schema           string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	PingTimeout      time.Duration
	CreateDummyUsers bool
}

// ReconcileConfig holds balance reconciliation settings
type ReconcileConfig struct {
	Tolerance decimal.Decimal
	UserDelay time.Duration
	DryRun    bool
}

// GatewayConfig holds upstream SMS gateway settings
type GatewayConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// PollerConfig holds activation status poller settings
type PollerConfig struct {
	Interval           time.Duration
	Concurrency        int
	ActivationLifetime time.Duration
}

// RedisConfig holds Redis connection settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	UseTLS   bool
}

// FormanceConfig holds the correction journal settings. An empty StackURL disables it.
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

// FXConfig holds exchange rate cache settings
type FXConfig struct {
	SourceURL      string
	TTL            time.Duration
	FallbackRUBUSD decimal.Decimal
}

// ServerConfig holds admin HTTP server settings
type ServerConfig struct {
	Addr             string
	MetricsNamespace string
	AllowedOrigins   []string
}

// CatalogConfig points at the product catalog file
type CatalogConfig struct {
	File string
}
