package common

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"smsglobe-go/internal/activation"
	"smsglobe-go/internal/cache"
	"smsglobe-go/internal/database"
	"smsglobe-go/internal/formance"
	"smsglobe-go/internal/fx"
	"smsglobe-go/internal/gateway"
	"smsglobe-go/internal/metrics"
	"smsglobe-go/internal/models"
	"smsglobe-go/internal/postgres"
	"smsglobe-go/internal/reconcile"
	"smsglobe-go/internal/store"
	"smsglobe-go/migrations"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	Store       store.LedgerStore
	Metrics     *metrics.Metrics
	Redis       *cache.Redis
	Rates       *fx.RateCache
	Journal     *formance.Journal
	Gateway     *gateway.Client
	Catalog     *Catalog
	Activations *activation.Service
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeStore opens the configured backend.
// Useful for read-only operations like balance reports.
func InitializeStore(ctx context.Context, cfg *models.Config) (store.LedgerStore, error) {
	switch cfg.Database.Backend {
	case models.BackendPostgres:
		return postgres.New(ctx, cfg.Database, migrations.Files)
	case models.BackendSQLite, "":
		return database.NewService(ctx, cfg.Database)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Database.Backend)
	}
}

// InitializeServices wires every component. Redis and the correction
// journal are optional: when unconfigured or unreachable they stay nil.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	st, err := InitializeStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	services := &Services{
		Store:   st,
		Metrics: metrics.Registry(cfg.Server.MetricsNamespace),
	}

	if cfg.Redis.Addr != "" {
		r := cache.New(cfg.Redis)
		if err := r.Ping(ctx); err != nil {
			zap.L().Warn("Redis unreachable, continuing without it", zap.Error(err))
			_ = r.Close()
		} else {
			services.Redis = r
		}
	}

	services.Rates = fx.NewRateCache(fx.NewHTTPSource(cfg.FX.SourceURL, &http.Client{Timeout: cfg.Gateway.Timeout}), fx.Options{
		TTL:       cfg.FX.TTL,
		Fallbacks: map[string]decimal.Decimal{fx.PairRUBUSD: cfg.FX.FallbackRUBUSD},
		Redis:     services.Redis,
		Metrics:   services.Metrics,
	})

	if cfg.Formance.StackURL != "" {
		journal, err := formance.NewJournal(ctx, cfg.Formance)
		if err != nil {
			zap.L().Warn("Correction journal unavailable, continuing without it", zap.Error(err))
		} else {
			services.Journal = journal
		}
	}

	gw, err := gateway.New(cfg.Gateway, services.Metrics)
	if err != nil {
		services.Close()
		return nil, err
	}
	services.Gateway = gw

	catalog, err := LoadCatalog(cfg.Catalog.File)
	if err != nil {
		zap.L().Warn("Catalog not loaded, purchases are disabled", zap.String("file", cfg.Catalog.File), zap.Error(err))
		catalog = &Catalog{products: map[string]Product{}}
	}
	services.Catalog = catalog
	zap.L().Info("Catalog loaded", zap.Int("products", catalog.Len()))

	services.Activations = activation.NewService(st, gw, NewCatalogPricer(catalog, services.Rates), services.Metrics)
	return services, nil
}

// NewReconciler builds a reconciler from config. dryRun overrides the configured mode when true.
func (cs *Services) NewReconciler(cfg *models.Config, dryRun bool) *reconcile.Reconciler {
	opts := reconcile.Options{
		Tolerance: cfg.Reconcile.Tolerance,
		UserDelay: cfg.Reconcile.UserDelay,
		DryRun:    cfg.Reconcile.DryRun || dryRun,
		Metrics:   cs.Metrics,
	}
	if cs.Journal != nil {
		opts.Journal = cs.Journal
	}
	return reconcile.New(cs.Store, opts)
}

func (cs *Services) Close() {
	if cs.Redis != nil {
		if err := cs.Redis.Close(); err != nil {
			zap.L().Warn("Failed to close redis", zap.Error(err))
		}
	}
	if cs.Store != nil {
		cs.Store.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
