package common

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"smsglobe-go/internal/fx"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
products:
  - service: tg
    country: "0"
    name: Telegram (Russia)
    cost: 90
    markup: "0.5"
  - service: wa
    country: "6"
    name: WhatsApp (Indonesia)
    cost: "12.5"
`

type fixedSource struct {
	rate decimal.Decimal
	err  error
}

func (s fixedSource) Rate(context.Context, string, string) (decimal.Decimal, error) {
	return s.rate, s.err
}

func TestParseCatalog(t *testing.T) {
	catalog, err := ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.Len())

	p, ok := catalog.Lookup("tg", "0")
	require.True(t, ok)
	assert.Equal(t, "Telegram (Russia)", p.Name)
	assert.True(t, p.cost.Equal(decimal.NewFromInt(90)))
	assert.True(t, p.markup.Equal(decimal.RequireFromString("0.5")))

	p, ok = catalog.Lookup("wa", "6")
	require.True(t, ok)
	assert.True(t, p.markup.IsZero())

	_, ok = catalog.Lookup("tg", "6")
	assert.False(t, ok)
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing service": "products:\n  - country: \"0\"\n    cost: 1\n",
		"missing country": "products:\n  - service: tg\n    cost: 1\n",
		"zero cost":       "products:\n  - service: tg\n    country: \"0\"\n    cost: 0\n",
		"bad markup":      "products:\n  - service: tg\n    country: \"0\"\n    cost: 1\n    markup: -1\n",
		"not yaml":        "products: [",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o600))

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.Len())

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCatalogPricer(t *testing.T) {
	catalog, err := ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)

	rates := fx.NewRateCache(fixedSource{rate: decimal.RequireFromString("0.011")}, fx.Options{TTL: time.Hour})
	pricer := NewCatalogPricer(catalog, rates)

	// 90 RUB * 0.011 * 1.5 = 1.485
	price, err := pricer.Price(context.Background(), "tg", "0")
	require.NoError(t, err)
	assert.Equal(t, "1.49", price.StringFixed(2))

	// 12.5 RUB * 0.011 = 0.1375
	price, err = pricer.Price(context.Background(), "wa", "6")
	require.NoError(t, err)
	assert.Equal(t, "0.14", price.StringFixed(2))

	_, err = pricer.Price(context.Background(), "xx", "1")
	assert.True(t, errors.Is(err, ErrProductNotFound))
}

func TestCatalogPricer_UsesFallbackRate(t *testing.T) {
	catalog, err := ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)

	rates := fx.NewRateCache(fixedSource{err: errors.New("offline")}, fx.Options{
		Fallbacks: map[string]decimal.Decimal{fx.PairRUBUSD: decimal.RequireFromString("0.01")},
	})
	price, err := NewCatalogPricer(catalog, rates).Price(context.Background(), "tg", "0")
	require.NoError(t, err)
	assert.Equal(t, "1.35", price.StringFixed(2))
}
