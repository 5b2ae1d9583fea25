package fx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smsglobe-go/internal/cache"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	rate  decimal.Decimal
	err   error
	calls int
}

func (s *countingSource) Rate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	s.calls++
	if s.err != nil {
		return decimal.Zero, s.err
	}
	return s.rate, nil
}

var t0 = time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

func TestGetOrRefresh_CachesForTTL(t *testing.T) {
	src := &countingSource{rate: decimal.RequireFromString("0.0112")}
	c := NewRateCache(src, Options{TTL: time.Hour})
	ctx := context.Background()

	q, err := c.GetOrRefresh(ctx, "rub/usd", t0)
	require.NoError(t, err)
	assert.Equal(t, SourceUpstream, q.Source)
	assert.Equal(t, PairRUBUSD, q.Pair)
	assert.True(t, q.Rate.Equal(decimal.RequireFromString("0.0112")))

	q, err = c.GetOrRefresh(ctx, PairRUBUSD, t0.Add(59*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, SourceMemory, q.Source)
	assert.Equal(t, t0, q.FetchedAt)
	assert.Equal(t, 1, src.calls)

	src.rate = decimal.RequireFromString("0.0115")
	q, err = c.GetOrRefresh(ctx, PairRUBUSD, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, SourceUpstream, q.Source)
	assert.True(t, q.Rate.Equal(decimal.RequireFromString("0.0115")))
	assert.Equal(t, 2, src.calls)
}

func TestGetOrRefresh_FallbackIsNotCached(t *testing.T) {
	src := &countingSource{err: errors.New("dial tcp: timeout")}
	c := NewRateCache(src, Options{Fallbacks: map[string]decimal.Decimal{PairRUBUSD: decimal.RequireFromString("0.011")}})
	ctx := context.Background()

	q, err := c.GetOrRefresh(ctx, PairRUBUSD, t0)
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, q.Source)
	assert.True(t, q.Rate.Equal(decimal.RequireFromString("0.011")))

	src.err = nil
	src.rate = decimal.RequireFromString("0.012")
	q, err = c.GetOrRefresh(ctx, PairRUBUSD, t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, SourceUpstream, q.Source)
	assert.Equal(t, 2, src.calls)
}

func TestGetOrRefresh_NoFallback(t *testing.T) {
	c := NewRateCache(&countingSource{err: errors.New("down")}, Options{})
	_, err := c.GetOrRefresh(context.Background(), "EUR/USD", t0)
	assert.ErrorContains(t, err, "unable to fetch rate for EUR/USD")
}

func TestGetOrRefresh_InvalidPair(t *testing.T) {
	c := NewRateCache(&countingSource{}, Options{})
	_, err := c.GetOrRefresh(context.Background(), "RUBUSD", t0)
	assert.ErrorContains(t, err, "invalid currency pair")
}

func TestGetOrRefresh_RedisShared(t *testing.T) {
	db, mock := redismock.NewClientMock()
	src := &countingSource{rate: decimal.RequireFromString("0.0112")}
	c := NewRateCache(src, Options{TTL: time.Hour, Redis: cache.NewFromClient(db)})
	ctx := context.Background()

	shared, err := json.Marshal(Entry{Rate: decimal.RequireFromString("0.0110"), FetchedAt: t0.Add(-10 * time.Minute)})
	require.NoError(t, err)
	mock.ExpectGet("fx:rate:RUB/USD").SetVal(string(shared))

	q, err := c.GetOrRefresh(ctx, PairRUBUSD, t0)
	require.NoError(t, err)
	assert.Equal(t, SourceRedis, q.Source)
	assert.True(t, q.Rate.Equal(decimal.RequireFromString("0.011")))
	assert.Equal(t, 0, src.calls)

	// a miss in redis goes upstream and shares the result
	later := t0.Add(2 * time.Hour)
	fresh, err := json.Marshal(Entry{Rate: decimal.RequireFromString("0.0112"), FetchedAt: later})
	require.NoError(t, err)
	mock.ExpectGet("fx:rate:RUB/USD").RedisNil()
	mock.ExpectSet("fx:rate:RUB/USD", fresh, time.Hour).SetVal("OK")

	q, err = c.GetOrRefresh(ctx, PairRUBUSD, later)
	require.NoError(t, err)
	assert.Equal(t, SourceUpstream, q.Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConvert(t *testing.T) {
	c := NewRateCache(&countingSource{rate: decimal.RequireFromString("0.011")}, Options{})
	amount, q, err := c.Convert(context.Background(), decimal.NewFromInt(100), PairRUBUSD, t0)
	require.NoError(t, err)
	assert.Equal(t, SourceUpstream, q.Source)
	assert.True(t, amount.Equal(decimal.RequireFromString("1.1")))
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/RUB", r.URL.Path)
		_, _ = w.Write([]byte(`{"result":"success","base_code":"RUB","rates":{"USD":0.011234,"EUR":0.0104}}`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/", nil)
	rate, err := src.Rate(context.Background(), "RUB", "USD")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.011234")))

	_, err = src.Rate(context.Background(), "RUB", "GBP")
	assert.ErrorContains(t, err, "no GBP rate")
}
