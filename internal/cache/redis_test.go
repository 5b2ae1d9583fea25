package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestSetJSON(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewFromClient(db)

	mock.ExpectSet("k", []byte(`{"name":"a","count":2}`), time.Minute).SetVal("OK")

	require.NoError(t, r.SetJSON(context.Background(), "k", payload{Name: "a", Count: 2}, time.Minute))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJSON(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewFromClient(db)
	ctx := context.Background()

	mock.ExpectGet("k").SetVal(`{"name":"a","count":2}`)
	var got payload
	ok, err := r.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload{Name: "a", Count: 2}, got)

	mock.ExpectGet("missing").RedisNil()
	ok, err = r.GetJSON(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectGet("broken").SetErr(errors.New("connection refused"))
	_, err = r.GetJSON(ctx, "broken", &got)
	assert.ErrorContains(t, err, "redis get broken")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPing(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewFromClient(db)

	mock.ExpectPing().SetErr(errors.New("down"))
	assert.ErrorContains(t, r.Ping(context.Background()), "redis ping")
}
