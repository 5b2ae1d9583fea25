package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smsglobe-go/internal/metrics"
	"smsglobe-go/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	action string
	form   map[string]string
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, c call)) (*Client, *metrics.Metrics, *[]call) {
	t.Helper()
	var calls []call
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		c := call{action: r.PostForm.Get("action"), form: map[string]string{}}
		for k := range r.PostForm {
			c.form[k] = r.PostForm.Get(k)
		}
		calls = append(calls, c)
		handler(w, c)
	}))
	t.Cleanup(srv.Close)

	m := metrics.New(prometheus.NewRegistry(), "test")
	client, err := New(models.GatewayConfig{BaseURL: srv.URL, APIKey: "secret", Timeout: 2 * time.Second}, m)
	require.NoError(t, err)
	return client, m, &calls
}

func TestGetStatus(t *testing.T) {
	client, m, calls := newTestClient(t, func(w http.ResponseWriter, c call) {
		_, _ = w.Write([]byte("STATUS_OK:482913\n"))
	})

	line, err := client.GetStatus(context.Background(), "1001")
	require.NoError(t, err)
	assert.Equal(t, "STATUS_OK:482913", line)

	require.Len(t, *calls, 1)
	assert.Equal(t, "getStatus", (*calls)[0].action)
	assert.Equal(t, "secret", (*calls)[0].form["api_key"])
	assert.Equal(t, "1001", (*calls)[0].form["id"])
	assert.Equal(t, float64(1), testutil.ToFloat64(m.GatewayRequests.WithLabelValues("getStatus", "200")))
}

func TestGetStatus_KnownErrors(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, c call) {
		_, _ = w.Write([]byte("NO_ACTIVATION"))
	})

	_, err := client.GetStatus(context.Background(), "1001")
	assert.True(t, errors.Is(err, ErrNoActivation))
}

func TestSetStatus_ReturnsBodyUninterpreted(t *testing.T) {
	client, _, calls := newTestClient(t, func(w http.ResponseWriter, c call) {
		_, _ = w.Write([]byte("EARLY_CANCEL_DENIED"))
	})

	body, err := client.SetStatus(context.Background(), "1001", StatusCancel)
	require.NoError(t, err)
	assert.Equal(t, "EARLY_CANCEL_DENIED", body)
	assert.Equal(t, "8", (*calls)[0].form["status"])
}

func TestGetNumber(t *testing.T) {
	client, _, calls := newTestClient(t, func(w http.ResponseWriter, c call) {
		_, _ = w.Write([]byte("ACCESS_NUMBER:1001:6281234567890"))
	})

	number, err := client.GetNumber(context.Background(), "tg", "6")
	require.NoError(t, err)
	assert.Equal(t, "1001", number.ActivationId)
	assert.Equal(t, "6281234567890", number.Phone)
	assert.Equal(t, "tg", (*calls)[0].form["service"])
	assert.Equal(t, "6", (*calls)[0].form["country"])
}

func TestGetNumber_Errors(t *testing.T) {
	tests := []struct {
		body    string
		wantErr error
	}{
		{"NO_NUMBERS", ErrNoNumbers},
		{"NO_BALANCE", ErrNoBalance},
		{"BAD_KEY", ErrInvalidCredential},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			client, _, _ := newTestClient(t, func(w http.ResponseWriter, c call) {
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := client.GetNumber(context.Background(), "tg", "6")
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	client, _, _ := newTestClient(t, func(w http.ResponseWriter, c call) {
		_, _ = w.Write([]byte("ACCESS_NUMBER:1001"))
	})
	_, err := client.GetNumber(context.Background(), "tg", "6")
	assert.ErrorContains(t, err, "unexpected getNumber response")
}

func TestGetBalance(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, c call) {
		_, _ = w.Write([]byte("ACCESS_BALANCE:152.75"))
	})

	balance, err := client.GetBalance(context.Background())
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("152.75")))
}

func TestHTTPErrorStatus(t *testing.T) {
	client, m, _ := newTestClient(t, func(w http.ResponseWriter, c call) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})

	_, err := client.SetStatus(context.Background(), "1001", StatusCancel)
	assert.ErrorContains(t, err, "status=502")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Errors.WithLabelValues("gateway")))
}
