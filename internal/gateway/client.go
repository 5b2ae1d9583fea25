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

package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"smsglobe-go/internal/metrics"
	"smsglobe-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

const (
	defaultBaseURL  = "https://api.sms-activate.ae/stubs/handler_api.php"
	defaultTimeout  = 15 * time.Second
	formContentType = "application/x-www-form-urlencoded"
	maxBodyBytes    = 64 << 10
)

// setStatus codes understood by the upstream.
const (
	StatusReady    = 1
	StatusRetry    = 3
	StatusComplete = 6
	StatusCancel   = 8
)

var (
	ErrInvalidCredential = errors.New("sms gateway rejected api key")
	ErrNoNumbers         = errors.New("no numbers available")
	ErrNoBalance         = errors.New("sms gateway account balance exhausted")
	ErrNoActivation      = errors.New("activation unknown to sms gateway")
	ErrBadStatus         = errors.New("sms gateway rejected status")
)

// knownErrors maps upstream error bodies to sentinels.
var knownErrors = map[string]error{
	"BAD_KEY":       ErrInvalidCredential,
	"NO_NUMBERS":    ErrNoNumbers,
	"NO_BALANCE":    ErrNoBalance,
	"NO_ACTIVATION": ErrNoActivation,
	"BAD_STATUS":    ErrBadStatus,
}

// Client talks to an SMS-Activate compatible handler_api endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	metrics *metrics.Metrics
}

// Number is a freshly leased phone number.
type Number struct {
	ActivationId string
	Phone        string
}

func New(cfg models.GatewayConfig, m *metrics.Metrics) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient, err := newHTTPClient(timeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create http client: %w", err)
	}

	zap.L().Info("SMS gateway client created", zap.String("base_url", base), zap.Duration("timeout", timeout))
	return &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		http:    httpClient,
		metrics: m,
	}, nil
}

func newHTTPClient(timeout time.Duration) (*http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: timeout,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   10 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, err
	}

	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

// GetStatus returns the raw status line for an activation.
func (c *Client) GetStatus(ctx context.Context, activationId string) (string, error) {
	body, err := c.postForm(ctx, "getStatus", url.Values{"id": {activationId}})
	if err != nil {
		return "", err
	}
	if err := classify(body); err != nil {
		return "", err
	}
	return body, nil
}

// SetStatus sends a status change and returns the body as received. The body
// is not interpreted; only transport and HTTP failures are errors.
func (c *Client) SetStatus(ctx context.Context, activationId string, status int) (string, error) {
	return c.postForm(ctx, "setStatus", url.Values{
		"id":     {activationId},
		"status": {strconv.Itoa(status)},
	})
}

// GetNumber leases a number for service in country.
func (c *Client) GetNumber(ctx context.Context, service, country string) (*Number, error) {
	body, err := c.postForm(ctx, "getNumber", url.Values{
		"service": {service},
		"country": {country},
	})
	if err != nil {
		return nil, err
	}
	if err := classify(body); err != nil {
		return nil, err
	}

	parts := strings.Split(body, ":")
	if len(parts) != 3 || parts[0] != "ACCESS_NUMBER" || parts[1] == "" || parts[2] == "" {
		return nil, fmt.Errorf("unexpected getNumber response: %q", body)
	}
	return &Number{ActivationId: parts[1], Phone: parts[2]}, nil
}

// GetBalance returns the upstream account balance in RUB.
func (c *Client) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	body, err := c.postForm(ctx, "getBalance", url.Values{})
	if err != nil {
		return decimal.Zero, err
	}
	if err := classify(body); err != nil {
		return decimal.Zero, err
	}

	value, ok := strings.CutPrefix(body, "ACCESS_BALANCE:")
	if !ok {
		return decimal.Zero, fmt.Errorf("unexpected getBalance response: %q", body)
	}
	balance, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to parse balance %q: %w", value, err)
	}
	return balance, nil
}

func (c *Client) postForm(ctx context.Context, action string, values url.Values) (string, error) {
	values.Set("api_key", c.apiKey)
	values.Set("action", action)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(values.Encode()))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", formContentType)
	req.Header.Set("User-Agent", "smsglobe/gateway-client")

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveGateway(action, "error", time.Since(start))
		c.metrics.IncError("gateway")
		return "", fmt.Errorf("sms gateway %s: %w", action, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	c.metrics.ObserveGateway(action, strconv.Itoa(res.StatusCode), time.Since(start))
	if err != nil {
		return "", fmt.Errorf("read %s response: %w", action, err)
	}
	body := strings.TrimSpace(string(raw))

	if res.StatusCode >= 400 {
		c.metrics.IncError("gateway")
		if known := classify(body); known != nil {
			return "", known
		}
		return "", fmt.Errorf("sms gateway error: action=%s status=%d body=%s", action, res.StatusCode, body)
	}

	zap.L().Debug("SMS gateway response", zap.String("action", action), zap.String("body", body))
	return body, nil
}

func classify(body string) error {
	if err, ok := knownErrors[body]; ok {
		return fmt.Errorf("%w: %s", err, body)
	}
	return nil
}
