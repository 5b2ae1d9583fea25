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

package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPSource reads rates from an endpoint answering GET <baseURL>/<BASE>
// with {"rates": {"USD": 0.011, ...}}.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

func NewHTTPSource(baseURL string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSource{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type ratesResponse struct {
	Result string                 `json:"result"`
	Rates  map[string]json.Number `json:"rates"`
}

func (s *HTTPSource) Rate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+base, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fx request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("fx source returned status %d", res.StatusCode)
	}

	var body ratesResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode rates: %w", err)
	}
	if body.Result != "" && body.Result != "success" {
		return decimal.Zero, fmt.Errorf("fx source result %q", body.Result)
	}

	raw, ok := body.Rates[quote]
	if !ok {
		return decimal.Zero, fmt.Errorf("no %s rate for base %s", quote, base)
	}
	rate, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s rate %q: %w", quote, raw.String(), err)
	}
	return rate, nil
}
