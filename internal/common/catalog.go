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

package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"smsglobe-go/internal/fx"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// ErrProductNotFound is returned when the catalog has no entry for a service and country.
var ErrProductNotFound = errors.New("product not found in catalog")

// Product is one sellable service/country pair. Cost is the upstream price in RUB.
type Product struct {
	Service string `yaml:"service"`
	Country string `yaml:"country"`
	Name    string `yaml:"name"`
	Cost    string `yaml:"cost"`
	Markup  string `yaml:"markup"`

	cost   decimal.Decimal
	markup decimal.Decimal
}

type catalogFile struct {
	Products []Product `yaml:"products"`
}

// Catalog indexes products by "service:country".
type Catalog struct {
	products map[string]Product
}

func productKey(service, country string) string {
	return service + ":" + country
}

func LoadCatalog(catalogFile string) (*Catalog, error) {
	var catalogPath string
	if filepath.IsAbs(catalogFile) {
		catalogPath = catalogFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		catalogPath = filepath.Join(wd, catalogFile)
	}

	data, err := os.ReadFile(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", catalogFile, err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unable to parse catalog: %w", err)
	}

	catalog := &Catalog{products: make(map[string]Product, len(file.Products))}
	for i, p := range file.Products {
		if p.Service == "" {
			return nil, fmt.Errorf("product at index %d missing service", i)
		}
		if p.Country == "" {
			return nil, fmt.Errorf("product at index %d missing country", i)
		}

		cost, err := decimal.NewFromString(p.Cost)
		if err != nil || !cost.IsPositive() {
			return nil, fmt.Errorf("product at index %d has invalid cost %q", i, p.Cost)
		}
		p.cost = cost

		p.markup = decimal.Zero
		if p.Markup != "" {
			markup, err := decimal.NewFromString(p.Markup)
			if err != nil || markup.IsNegative() {
				return nil, fmt.Errorf("product at index %d has invalid markup %q", i, p.Markup)
			}
			p.markup = markup
		}

		catalog.products[productKey(p.Service, p.Country)] = p
	}
	return catalog, nil
}

func (c *Catalog) Lookup(service, country string) (Product, bool) {
	p, ok := c.products[productKey(service, country)]
	return p, ok
}

func (c *Catalog) Len() int {
	return len(c.products)
}

// CatalogPricer sells catalog products in USD at the current RUB/USD rate.
type CatalogPricer struct {
	catalog *Catalog
	rates   *fx.RateCache
	now     func() time.Time
}

func NewCatalogPricer(catalog *Catalog, rates *fx.RateCache) *CatalogPricer {
	return &CatalogPricer{catalog: catalog, rates: rates, now: time.Now}
}

// Price returns cost × rate × (1 + markup), rounded to cents.
func (p *CatalogPricer) Price(ctx context.Context, service, country string) (decimal.Decimal, error) {
	product, ok := p.catalog.Lookup(service, country)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrProductNotFound, productKey(service, country))
	}

	converted, _, err := p.rates.Convert(ctx, product.cost, fx.PairRUBUSD, p.now())
	if err != nil {
		return decimal.Zero, err
	}
	return converted.Mul(decimal.NewFromInt(1).Add(product.markup)).Round(2), nil
}
