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

package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// Record is the normalized shape every validator works on.
type Record map[string]any

type undefinedValue struct{}

// Undefined marks a field that was declared but never given a value.
// Persisting it would corrupt the stored record, so validators reject it.
var Undefined = undefinedValue{}

// Result collects every problem found instead of stopping at the first one.
type Result struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Check inspects a record and appends to the result.
type Check func(rec Record, res *Result)

// Validate runs every check against rec.
func Validate(rec Record, checks ...Check) Result {
	res := Result{Errors: []string{}, Warnings: []string{}}
	for _, check := range checks {
		check(rec, &res)
	}
	res.IsValid = len(res.Errors) == 0
	return res
}

// FormatAmount renders a currency amount the way messages show it, e.g. $10.00.
func FormatAmount(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// String requires field to hold a string. An empty string is accepted.
func String(field string) Check {
	return func(rec Record, res *Result) {
		if _, ok := rec[field].(string); !ok {
			res.errorf("%s must be a string", field)
		}
	}
}

// Identifier requires field to hold a non-empty string.
func Identifier(field string) Check {
	return func(rec Record, res *Result) {
		v, present := rec[field]
		if !present || v == nil || v == Undefined {
			res.errorf("%s is required", field)
			return
		}
		s, ok := v.(string)
		if !ok {
			res.errorf("%s must be a string", field)
			return
		}
		if s == "" {
			res.errorf("%s is required", field)
		}
	}
}

// Number requires field to hold a numeric value.
func Number(field string) Check {
	return func(rec Record, res *Result) {
		if _, ok := AsDecimal(rec[field]); !ok {
			res.errorf("%s must be a number", field)
		}
	}
}

// NonNegative rejects a numeric field below zero. Absent fields pass.
func NonNegative(field string) Check {
	return func(rec Record, res *Result) {
		v, present := rec[field]
		if !present {
			return
		}
		d, ok := AsDecimal(v)
		if !ok {
			res.errorf("%s must be a number", field)
			return
		}
		if d.IsNegative() {
			res.errorf("%s cannot be negative", field)
		}
	}
}

// Positive requires field to be a number strictly greater than zero.
func Positive(field string) Check {
	return func(rec Record, res *Result) {
		d, ok := AsDecimal(rec[field])
		if !ok {
			res.errorf("%s must be a number", field)
			return
		}
		if !d.IsPositive() {
			res.errorf("%s must be positive", field)
		}
	}
}

// OneOf requires a string field to be one of allowed. Non-strings are left
// to the String or Identifier checks.
func OneOf(field string, allowed []string) Check {
	return func(rec Record, res *Result) {
		s, ok := rec[field].(string)
		if !ok {
			return
		}
		for _, a := range allowed {
			if s == a {
				return
			}
		}
		res.errorf("invalid %s: %q", field, s)
	}
}

// SignMatchesType enforces that credit kinds carry a positive amount and
// debit kinds a negative one.
func SignMatchesType(typeField, amountField string, isCredit, isDebit func(string) bool) Check {
	return func(rec Record, res *Result) {
		kind, ok := rec[typeField].(string)
		if !ok {
			return
		}
		amount, ok := AsDecimal(rec[amountField])
		if !ok {
			return
		}
		switch {
		case isCredit(kind) && !amount.IsPositive():
			res.errorf("%s %s must be positive, got %s", kind, amountField, amount.String())
		case isDebit(kind) && !amount.IsNegative():
			res.errorf("%s %s must be negative, got %s", kind, amountField, amount.String())
		}
	}
}

// WarnAbove flags a numeric field whose magnitude exceeds limit.
func WarnAbove(field string, limit decimal.Decimal, label string) Check {
	return func(rec Record, res *Result) {
		d, ok := AsDecimal(rec[field])
		if !ok {
			return
		}
		if d.Abs().GreaterThan(limit) {
			res.warnf("%s: %s", label, FormatAmount(d.Abs()))
		}
	}
}

// NoUndefined walks a nested field and reports every path holding Undefined.
func NoUndefined(field string) Check {
	return func(rec Record, res *Result) {
		v, present := rec[field]
		if !present || v == nil {
			return
		}
		for _, path := range undefinedPaths(v, "") {
			res.errorf("%s.%s is undefined", field, path)
		}
	}
}

func undefinedPaths(v any, prefix string) []string {
	join := func(key string) string {
		if prefix == "" {
			return key
		}
		return prefix + "." + key
	}

	var paths []string
	switch node := v.(type) {
	case undefinedValue:
		if prefix != "" {
			paths = append(paths, prefix)
		}
	case Record:
		paths = append(paths, undefinedPaths(map[string]any(node), prefix)...)
	case map[string]any:
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			paths = append(paths, undefinedPaths(node[k], join(k))...)
		}
	case []any:
		for i, item := range node {
			paths = append(paths, undefinedPaths(item, join(strconv.Itoa(i)))...)
		}
	}
	return paths
}

// AsDecimal converts the numeric representations a record may carry.
// NaN and infinities are not numbers here.
func AsDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero, false
		}
		return *n, true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt32(n), true
	case int64:
		return decimal.NewFromInt(n), true
	case float32:
		return fromFloat(float64(n))
	case float64:
		return fromFloat(n)
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	return decimal.Zero, false
}

func fromFloat(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}
