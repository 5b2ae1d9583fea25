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
	"errors"
	"strings"
)

// ErrInvalid is matched by every *Error.
var ErrInvalid = errors.New("validation failed")

// Error carries a failed Result through an error return.
type Error struct {
	Result Result
}

func (e *Error) Error() string {
	return ErrInvalid.Error() + ": " + strings.Join(e.Result.Errors, "; ")
}

func (e *Error) Unwrap() error {
	return ErrInvalid
}

// Err returns nil for a valid result and an *Error otherwise.
func (r Result) Err() error {
	if r.IsValid {
		return nil
	}
	return &Error{Result: r}
}
