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

package activation

import (
	"strings"

	"smsglobe-go/internal/models"
)

// Upstream status lines.
const (
	lineStatusOK       = "STATUS_OK"
	lineFullSMS        = "FULL_SMS"
	lineStatusWaitCode = "STATUS_WAIT_CODE"
	lineStatusCancel   = "STATUS_CANCEL"
)

// Status is the normalized reading of an upstream status line.
type Status struct {
	Status  string  `json:"status"`
	SmsCode *string `json:"smsCode"`
	SmsText *string `json:"smsText"`
}

// ParseStatus maps one upstream status line to a normalized status.
// Every input yields exactly one of waiting, completed or cancelled, and
// code and text are only ever set for completed. Lines it does not
// recognise read as still waiting.
func ParseStatus(line string) Status {
	line = strings.TrimSpace(line)

	switch {
	case strings.HasPrefix(line, lineStatusOK):
		parts := strings.SplitN(line, ":", 3)
		return Status{Status: models.ActivationCompleted, SmsCode: field(parts, 1)}
	case strings.HasPrefix(line, lineFullSMS):
		// the message text may itself contain colons
		parts := strings.SplitN(line, ":", 3)
		return Status{Status: models.ActivationCompleted, SmsCode: field(parts, 1), SmsText: field(parts, 2)}
	case line == lineStatusWaitCode:
		return Status{Status: models.ActivationWaiting}
	case line == lineStatusCancel:
		return Status{Status: models.ActivationCancelled}
	default:
		return Status{Status: models.ActivationWaiting}
	}
}

func field(parts []string, i int) *string {
	if i >= len(parts) {
		return nil
	}
	v := parts[i]
	return &v
}
