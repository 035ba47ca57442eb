// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commands

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

// ErrIncomplete is returned when a run finished but left entries behind.
var ErrIncomplete = errors.New("transfer incomplete")

// ⛔ UsageError is reported before any transfer starts. Message is printed
// verbatim.
type UsageError struct {
	Message string
	Err     error
}

func (e *UsageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err)
	}
	return e.Message
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// NewUsageError wraps err as a usage error with message.
func NewUsageError(message string, err error) *UsageError {
	return &UsageError{Message: message, Err: err}
}
