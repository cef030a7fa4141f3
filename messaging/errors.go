// Copyright 2025 Poiesic Systems
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

package messaging

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownAgent is returned when an operation names an agent that never registered.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrDeliveryPartialFailure indicates some, but not all, targets of a publish failed.
	ErrDeliveryPartialFailure = errors.New("delivery partially failed")

	// ErrDeliveryFailed indicates every target of a publish failed.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrBrokerStopped is returned by operations attempted after Stop.
	ErrBrokerStopped = errors.New("broker stopped")
)

// DeliveryError reports per-target failures of a single publish.
type DeliveryError struct {
	MessageID string
	Failed    map[string]error
	Delivered int
}

func (e *DeliveryError) Error() string {
	targets := make([]string, 0, len(e.Failed))
	for t := range e.Failed {
		targets = append(targets, t)
	}
	sort.Strings(targets)

	parts := make([]string, 0, len(targets))
	for _, t := range targets {
		parts = append(parts, fmt.Sprintf("%s: %v", t, e.Failed[t]))
	}
	return fmt.Sprintf("message %s: %d of %d deliveries failed (%s)",
		e.MessageID, len(e.Failed), len(e.Failed)+e.Delivered, strings.Join(parts, "; "))
}

// Unwrap exposes the classification sentinel followed by every target error.
func (e *DeliveryError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed)+1)
	if e.Delivered > 0 {
		errs = append(errs, ErrDeliveryPartialFailure)
	} else {
		errs = append(errs, ErrDeliveryFailed)
	}
	for _, err := range e.Failed {
		errs = append(errs, err)
	}
	return errs
}
