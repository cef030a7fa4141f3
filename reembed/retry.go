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

package reembed

import (
	"context"
	"log/slog"
	"time"
)

// Backoff is a bounded retry schedule. The delay before attempt n+1 is
// BaseDelay * 2^(n-1), capped at MaxDelay when MaxDelay is positive.
type Backoff struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultBackoff is used when callers have no preference.
var DefaultBackoff = Backoff{Attempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}

func (b Backoff) delay(attempt int) time.Duration {
	d := b.BaseDelay << (attempt - 1)
	if d < b.BaseDelay || (b.MaxDelay > 0 && d > b.MaxDelay) {
		return b.MaxDelay
	}
	return d
}

// Retry calls op until it succeeds or Attempts calls have failed, returning
// the last error. Context cancellation stops the schedule and returns ctx.Err().
func (b Backoff) Retry(ctx context.Context, op func(ctx context.Context) error) error {
	if b.Attempts <= 0 {
		return ErrInvalidAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= b.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = op(ctx); lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		if attempt == b.Attempts {
			break
		}
		slog.Debug("operation failed, will retry", "attempt", attempt, "attempts", b.Attempts, "err", lastErr)

		timer := time.NewTimer(b.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
