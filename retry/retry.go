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

package retry

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"
)

// ErrInvalidMaxAttempts indicates a policy with no attempts.
var ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

// Policy describes how many times an operation runs and how long to wait between runs.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first (must be > 0).
	MaxAttempts int

	// Delay returns the wait after the given failed attempt (1-based).
	// Nil means no wait.
	Delay func(attempt int) time.Duration

	// Retryable decides whether an error is worth another attempt.
	// Nil means every error is retried.
	Retryable func(err error) bool
}

// Fixed waits the same delay after every failed attempt.
func Fixed(maxAttempts int, delay time.Duration) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		Delay:       func(int) time.Duration { return delay },
	}
}

// Exponential waits baseDelay * 2^(attempt-1) after each failed attempt.
func Exponential(maxAttempts int, baseDelay time.Duration) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		Delay:       func(attempt int) time.Duration { return baseDelay << (attempt - 1) },
	}
}

// ExponentialJitter adds a uniform random wait in [0, maxJitter) to Exponential.
func ExponentialJitter(maxAttempts int, baseDelay, maxJitter time.Duration) Policy {
	p := Exponential(maxAttempts, baseDelay)
	exp := p.Delay
	p.Delay = func(attempt int) time.Duration {
		d := exp(attempt)
		if maxJitter > 0 {
			d += time.Duration(rand.Int64N(int64(maxJitter)))
		}
		return d
	}
	return p
}

// If returns a copy of p that only retries errors accepted by retryable.
func (p Policy) If(retryable func(err error) bool) Policy {
	p.Retryable = retryable
	return p
}

// Do runs operation until it succeeds, the policy is exhausted, a
// non-retryable error occurs or ctx is done.
// Returns the error from the last attempt if all attempts fail.
func Do(ctx context.Context, policy Policy, operation func() error) error {
	if policy.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		if policy.Retryable != nil && !policy.Retryable(lastErr) {
			slog.Debug("operation failed with permanent error", "attempt", attempt, "error", lastErr)
			return lastErr
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", policy.MaxAttempts, "error", lastErr)

		// Don't sleep after the last attempt
		if attempt == policy.MaxAttempts {
			break
		}

		if err := Sleep(ctx, policy.delay(attempt)); err != nil {
			return err
		}
	}

	return lastErr
}

func (p Policy) delay(attempt int) time.Duration {
	if p.Delay == nil {
		return 0
	}
	return p.Delay(attempt)
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
