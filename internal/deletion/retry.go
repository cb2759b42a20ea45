/*
Copyright (c) 2025 The shopvac Authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package deletion

import (
	"context"
	"math/rand"
	"strings"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// RetryConfig defines the retry behavior for delete calls
type RetryConfig struct {
	// MaxAttempts is the total number of delete calls per pod, including the first
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

// DefaultRetryConfig returns the retry settings used when none are given.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
	}
}

// isRetryableError determines if a delete error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case apierrors.IsTooManyRequests(err),
		apierrors.IsConflict(err),
		apierrors.IsServerTimeout(err),
		apierrors.IsTimeout(err),
		apierrors.IsServiceUnavailable(err),
		apierrors.IsInternalError(err):
		return true
	}

	return false
}

// isPreconditionFailure reports whether the API server refused the delete
// because the pod with this name now has a different UID.
func isPreconditionFailure(err error) bool {
	return apierrors.IsConflict(err) && strings.Contains(strings.ToLower(err.Error()), "precondition")
}

// calculateBackoff calculates the wait before the given retry (0-based)
func (c RetryConfig) calculateBackoff(attempt int) time.Duration {
	factor := c.BackoffFactor
	if factor < 1 {
		factor = 2.0
	}
	base := float64(c.InitialBackoff)
	for i := 0; i < attempt; i++ {
		base *= factor
	}

	// jitter of +/-20%
	jitter := (rand.Float64() * 0.4) - 0.2
	backoff := time.Duration(base * (1 + jitter))

	if c.MaxBackoff > 0 && backoff > c.MaxBackoff {
		backoff = c.MaxBackoff
	}

	return backoff
}

// executeWithRetry runs operation until it succeeds, fails with a
// non-retryable error, or MaxAttempts is reached. It returns the number of
// attempts made together with the last error.
func (c RetryConfig) executeWithRetry(ctx context.Context, operation func() error) (int, error) {
	maxAttempts := c.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return attempt, lastErr
			}
			return attempt, err
		}

		lastErr = operation()
		if lastErr == nil {
			return attempt + 1, nil
		}
		if !isRetryableError(lastErr) || isPreconditionFailure(lastErr) {
			return attempt + 1, lastErr
		}
		if attempt == maxAttempts-1 {
			break
		}

		timer := time.NewTimer(c.calculateBackoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt + 1, lastErr
		case <-timer.C:
		}
	}

	return maxAttempts, lastErr
}
