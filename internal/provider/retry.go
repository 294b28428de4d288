package provider

import (
	"context"
	"net/http"
	"time"
)

// RetryPolicy bounds the retry loop used against providers that need it:
// at most MaxAttempts attempts, sleeping BaseDelay doubled per retry
// between them (delay = BaseDelay * 2^(attempt-1)).
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy matches the upstream guidance for the Hugging Face
// inference endpoint: three attempts, one second base delay.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}

// Delay returns the backoff delay after the given attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.BaseDelay << (attempt - 1)
}

// retryableStatus reports whether a provider status code is worth
// retrying. Classification is by status code only: 429 (rate limited),
// 503 (model loading), and 500 (transient server error).
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// sleepContext sleeps for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
