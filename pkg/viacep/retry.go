package viacep

import (
	"math/rand"
	"time"
)

// RetryConfig is the explicit retry policy for transient HTTP failures.
// It is a visible contract, not a knob buried inside a transport adapter.
type RetryConfig struct {
	// MaxRetries is the number of extra attempts after the initial
	// request.
	MaxRetries int

	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential growth.
	MaxBackoff time.Duration

	// BackoffMultiplier is the exponential growth factor.
	BackoffMultiplier float64

	// RetryableStatuses enumerates the HTTP statuses treated as
	// transient.
	RetryableStatuses []int
}

// DefaultRetryConfig returns the default retry policy: up to 5 extra
// attempts with waits of roughly 2s, 4s, 8s, 16s, 32s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        5,
		InitialBackoff:    2 * time.Second,
		MaxBackoff:        32 * time.Second,
		BackoffMultiplier: 2.0,
		RetryableStatuses: []int{429, 500, 502, 503, 504},
	}
}

// retryable reports whether a status code is in the transient set.
func (rc RetryConfig) retryable(status int) bool {
	for _, s := range rc.RetryableStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// withJitter spreads a backoff by ±20% to avoid synchronized retries.
func withJitter(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.8 + rand.Float64()*0.4))
}

// next advances the exponential backoff, honoring the cap.
func (rc RetryConfig) next(backoff time.Duration) time.Duration {
	backoff = time.Duration(float64(backoff) * rc.BackoffMultiplier)
	if backoff > rc.MaxBackoff {
		backoff = rc.MaxBackoff
	}
	return backoff
}
