package downstream

import (
	"context"
	"errors"
	"time"

	"github.com/revittco/mcpgate/internal/config"
)

type retryPolicy struct {
	enabled     bool
	maxRetries  int
	baseDelay   time.Duration
	exponential bool
}

func retryPolicyFrom(c config.ErrorHandlingConfig) retryPolicy {
	return retryPolicy{
		enabled:     c.RetryOnFailure,
		maxRetries:  c.MaxRetries,
		baseDelay:   c.RetryDelay(),
		exponential: c.ExponentialBackoff,
	}
}

// delay returns the wait before retry n (1-based).
func (p retryPolicy) delay(n int) time.Duration {
	if !p.exponential || n <= 1 {
		return p.baseDelay
	}
	return p.baseDelay << (n - 1)
}

// shouldRetry reports whether another attempt may follow the failed
// attempt number n (0-based).
func (p retryPolicy) shouldRetry(ctx context.Context, n int, err error) bool {
	if !p.enabled || n >= p.maxRetries || ctx.Err() != nil {
		return false
	}
	return retryable(err)
}

// retryable is true for transport failures (including per-attempt
// timeouts) and 5xx responses. Everything else is final.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var te *TransportError
	if errors.As(err, &te) {
		return !errors.Is(err, context.Canceled)
	}
	return false
}
