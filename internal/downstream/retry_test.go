package downstream

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestRetryPolicy_Delay(t *testing.T) {
	exp := retryPolicy{enabled: true, maxRetries: 3, baseDelay: 100 * time.Millisecond, exponential: true}
	flat := exp
	flat.exponential = false

	for n, want := range map[int]time.Duration{1: 100 * time.Millisecond, 2: 200 * time.Millisecond, 3: 400 * time.Millisecond} {
		if got := exp.delay(n); got != want {
			t.Errorf("exponential delay(%d) = %v, want %v", n, got, want)
		}
		if got := flat.delay(n); got != 100*time.Millisecond {
			t.Errorf("flat delay(%d) = %v, want 100ms", n, got)
		}
	}
}

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	p := retryPolicy{enabled: true, maxRetries: 2, baseDelay: time.Millisecond}
	ctx := context.Background()
	canceled, cancel := context.WithCancel(ctx)
	cancel()

	tests := []struct {
		name string
		p    retryPolicy
		ctx  context.Context
		n    int
		err  error
		want bool
	}{
		{"server error", p, ctx, 0, &StatusError{StatusCode: 503}, true},
		{"wrapped server error", p, ctx, 1, fmt.Errorf("call: %w", &StatusError{StatusCode: 500}), true},
		{"client error", p, ctx, 0, &StatusError{StatusCode: 429}, false},
		{"transport error", p, ctx, 0, &TransportError{Method: "GET", Path: "/x", Err: errors.New("connection refused")}, true},
		{"attempt timeout", p, ctx, 0, &TransportError{Method: "GET", Path: "/x", Err: context.DeadlineExceeded}, true},
		{"request build error", p, ctx, 0, fmt.Errorf("build request: %w", errors.New("invalid method")), false},
		{"response too large", p, ctx, 0, fmt.Errorf("GET /x: %w", ErrResponseTooLarge), false},
		{"canceled round trip", p, ctx, 0, &TransportError{Method: "GET", Path: "/x", Err: context.Canceled}, false},
		{"budget spent", p, ctx, 2, &StatusError{StatusCode: 500}, false},
		{"caller canceled", p, canceled, 0, context.Canceled, false},
		{"disabled", retryPolicy{maxRetries: 5}, ctx, 0, &StatusError{StatusCode: 500}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.shouldRetry(tt.ctx, tt.n, tt.err); got != tt.want {
				t.Errorf("shouldRetry = %v, want %v", got, tt.want)
			}
		})
	}
}
