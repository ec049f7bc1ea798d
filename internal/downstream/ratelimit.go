package downstream

import (
	"context"
	"time"
)

const rateLimitWindow = 60 * time.Second

// rateLimiter is a blocking fixed-window counter. When the budget for the
// current window is spent, Wait sleeps out the rest of the window, then
// starts a new window at the moment it wakes. Callers queue behind the
// sleeper in arrival order.
type rateLimiter struct {
	limit  int
	window time.Duration
	slot   chan struct{}

	// guarded by slot
	count       int
	windowStart time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// newRateLimiter returns nil for a non-positive budget; a nil limiter
// never blocks.
func newRateLimiter(requestsPerMinute int) *rateLimiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return &rateLimiter{
		limit:  requestsPerMinute,
		window: rateLimitWindow,
		slot:   make(chan struct{}, 1),
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Wait blocks until a request may be sent and returns how long it slept.
func (r *rateLimiter) Wait(ctx context.Context) (time.Duration, error) {
	if r == nil {
		return 0, nil
	}
	select {
	case r.slot <- struct{}{}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	defer func() { <-r.slot }()

	now := r.now()
	if now.Sub(r.windowStart) >= r.window {
		r.count = 0
		r.windowStart = now
	}

	var waited time.Duration
	if r.count >= r.limit {
		waited = r.window - now.Sub(r.windowStart)
		if err := r.sleep(ctx, waited); err != nil {
			return 0, err
		}
		r.count = 0
		r.windowStart = r.now()
	}
	r.count++
	return waited, nil
}

// sleepContext sleeps for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
