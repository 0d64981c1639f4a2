package port

import (
	"context"
	"time"
)

// RateLimitResult reports the outcome of a token-bucket consumption.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long the caller must wait before the bucket refills,
// measured from the supplied reference time.
func (r RateLimitResult) RetryAfter(reference time.Time) time.Duration {
	if r.Allowed {
		return 0
	}
	wait := r.ResetAt.Sub(reference)
	if wait < 0 {
		return 0
	}
	return wait
}

// RateLimitStore consumes points from a fixed-window token bucket identified by
// key. Implementations may be durable (Redis, shared across instances) or
// in-process; callers must not assume cross-instance consistency when running
// on the in-process fallback.
type RateLimitStore interface {
	Consume(ctx context.Context, key string, points, limit int, window time.Duration) (RateLimitResult, error)
}
