package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/resumefoundry/auth-core/internal/core/port"
)

type bucket struct {
	count   int
	resetAt time.Time
}

// RateLimitStore is the in-process fallback used when Redis is unreachable.
// Budgets are per-instance only; multi-instance deployments running on this
// store do not share counters.
type RateLimitStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

// NewRateLimitStore constructs an empty in-memory store.
func NewRateLimitStore() *RateLimitStore {
	return &RateLimitStore{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// WithClock injects a custom clock, primarily for testing.
func (s *RateLimitStore) WithClock(now func() time.Time) *RateLimitStore {
	if now != nil {
		s.now = now
	}
	return s
}

// Consume deducts points from the bucket identified by key.
func (s *RateLimitStore) Consume(_ context.Context, key string, points, limit int, window time.Duration) (port.RateLimitResult, error) {
	if window <= 0 {
		return port.RateLimitResult{}, errors.New("window must be positive")
	}
	if points <= 0 {
		points = 1
	}

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok || !b.resetAt.After(now) {
		b = &bucket{resetAt: now.Add(window)}
		s.buckets[key] = b
	}
	b.count += points

	// Opportunistic reaping keeps the map bounded without a janitor goroutine.
	if len(s.buckets) > 1024 {
		for k, v := range s.buckets {
			if !v.resetAt.After(now) {
				delete(s.buckets, k)
			}
		}
	}

	result := port.RateLimitResult{
		Allowed:   b.count <= limit,
		Remaining: limit - b.count,
		ResetAt:   b.resetAt,
	}
	if result.Remaining < 0 {
		result.Remaining = 0
	}

	return result, nil
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)
