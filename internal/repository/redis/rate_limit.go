package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/resumefoundry/auth-core/internal/core/port"
)

// RateLimitRepository implements the token-bucket store on Redis counters so
// budgets are shared across instances. Each key holds a fixed-window counter
// with a TTL equal to the window.
type RateLimitRepository struct {
	client *redis.Client
	prefix string
}

// NewRateLimitRepository constructs a repository using the provided client and key prefix.
func NewRateLimitRepository(client *redis.Client, prefix string) *RateLimitRepository {
	return &RateLimitRepository{client: client, prefix: prefix}
}

// Consume deducts points from the bucket identified by key. The first
// consumption in a window stamps the TTL; subsequent ones inherit it.
func (r *RateLimitRepository) Consume(ctx context.Context, key string, points, limit int, window time.Duration) (port.RateLimitResult, error) {
	if window <= 0 {
		return port.RateLimitResult{}, errors.New("window must be positive")
	}
	if points <= 0 {
		points = 1
	}

	storageKey := r.key(key)

	count, err := r.client.IncrBy(ctx, storageKey, int64(points)).Result()
	if err != nil {
		return port.RateLimitResult{}, fmt.Errorf("redis incrby: %w", err)
	}

	if count == int64(points) {
		if err := r.client.PExpire(ctx, storageKey, window).Err(); err != nil {
			return port.RateLimitResult{}, fmt.Errorf("redis pexpire: %w", err)
		}
	}

	ttl, err := r.client.PTTL(ctx, storageKey).Result()
	if err != nil {
		return port.RateLimitResult{}, fmt.Errorf("redis pttl: %w", err)
	}
	if ttl < 0 {
		// Key exists without expiry (lost TTL after eviction); restore it.
		ttl = window
		if err := r.client.PExpire(ctx, storageKey, window).Err(); err != nil {
			return port.RateLimitResult{}, fmt.Errorf("redis pexpire: %w", err)
		}
	}

	result := port.RateLimitResult{
		Allowed:   count <= int64(limit),
		Remaining: limit - int(count),
		ResetAt:   time.Now().Add(ttl),
	}
	if result.Remaining < 0 {
		result.Remaining = 0
	}

	return result, nil
}

func (r *RateLimitRepository) key(identifier string) string {
	if r.prefix == "" {
		return identifier
	}
	return fmt.Sprintf("%s:%s", r.prefix, identifier)
}

var _ port.RateLimitStore = (*RateLimitRepository)(nil)
