package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/resumefoundry/auth-core/internal/core/port"
)

// RememberedDeviceRepository stores hashed remembered-device tokens with a TTL
// so a trusted browser can skip the two-factor challenge until the trust lapses.
type RememberedDeviceRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRememberedDeviceRepository constructs a repository with the provided prefix and trust TTL.
func NewRememberedDeviceRepository(client *redis.Client, prefix string, ttl time.Duration) *RememberedDeviceRepository {
	return &RememberedDeviceRepository{client: client, prefix: prefix, ttl: ttl}
}

// Trust records the hashed device token for the user.
func (r *RememberedDeviceRepository) Trust(ctx context.Context, userID int64, tokenHash string) error {
	if err := r.client.Set(ctx, r.key(userID, tokenHash), 1, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// IsTrusted reports whether the hashed device token is still trusted.
func (r *RememberedDeviceRepository) IsTrusted(ctx context.Context, userID int64, tokenHash string) (bool, error) {
	if err := r.client.Get(ctx, r.key(userID, tokenHash)).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get: %w", err)
	}
	return true, nil
}

func (r *RememberedDeviceRepository) key(userID int64, tokenHash string) string {
	return fmt.Sprintf("%s:%d:%s", r.prefix, userID, tokenHash)
}

var _ port.RememberedDeviceStore = (*RememberedDeviceRepository)(nil)
