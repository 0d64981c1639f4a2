package port

import (
	"context"
	"time"
)

// SettingsRepository exposes the key-value settings table backing the password
// policy and session configuration singletons. Values are opaque JSON.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (value []byte, updatedAt time.Time, err error)
	Upsert(ctx context.Context, key string, value []byte, updatedAt time.Time) error
}
