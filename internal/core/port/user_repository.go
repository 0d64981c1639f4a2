package port

import (
	"context"
	"time"

	"github.com/resumefoundry/auth-core/internal/core/domain"
)

// UserRepository exposes persistence behavior for accounts and their lockout
// and credential-history state.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error)

	// RecordFailedAttempt increments failed_attempts and, when lockUntil is
	// non-nil, sets lockout_until in the same statement. The increment is
	// read-modify-write against the row; concurrent failures may race and the
	// design accepts the one-attempt drift.
	RecordFailedAttempt(ctx context.Context, id int64, attempts int, lockUntil *time.Time) error

	// ResetFailedAttempts zeroes failed_attempts and clears lockout_until
	// atomically, and stamps last_login.
	ResetFailedAttempts(ctx context.Context, id int64, lastLogin time.Time) error

	UpdatePassword(ctx context.Context, id int64, passwordHash string, changedAt time.Time) error

	ListPasswordHistory(ctx context.Context, userID int64, limit int) ([]domain.PasswordHistoryEntry, error)
	AddPasswordHistory(ctx context.Context, entry domain.PasswordHistoryEntry) error
	TrimPasswordHistory(ctx context.Context, userID int64, maxEntries int) error
}
