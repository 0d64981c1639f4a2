package port

import (
	"context"
	"time"

	"github.com/resumefoundry/auth-core/internal/core/domain"
)

// SessionRepository exposes persistence behavior for login sessions.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	Touch(ctx context.Context, id string, at time.Time) error
	Revoke(ctx context.Context, id string, reason string, at time.Time) error

	// RevokeAllForUser revokes every active session for the user, optionally
	// sparing one session id (single-session enforcement at login). Returns the
	// number of sessions revoked.
	RevokeAllForUser(ctx context.Context, userID int64, exceptID string, reason string, at time.Time) (int, error)
}

// ResetTokenRepository persists single-use password reset tokens (stored hashed).
type ResetTokenRepository interface {
	Create(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
	Consume(ctx context.Context, tokenHash string, at time.Time) (userID int64, err error)
}
