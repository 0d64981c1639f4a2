package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/resumefoundry/auth-core/internal/core/port"
	"github.com/resumefoundry/auth-core/internal/repository"
)

// ResetTokenRepository persists single-use password reset tokens, stored hashed.
type ResetTokenRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewResetTokenRepository wires a PostgreSQL-backed reset token repository.
func NewResetTokenRepository(exec pgExecutor) *ResetTokenRepository {
	return &ResetTokenRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create stores a hashed reset token with its expiry.
func (r *ResetTokenRepository) Create(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	stmt, args, err := r.builder.Insert("auth.password_reset_tokens").
		Columns("user_id", "token_hash", "created_at", "expires_at").
		Values(userID, tokenHash, time.Now().UTC(), expiresAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert reset token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert reset token: %w", err)
	}

	return nil
}

// Consume marks the token used and returns its owner. The UPDATE guards on
// used_at IS NULL and the expiry so a token can be redeemed exactly once.
func (r *ResetTokenRepository) Consume(ctx context.Context, tokenHash string, at time.Time) (int64, error) {
	stmt := `
		UPDATE auth.password_reset_tokens
		   SET used_at = $2
		 WHERE token_hash = $1
		   AND used_at IS NULL
		   AND expires_at > $2
		RETURNING user_id
	`

	var userID int64
	if err := r.exec.QueryRow(ctx, stmt, tokenHash, at).Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("consume reset token: %w", err)
	}

	return userID, nil
}

var _ port.ResetTokenRepository = (*ResetTokenRepository)(nil)
