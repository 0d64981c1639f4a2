package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/resumefoundry/auth-core/internal/core/domain"
	"github.com/resumefoundry/auth-core/internal/core/port"
	"github.com/resumefoundry/auth-core/internal/infra/logger"
	"github.com/resumefoundry/auth-core/internal/infra/security"
	"github.com/resumefoundry/auth-core/internal/repository"
)

// ErrPasswordReused indicates the new password matches the current one or an
// entry inside the policy's reuse window.
var ErrPasswordReused = errors.New("password was used recently")

// ErrResetTokenInvalid indicates the reset token is unknown, expired, or
// already consumed. The three cases are deliberately indistinguishable.
var ErrResetTokenInvalid = errors.New("reset token invalid")

const (
	resetTokenTTL   = time.Hour
	resetTokenBytes = 32
)

// PasswordService handles credential rotation: authenticated change, the
// forgot-password request flow, and token-based reset.
type PasswordService struct {
	users    port.UserRepository
	sessions port.SessionRepository
	tokens   port.ResetTokenRepository
	policy   *PolicyService
	events   port.EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewPasswordService constructs the password service.
func NewPasswordService(
	users port.UserRepository,
	sessions port.SessionRepository,
	tokens port.ResetTokenRepository,
	policy *PolicyService,
	events port.EventPublisher,
	log *zap.Logger,
) *PasswordService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PasswordService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		policy:   policy,
		events:   events,
		logger:   log,
		now:      time.Now,
	}
}

// WithClock injects a custom clock, primarily for testing.
func (s *PasswordService) WithClock(now func() time.Time) *PasswordService {
	if now != nil {
		s.now = now
	}
	return s
}

// Change rotates the password for an authenticated user. The current password
// must verify, the new one must pass the active policy and the reuse window,
// and every other session is revoked afterwards. keepSessionID spares the
// session the change was made from.
func (s *PasswordService) Change(ctx context.Context, userID int64, currentPassword, newPassword, keepSessionID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("look up account: %w", err)
	}

	if !security.VerifyPassword(currentPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	if err := s.rotate(ctx, user, newPassword, keepSessionID, "user"); err != nil {
		return err
	}
	return nil
}

// Forgot starts the reset flow. Unknown identifiers succeed silently so the
// endpoint cannot be used to enumerate accounts. The raw token is returned to
// the caller for delivery; only its hash is stored.
func (s *PasswordService) Forgot(ctx context.Context, identifier string, ip *string) (string, error) {
	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("password reset requested for unknown identifier",
				zap.String("identifier", logger.MaskString(identifier)))
			return "", nil
		}
		return "", fmt.Errorf("look up account: %w", err)
	}

	token, err := security.GenerateSecureToken(resetTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(resetTokenTTL)
	if err := s.tokens.Create(ctx, user.ID, security.HashToken(token), expiresAt); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}

	if s.events != nil {
		detached := context.WithoutCancel(ctx)
		event := domain.PasswordResetRequestedEvent{
			EventID:           uuid.NewString(),
			UserID:            user.ID,
			RequestID:         uuid.NewString(),
			RequestedAt:       now.UTC(),
			MaskedDestination: logger.MaskEmail(user.Email),
			IPAddress:         ip,
			ExpiresAt:         expiresAt,
		}
		go func() {
			if err := s.events.PublishPasswordResetRequested(detached, event); err != nil {
				s.logger.Warn("publish password reset requested", zap.Error(err))
			}
		}()
	}

	return token, nil
}

// Reset consumes a reset token and installs the new password. The token is
// single-use; consumption and expiry are checked in one guarded statement.
// Every session of the account is revoked.
func (s *PasswordService) Reset(ctx context.Context, rawToken, newPassword string) error {
	if rawToken == "" {
		return ErrResetTokenInvalid
	}

	userID, err := s.tokens.Consume(ctx, security.HashToken(rawToken), s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrTokenUsed) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("look up account: %w", err)
	}

	return s.rotate(ctx, user, newPassword, "", "reset")
}

// rotate performs the shared tail of every password change: policy and reuse
// checks, the hash swap, history bookkeeping, session revocation, and the
// changed event.
func (s *PasswordService) rotate(ctx context.Context, user *domain.User, newPassword, keepSessionID, changedBy string) error {
	if err := s.policy.Validate(ctx, newPassword, user.Username, user.Email); err != nil {
		return err
	}

	policy := s.policy.Get(ctx, false)
	if err := s.checkReuse(ctx, user, newPassword, policy.PreventReuseCount); err != nil {
		return err
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	if err := s.users.UpdatePassword(ctx, user.ID, hash, now); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.users.AddPasswordHistory(ctx, domain.PasswordHistoryEntry{
		UserID:       user.ID,
		PasswordHash: hash,
		ChangedAt:    now,
	}); err != nil {
		s.logger.Warn("append password history", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	if policy.PreventReuseCount > 0 {
		if err := s.users.TrimPasswordHistory(ctx, user.ID, policy.PreventReuseCount); err != nil {
			s.logger.Warn("trim password history", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}

	revoked, err := s.sessions.RevokeAllForUser(ctx, user.ID, keepSessionID, "password_changed", now)
	if err != nil {
		s.logger.Warn("revoke sessions after password change",
			zap.Int64("user_id", user.ID), zap.Error(err))
	}

	if s.events != nil {
		detached := context.WithoutCancel(ctx)
		event := domain.PasswordChangedEvent{
			EventID:         uuid.NewString(),
			UserID:          user.ID,
			ChangedAt:       now.UTC(),
			ChangedBy:       changedBy,
			SessionsRevoked: revoked,
		}
		go func() {
			if err := s.events.PublishPasswordChanged(detached, event); err != nil {
				s.logger.Warn("publish password changed", zap.Error(err))
			}
		}()
	}

	return nil
}

// checkReuse rejects the new password when it matches the current hash or any
// history entry inside the reuse window. A reuse count of zero disables the
// history check but the current password is always off-limits.
func (s *PasswordService) checkReuse(ctx context.Context, user *domain.User, newPassword string, reuseCount int) error {
	if security.VerifyPassword(newPassword, user.PasswordHash) {
		return ErrPasswordReused
	}

	if reuseCount <= 0 {
		return nil
	}

	history, err := s.users.ListPasswordHistory(ctx, user.ID, reuseCount)
	if err != nil {
		return fmt.Errorf("list password history: %w", err)
	}
	for _, entry := range history {
		if security.VerifyPassword(newPassword, entry.PasswordHash) {
			return ErrPasswordReused
		}
	}
	return nil
}
