package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/resumefoundry/auth-core/internal/core/domain"
	"github.com/resumefoundry/auth-core/internal/core/port"
	"github.com/resumefoundry/auth-core/internal/infra/logger"
)

// AccountLockedError signals that further authentication attempts are refused
// until the lockout window passes.
type AccountLockedError struct {
	Until      time.Time
	RetryAfter time.Duration
}

// Error implements error.
func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked, retry after %s", e.RetryAfter.Round(time.Second))
}

// LockoutTracker drives the per-account failure counter and the lockout
// window. The check runs before any key derivation so a locked account costs
// no KDF work, and failure writes detach from the request context so a client
// disconnect cannot skip the bookkeeping.
type LockoutTracker struct {
	users  port.UserRepository
	policy *PolicyService
	events port.EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewLockoutTracker constructs the tracker.
func NewLockoutTracker(users port.UserRepository, policy *PolicyService, events port.EventPublisher, log *zap.Logger) *LockoutTracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &LockoutTracker{
		users:  users,
		policy: policy,
		events: events,
		logger: log,
		now:    time.Now,
	}
}

// WithClock injects a custom clock, primarily for testing.
func (t *LockoutTracker) WithClock(now func() time.Time) *LockoutTracker {
	if now != nil {
		t.now = now
	}
	return t
}

// Check rejects the attempt while the account is inside its lockout window.
// An expired window passes: the state self-clears on the next successful
// login or resets its counter on the next failure.
func (t *LockoutTracker) Check(user *domain.User) error {
	now := t.now()
	if !user.IsLockedOut(now) {
		return nil
	}
	return &AccountLockedError{
		Until:      *user.LockoutUntil,
		RetryAfter: user.LockoutRemaining(now),
	}
}

// RecordFailure bumps the failure counter and, at the policy threshold, opens
// the lockout window. Runs on a context detached from the caller's so the
// write survives a client disconnect.
func (t *LockoutTracker) RecordFailure(ctx context.Context, user *domain.User, ip *string) {
	ctx = context.WithoutCancel(ctx)
	now := t.now()

	policy := t.policy.Get(ctx, false)

	attempts := user.FailedAttempts + 1
	// A failure after an expired window starts a fresh count.
	if user.LockoutUntil != nil && !user.LockoutUntil.After(now) {
		attempts = 1
	}

	var lockUntil *time.Time
	if attempts >= policy.MaxFailedAttempts {
		until := now.Add(policy.LockoutDuration())
		lockUntil = &until
	}

	if err := t.users.RecordFailedAttempt(ctx, user.ID, attempts, lockUntil); err != nil {
		t.logger.Error("record failed attempt",
			zap.String("username", logger.MaskString(user.Username)),
			zap.Error(err))
		return
	}

	user.FailedAttempts = attempts
	user.LockoutUntil = lockUntil

	if lockUntil != nil {
		t.logger.Warn("account locked",
			zap.String("username", logger.MaskString(user.Username)),
			zap.Int("failed_attempts", attempts),
			zap.Time("until", *lockUntil))
		if t.events != nil {
			_ = t.events.PublishAccountLocked(ctx, domain.AccountLockedEvent{
				EventID:        uuid.NewString(),
				UserID:         user.ID,
				Username:       user.Username,
				FailedAttempts: attempts,
				LockedUntil:    *lockUntil,
				IP:             ip,
				LockedAt:       now.UTC(),
			})
		}
	}
}

// Reset clears the counter and lockout window after a successful login and
// stamps last_login in the same statement.
func (t *LockoutTracker) Reset(ctx context.Context, user *domain.User) error {
	now := t.now()
	if err := t.users.ResetFailedAttempts(ctx, user.ID, now); err != nil {
		return fmt.Errorf("reset failed attempts: %w", err)
	}
	user.FailedAttempts = 0
	user.LockoutUntil = nil
	user.LastLogin = &now
	return nil
}
