package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/resumefoundry/auth-core/internal/core/domain"
)

func newLockoutFixture(t *testing.T, user *domain.User, now func() time.Time) (*LockoutTracker, *fakeUserRepo, *publishedEvents) {
	t.Helper()
	users := newFakeUserRepo(user)
	settings := newFakeSettingsRepo()
	policy := NewPolicyService(settings, zaptest.NewLogger(t)).WithClock(now)
	events := &publishedEvents{}
	tracker := NewLockoutTracker(users, policy, events, zaptest.NewLogger(t)).WithClock(now)
	return tracker, users, events
}

func TestLockoutTrackerLocksAtThreshold(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	user := &domain.User{ID: 1, Username: "mallory"}
	tracker, _, events := newLockoutFixture(t, user, func() time.Time { return now })

	// Default policy locks at five failures.
	for i := 0; i < 4; i++ {
		tracker.RecordFailure(context.Background(), user, nil)
		if user.LockoutUntil != nil {
			t.Fatalf("locked after %d failures", i+1)
		}
	}
	if err := tracker.Check(user); err != nil {
		t.Fatalf("check before threshold: %v", err)
	}

	tracker.RecordFailure(context.Background(), user, nil)
	if user.LockoutUntil == nil {
		t.Fatal("expected lockout at the fifth failure")
	}
	if want := now.Add(15 * time.Minute); !user.LockoutUntil.Equal(want) {
		t.Fatalf("lockout_until = %v, want %v", user.LockoutUntil, want)
	}
	if events.lockedCount() != 1 {
		t.Fatalf("locked events = %d, want 1", events.lockedCount())
	}

	var locked *AccountLockedError
	if err := tracker.Check(user); !errors.As(err, &locked) {
		t.Fatalf("check while locked = %v, want AccountLockedError", err)
	}
	if locked.RetryAfter <= 0 {
		t.Fatalf("retry-after = %v, want positive", locked.RetryAfter)
	}
}

func TestLockoutTrackerExpiredWindowPassesCheck(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	user := &domain.User{ID: 1, Username: "mallory", FailedAttempts: 5, LockoutUntil: &past}
	tracker, _, _ := newLockoutFixture(t, user, func() time.Time { return now })

	if err := tracker.Check(user); err != nil {
		t.Fatalf("expired lockout must pass: %v", err)
	}
}

func TestLockoutTrackerFailureAfterExpiredWindowRestartsCount(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	user := &domain.User{ID: 1, Username: "mallory", FailedAttempts: 5, LockoutUntil: &past}
	tracker, _, _ := newLockoutFixture(t, user, func() time.Time { return now })

	tracker.RecordFailure(context.Background(), user, nil)
	if user.FailedAttempts != 1 {
		t.Fatalf("failed_attempts = %d, want fresh count of 1", user.FailedAttempts)
	}
	if user.LockoutUntil != nil {
		t.Fatalf("expected no new lockout on the first fresh failure")
	}
}

func TestLockoutTrackerResetClearsStateAndStampsLogin(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	until := now.Add(10 * time.Minute)
	user := &domain.User{ID: 1, Username: "mallory", FailedAttempts: 3, LockoutUntil: &until}
	tracker, users, _ := newLockoutFixture(t, user, func() time.Time { return now })

	if err := tracker.Reset(context.Background(), user); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if user.FailedAttempts != 0 || user.LockoutUntil != nil {
		t.Fatalf("state not cleared: attempts=%d lockout=%v", user.FailedAttempts, user.LockoutUntil)
	}
	if user.LastLogin == nil || !user.LastLogin.Equal(now) {
		t.Fatalf("last_login = %v, want %v", user.LastLogin, now)
	}

	stored, err := users.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if stored.FailedAttempts != 0 || stored.LockoutUntil != nil {
		t.Fatal("persisted state not cleared")
	}
}

func TestLockoutTrackerSurvivesCancelledRequestContext(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	user := &domain.User{ID: 1, Username: "mallory", FailedAttempts: 4}
	tracker, users, _ := newLockoutFixture(t, user, func() time.Time { return now })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tracker.RecordFailure(ctx, user, nil)
	if users.failedAttemptCalls != 1 {
		t.Fatalf("write skipped on cancelled context")
	}
	if user.LockoutUntil == nil {
		t.Fatal("expected lockout despite cancelled request context")
	}
}
