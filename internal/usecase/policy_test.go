package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/resumefoundry/auth-core/internal/core/domain"
)

func storePolicy(t *testing.T, settings *fakeSettingsRepo, policy domain.PasswordPolicy) {
	t.Helper()
	value, err := json.Marshal(policy)
	if err != nil {
		t.Fatalf("marshal policy: %v", err)
	}
	if err := settings.Upsert(context.Background(), policySettingsKey, value, time.Now()); err != nil {
		t.Fatalf("upsert policy: %v", err)
	}
}

func TestPolicyServiceServesCachedSnapshotWithinTTL(t *testing.T) {
	settings := newFakeSettingsRepo()
	stored := domain.DefaultPasswordPolicy()
	stored.MinLength = 12
	storePolicy(t, settings, stored)

	now := time.Now()
	svc := NewPolicyService(settings, zaptest.NewLogger(t)).WithClock(func() time.Time { return now })

	if got := svc.Get(context.Background(), false); got.MinLength != 12 {
		t.Fatalf("min_length = %d, want 12", got.MinLength)
	}
	baseline := settings.getCalls

	now = now.Add(4 * time.Minute)
	svc.Get(context.Background(), false)
	if settings.getCalls != baseline {
		t.Fatalf("expected cached read, settings store was hit")
	}

	now = now.Add(2 * time.Minute)
	svc.Get(context.Background(), false)
	if settings.getCalls != baseline+1 {
		t.Fatalf("expected reload after TTL, getCalls = %d", settings.getCalls)
	}
}

func TestPolicyServiceFallsBackToDefaultsWhenStoreFails(t *testing.T) {
	settings := newFakeSettingsRepo()
	settings.getErr = errors.New("connection refused")

	svc := NewPolicyService(settings, zaptest.NewLogger(t))

	got := svc.Get(context.Background(), false)
	want := domain.DefaultPasswordPolicy()
	if got.MinLength != want.MinLength || got.MaxFailedAttempts != want.MaxFailedAttempts {
		t.Fatalf("expected default policy, got %+v", got)
	}
}

func TestPolicyServiceServesStaleSnapshotOverDefaults(t *testing.T) {
	settings := newFakeSettingsRepo()
	stored := domain.DefaultPasswordPolicy()
	stored.MinLength = 14
	storePolicy(t, settings, stored)

	now := time.Now()
	svc := NewPolicyService(settings, zaptest.NewLogger(t)).WithClock(func() time.Time { return now })
	svc.Get(context.Background(), false)

	settings.getErr = errors.New("connection refused")
	now = now.Add(10 * time.Minute)

	if got := svc.Get(context.Background(), false); got.MinLength != 14 {
		t.Fatalf("expected stale snapshot with min_length 14, got %d", got.MinLength)
	}
}

func TestPolicyServiceUpdateReplacesCacheImmediately(t *testing.T) {
	settings := newFakeSettingsRepo()
	svc := NewPolicyService(settings, zaptest.NewLogger(t))

	updated := domain.DefaultPasswordPolicy()
	updated.MinLength = 16
	if err := svc.Update(context.Background(), updated); err != nil {
		t.Fatalf("update: %v", err)
	}

	if got := svc.Get(context.Background(), false); got.MinLength != 16 {
		t.Fatalf("expected updated policy without waiting out the TTL, got min_length %d", got.MinLength)
	}
}

func TestPolicyServiceUpdateRejectsInvalidPolicy(t *testing.T) {
	settings := newFakeSettingsRepo()
	svc := NewPolicyService(settings, zaptest.NewLogger(t))

	bad := domain.DefaultPasswordPolicy()
	bad.MaxFailedAttempts = 0
	if err := svc.Update(context.Background(), bad); !errors.Is(err, domain.ErrInvalidPolicy) {
		t.Fatalf("err = %v, want ErrInvalidPolicy", err)
	}
	if len(settings.rows) != 0 {
		t.Fatalf("invalid policy must not be persisted")
	}
}

func TestPolicyServiceValidateReportsAllViolations(t *testing.T) {
	settings := newFakeSettingsRepo()
	svc := NewPolicyService(settings, zaptest.NewLogger(t))

	err := svc.Validate(context.Background(), "short")
	var pv *PolicyViolationError
	if !errors.As(err, &pv) {
		t.Fatalf("err = %v, want PolicyViolationError", err)
	}
	// min_length, uppercase, number, special, and strength all fail at once.
	if len(pv.Violations) < 4 {
		t.Fatalf("violations = %d, want every failed rule reported", len(pv.Violations))
	}
}

func TestPolicyServiceValidateAcceptsStrongPassword(t *testing.T) {
	settings := newFakeSettingsRepo()
	svc := NewPolicyService(settings, zaptest.NewLogger(t))

	if err := svc.Validate(context.Background(), "Tr4verse!Quartz9", "alice", "alice@example.com"); err != nil {
		t.Fatalf("expected strong password to pass, got %v", err)
	}
}

func TestPolicyServiceIsExpired(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		expiryDays int
		lastChange *time.Time
		want       bool
	}{
		{"zero disables expiry", 0, timePtr(now.AddDate(-5, 0, 0)), false},
		{"nil last change never expires", 90, nil, false},
		{"fresh change", 90, timePtr(now.Add(-time.Hour)), false},
		{"inside grace window", 90, timePtr(now.Add(-23 * time.Hour)), false},
		{"well past expiry", 90, timePtr(now.AddDate(0, 0, -91)), true},
		{"just inside expiry", 90, timePtr(now.AddDate(0, 0, -89)), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			settings := newFakeSettingsRepo()
			policy := domain.DefaultPasswordPolicy()
			policy.ExpiryDays = tc.expiryDays
			storePolicy(t, settings, policy)

			svc := NewPolicyService(settings, zaptest.NewLogger(t)).WithClock(func() time.Time { return now })
			if got := svc.IsExpired(context.Background(), tc.lastChange); got != tc.want {
				t.Fatalf("IsExpired = %v, want %v", got, tc.want)
			}
		})
	}
}

func timePtr(t time.Time) *time.Time { return &t }
