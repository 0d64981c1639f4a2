package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/resumefoundry/auth-core/internal/core/domain"
	"github.com/resumefoundry/auth-core/internal/core/port"
	"github.com/resumefoundry/auth-core/internal/infra/security"
)

const (
	policySettingsKey = "password_policy"
	policyCacheTTL    = 5 * time.Minute

	// Changes younger than this never count as expired, closing the
	// false-positive window for brand-new accounts.
	expiryGracePeriod = 24 * time.Hour

	// Minimum zxcvbn score; applied on top of the stored policy rules.
	minStrengthScore = 2
)

// PolicyViolationError carries every rule the candidate password violated.
type PolicyViolationError struct {
	Violations []security.RuleViolation
}

// Error implements error.
func (e *PolicyViolationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return "password policy violation: " + strings.Join(msgs, "; ")
}

// PolicyService owns the versioned password policy singleton: a settings-table
// row cached as an immutable snapshot with a fixed TTL. Reads never fail; a
// broken settings store degrades to the conservative default policy.
type PolicyService struct {
	settings port.SettingsRepository
	logger   *zap.Logger
	ttl      time.Duration
	now      func() time.Time

	mu        sync.RWMutex
	cached    *domain.PasswordPolicy
	fetchedAt time.Time
}

// NewPolicyService constructs the policy service over the settings repository.
func NewPolicyService(settings port.SettingsRepository, log *zap.Logger) *PolicyService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PolicyService{
		settings: settings,
		logger:   log,
		ttl:      policyCacheTTL,
		now:      time.Now,
	}
}

// WithClock injects a custom clock, primarily for testing.
func (s *PolicyService) WithClock(now func() time.Time) *PolicyService {
	if now != nil {
		s.now = now
	}
	return s
}

// Get returns the current policy, serving the cached snapshot while it is
// younger than the TTL. forceRefresh bypasses the cache. A load failure falls
// back to the last known snapshot, then to the hardcoded default, so callers
// always receive a usable policy.
func (s *PolicyService) Get(ctx context.Context, forceRefresh bool) domain.PasswordPolicy {
	now := s.now()

	if !forceRefresh {
		s.mu.RLock()
		if s.cached != nil && now.Sub(s.fetchedAt) < s.ttl {
			policy := *s.cached
			s.mu.RUnlock()
			return policy
		}
		s.mu.RUnlock()
	}

	policy, err := s.load(ctx)
	if err != nil {
		s.mu.RLock()
		stale := s.cached
		s.mu.RUnlock()

		if stale != nil {
			s.logger.Warn("password policy reload failed, serving stale snapshot", zap.Error(err))
			return *stale
		}

		s.logger.Warn("password policy unavailable, serving defaults", zap.Error(err))
		return domain.DefaultPasswordPolicy()
	}

	s.mu.Lock()
	s.cached = &policy
	s.fetchedAt = now
	s.mu.Unlock()

	return policy
}

// Update persists the policy and replaces the cache in the same call, so an
// explicit admin write never leaves a stale window.
func (s *PolicyService) Update(ctx context.Context, policy domain.PasswordPolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	now := s.now()
	policy.UpdatedAt = now.UTC()

	value, err := json.Marshal(policy)
	if err != nil {
		return fmt.Errorf("marshal password policy: %w", err)
	}

	if err := s.settings.Upsert(ctx, policySettingsKey, value, policy.UpdatedAt); err != nil {
		return fmt.Errorf("persist password policy: %w", err)
	}

	s.mu.Lock()
	s.cached = &policy
	s.fetchedAt = now
	s.mu.Unlock()

	return nil
}

// Validate checks the password against every enabled rule of the current
// policy and reports all violations at once. userInputs (username, email) are
// treated as guessable dictionary words by the strength check.
func (s *PolicyService) Validate(ctx context.Context, password string, userInputs ...string) error {
	policy := s.Get(ctx, false)

	rules := security.PolicyRules(policy)
	rules = append(rules, security.StrengthRule(minStrengthScore, userInputs...))

	violations := security.Evaluate(password, rules)
	if len(violations) == 0 {
		return nil
	}

	return &PolicyViolationError{Violations: violations}
}

// IsExpired reports whether a credential changed at lastChange must be
// rotated. expiry_days == 0 disables expiry entirely; changes younger than the
// grace period never expire.
func (s *PolicyService) IsExpired(ctx context.Context, lastChange *time.Time) bool {
	policy := s.Get(ctx, false)
	if policy.ExpiryDays == 0 || lastChange == nil {
		return false
	}

	now := s.now()
	age := now.Sub(*lastChange)
	if age < expiryGracePeriod {
		return false
	}

	return age > time.Duration(policy.ExpiryDays)*24*time.Hour
}

func (s *PolicyService) load(ctx context.Context) (domain.PasswordPolicy, error) {
	value, updatedAt, err := s.settings.Get(ctx, policySettingsKey)
	if err != nil {
		return domain.PasswordPolicy{}, fmt.Errorf("load password policy: %w", err)
	}

	var policy domain.PasswordPolicy
	if err := json.Unmarshal(value, &policy); err != nil {
		return domain.PasswordPolicy{}, fmt.Errorf("decode password policy: %w", err)
	}
	policy.UpdatedAt = updatedAt

	if err := policy.Validate(); err != nil {
		return domain.PasswordPolicy{}, fmt.Errorf("stored password policy invalid: %w", err)
	}

	return policy, nil
}
