package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/resumefoundry/auth-core/internal/core/domain"
	"github.com/resumefoundry/auth-core/internal/core/port"
	"github.com/resumefoundry/auth-core/internal/infra/logger"
	"github.com/resumefoundry/auth-core/internal/infra/security"
	"github.com/resumefoundry/auth-core/internal/repository"
)

// ErrAccountExists indicates the username or email is already taken.
var ErrAccountExists = errors.New("account already exists")

// RegisterInput carries a signup request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// RegistrationService creates accounts, enforcing the password policy at the
// door and seeding the credential history so reuse prevention covers the very
// first password.
type RegistrationService struct {
	users  port.UserRepository
	policy *PolicyService
	events port.EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewRegistrationService constructs the registration service.
func NewRegistrationService(users port.UserRepository, policy *PolicyService, events port.EventPublisher, log *zap.Logger) *RegistrationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RegistrationService{
		users:  users,
		policy: policy,
		events: events,
		logger: log,
		now:    time.Now,
	}
}

// WithClock injects a custom clock, primarily for testing.
func (s *RegistrationService) WithClock(now func() time.Time) *RegistrationService {
	if now != nil {
		s.now = now
	}
	return s
}

// Register validates the candidate password against the active policy, hashes
// it, and creates the account. The policy check runs with the username and
// email as dictionary inputs so trivially derived passwords are rejected.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" || email == "" {
		return nil, fmt.Errorf("username and email are required")
	}

	if err := s.policy.Validate(ctx, input.Password, username, email); err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := domain.User{
		Username:           username,
		Email:              email,
		PasswordHash:       hash,
		LastPasswordChange: &now,
		CreatedAt:          now,
	}

	id, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	user.ID = id

	if err := s.users.AddPasswordHistory(ctx, domain.PasswordHistoryEntry{
		UserID:       id,
		PasswordHash: hash,
		ChangedAt:    now,
	}); err != nil {
		s.logger.Warn("seed password history",
			zap.String("username", logger.MaskString(username)), zap.Error(err))
	}

	if s.events != nil {
		detached := context.WithoutCancel(ctx)
		go func() {
			if err := s.events.PublishUserRegistered(detached, domain.UserRegisteredEvent{
				EventID:      uuid.NewString(),
				UserID:       id,
				Username:     username,
				Email:        email,
				RegisteredAt: now.UTC(),
			}); err != nil {
				s.logger.Warn("publish user registered", zap.Error(err))
			}
		}()
	}

	return &user, nil
}
