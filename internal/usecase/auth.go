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

// ErrInvalidCredentials is the single error returned for every failed
// credential check. Unknown account and wrong password are deliberately
// indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrSessionInvalid indicates the presented session token does not map to an
// active session.
var ErrSessionInvalid = errors.New("session invalid")

// LoginInput carries everything a login attempt arrives with.
type LoginInput struct {
	Identifier       string
	Password         string
	TOTPCode         string
	RememberedDevice string
	IP               *string
	UserAgent        *string
}

// LoginResult is the outcome of a successful (or partially successful) login.
// When RequiresTwoFactor is set no session was issued and the client must
// retry with a code.
type LoginResult struct {
	User              *domain.User
	Session           *domain.Session
	Token             string
	RememberedDevice  string
	RequiresTwoFactor bool
	PasswordExpired   bool
}

// AuthService orchestrates login: admission control, lockout, credential
// verification, expiry, the second factor, and session issuance, in that
// order. Side effects that must not delay or fail the login (penalties,
// notifications) run detached from the request.
type AuthService struct {
	users     port.UserRepository
	sessions  port.SessionRepository
	limiter   *LoginLimiter
	lockout   *LockoutTracker
	policy    *PolicyService
	sessCfg   *SessionConfigService
	twoFactor port.TwoFactorEvaluator
	geo       port.GeoResolver
	events    port.EventPublisher
	logger    *zap.Logger
	tokenSize int
	now       func() time.Time
}

// NewAuthService constructs the login orchestrator. geo and events may be nil;
// the corresponding side effects are skipped.
func NewAuthService(
	users port.UserRepository,
	sessions port.SessionRepository,
	limiter *LoginLimiter,
	lockout *LockoutTracker,
	policy *PolicyService,
	sessCfg *SessionConfigService,
	twoFactor port.TwoFactorEvaluator,
	geo port.GeoResolver,
	events port.EventPublisher,
	tokenSize int,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	if tokenSize <= 0 {
		tokenSize = 32
	}
	return &AuthService{
		users:     users,
		sessions:  sessions,
		limiter:   limiter,
		lockout:   lockout,
		policy:    policy,
		sessCfg:   sessCfg,
		twoFactor: twoFactor,
		geo:       geo,
		events:    events,
		logger:    log,
		tokenSize: tokenSize,
		now:       time.Now,
	}
}

// WithClock injects a custom clock, primarily for testing.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// Login runs the full authentication pipeline. Admission and lockout checks
// run before any key derivation; penalty and notification side effects never
// block the response.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	ip := ""
	if input.IP != nil {
		ip = *input.IP
	}

	if err := s.limiter.Admit(ctx, ip, input.Identifier); err != nil {
		return nil, err
	}

	user, err := s.users.GetByIdentifier(ctx, input.Identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.limiter.PenalizeFailure(context.WithoutCancel(ctx), input.Identifier, ip)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("look up account: %w", err)
	}

	if err := s.lockout.Check(user); err != nil {
		return nil, err
	}

	if !security.VerifyPassword(input.Password, user.PasswordHash) {
		s.recordFailure(ctx, user, input.Identifier, ip)
		return nil, ErrInvalidCredentials
	}

	required, err := s.twoFactor.Required(ctx, *user, input.RememberedDevice)
	if err != nil {
		s.logger.Warn("two-factor requirement check failed, challenging",
			zap.String("username", logger.MaskString(user.Username)),
			zap.Error(err))
		required = true
	}

	var rememberedDevice string
	if required {
		if input.TOTPCode == "" {
			return &LoginResult{User: user, RequiresTwoFactor: true}, nil
		}
		rememberedDevice, err = s.twoFactor.VerifyCode(ctx, *user, input.TOTPCode)
		if err != nil {
			if errors.Is(err, security.ErrInvalidTOTPCode) {
				s.recordFailure(ctx, user, input.Identifier, ip)
				return nil, ErrInvalidCredentials
			}
			return nil, fmt.Errorf("verify second factor: %w", err)
		}
	}

	if err := s.lockout.Reset(ctx, user); err != nil {
		return nil, err
	}

	expired := s.policy.IsExpired(ctx, user.LastPasswordChange)

	session, token, err := s.issueSession(ctx, user, input.IP, input.UserAgent)
	if err != nil {
		return nil, err
	}

	s.notifyLogin(ctx, user, input.IP, input.UserAgent)

	return &LoginResult{
		User:             user,
		Session:          session,
		Token:            token,
		RememberedDevice: rememberedDevice,
		PasswordExpired:  expired,
	}, nil
}

// ValidateSession resolves a raw session token to its user, enforcing the
// absolute and inactivity timeouts from the active session configuration and
// touching last_seen on success.
func (s *AuthService) ValidateSession(ctx context.Context, rawToken string) (*domain.User, *domain.Session, error) {
	if rawToken == "" {
		return nil, nil, ErrSessionInvalid
	}

	session, err := s.sessions.GetByTokenHash(ctx, security.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrSessionInvalid
		}
		return nil, nil, fmt.Errorf("look up session: %w", err)
	}

	now := s.now()
	cfg := s.sessCfg.Current()

	if now.Sub(session.CreatedAt) > cfg.AbsoluteTimeout {
		s.revokeQuietly(ctx, session.ID, "absolute_timeout")
		return nil, nil, ErrSessionInvalid
	}
	if !session.IsActive(now, cfg.InactivityTimeout) {
		if session.RevokedAt == nil {
			s.revokeQuietly(ctx, session.ID, "inactivity")
		}
		return nil, nil, ErrSessionInvalid
	}

	if err := s.sessions.Touch(ctx, session.ID, now); err != nil {
		s.logger.Warn("touch session", zap.String("session_id", session.ID), zap.Error(err))
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrSessionInvalid
		}
		return nil, nil, fmt.Errorf("look up session user: %w", err)
	}

	return user, session, nil
}

// Logout revokes the session behind the raw token. Unknown tokens succeed
// silently; logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	session, err := s.sessions.GetByTokenHash(ctx, security.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("look up session: %w", err)
	}
	if err := s.sessions.Revoke(ctx, session.ID, "logout", s.now()); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *AuthService) issueSession(ctx context.Context, user *domain.User, ip, userAgent *string) (*domain.Session, string, error) {
	token, err := security.GenerateSecureToken(s.tokenSize)
	if err != nil {
		return nil, "", fmt.Errorf("generate session token: %w", err)
	}

	now := s.now()
	cfg := s.sessCfg.Current()

	session := domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashToken(token),
		IP:        ip,
		UserAgent: userAgent,
		CreatedAt: now,
		LastSeen:  now,
		ExpiresAt: now.Add(cfg.MaxAge),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}

	if cfg.SingleSession {
		revoked, err := s.sessions.RevokeAllForUser(ctx, user.ID, session.ID, "single_session", now)
		if err != nil {
			s.logger.Warn("revoke prior sessions",
				zap.Int64("user_id", user.ID), zap.Error(err))
		} else if revoked > 0 {
			s.logger.Info("prior sessions revoked",
				zap.Int64("user_id", user.ID), zap.Int("count", revoked))
		}
	}

	return &session, token, nil
}

// recordFailure runs the lockout bookkeeping and the limiter penalties on a
// detached context so neither is lost when the client disconnects mid-flight.
func (s *AuthService) recordFailure(ctx context.Context, user *domain.User, identifier, ip string) {
	detached := context.WithoutCancel(ctx)
	s.lockout.RecordFailure(detached, user, optional(ip))
	s.limiter.PenalizeFailure(detached, identifier, ip)
}

// notifyLogin publishes the login alert in the background. Geo enrichment and
// publishing are both best-effort.
func (s *AuthService) notifyLogin(ctx context.Context, user *domain.User, ip, userAgent *string) {
	if s.events == nil {
		return
	}

	detached := context.WithoutCancel(ctx)
	now := s.now()
	go func() {
		var location *domain.GeoLocation
		if s.geo != nil && ip != nil && *ip != "" {
			loc, err := s.geo.Resolve(detached, *ip)
			if err != nil {
				s.logger.Debug("geo lookup failed", zap.Error(err))
			} else {
				location = loc
			}
		}

		event := domain.LoginAlertEvent{
			EventID:   uuid.NewString(),
			UserID:    user.ID,
			Username:  user.Username,
			Email:     user.Email,
			IP:        ip,
			UserAgent: userAgent,
			Location:  location,
			LoginAt:   now.UTC(),
		}
		if err := s.events.PublishLoginAlert(detached, event); err != nil {
			s.logger.Warn("publish login alert", zap.Error(err))
		}
	}()
}

func (s *AuthService) revokeQuietly(ctx context.Context, sessionID, reason string) {
	if err := s.sessions.Revoke(ctx, sessionID, reason, s.now()); err != nil {
		s.logger.Warn("revoke session", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
