package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/resumefoundry/auth-core/internal/core/domain"
	"github.com/resumefoundry/auth-core/internal/core/port"
	"github.com/resumefoundry/auth-core/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no
// brokers are configured, typically in development.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType string, userID int64, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.Int64("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserRegistered logs auth.user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.logEvent("auth.user.registered", event.UserID, event.RegisteredAt, map[string]any{
		"username": logger.MaskString(event.Username),
		"email":    logger.MaskEmail(event.Email),
	})
	return nil
}

// PublishLoginAlert logs auth.user.login events.
func (p *StubPublisher) PublishLoginAlert(_ context.Context, event domain.LoginAlertEvent) error {
	payload := map[string]any{
		"username": logger.MaskString(event.Username),
		"email":    logger.MaskEmail(event.Email),
	}
	if event.IP != nil {
		payload["ip"] = logger.MaskIP(*event.IP)
	}
	if event.Location != nil {
		payload["location"] = *event.Location
	}
	p.logEvent("auth.user.login", event.UserID, event.LoginAt, payload)
	return nil
}

// PublishAccountLocked logs auth.user.locked events.
func (p *StubPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	payload := map[string]any{
		"username":        logger.MaskString(event.Username),
		"failed_attempts": event.FailedAttempts,
		"locked_until":    event.LockedUntil,
	}
	if event.IP != nil {
		payload["ip"] = logger.MaskIP(*event.IP)
	}
	p.logEvent("auth.user.locked", event.UserID, event.LockedAt, payload)
	return nil
}

// PublishPasswordChanged logs auth.user.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.logEvent("auth.user.password.changed", event.UserID, event.ChangedAt, map[string]any{
		"changed_by":       event.ChangedBy,
		"sessions_revoked": event.SessionsRevoked,
	})
	return nil
}

// PublishPasswordResetRequested logs auth.user.password.reset_requested events.
func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	p.logEvent("auth.user.password.reset_requested", event.UserID, event.RequestedAt, map[string]any{
		"request_id":         event.RequestID,
		"masked_destination": event.MaskedDestination,
		"expires_at":         event.ExpiresAt,
	})
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
