package port

import (
	"context"

	"github.com/resumefoundry/auth-core/internal/core/domain"
)

// EventPublisher publishes auth lifecycle events to the message bus. All
// publishes are best-effort side effects; failures are logged and dropped and
// must never affect the authentication result.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishLoginAlert(ctx context.Context, event domain.LoginAlertEvent) error
	PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error
}
