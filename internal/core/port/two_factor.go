package port

import (
	"context"

	"github.com/resumefoundry/auth-core/internal/core/domain"
)

// TwoFactorEvaluator decides whether a login must complete a second factor.
// RememberedDevice is the raw remembered-device cookie value, empty when absent.
type TwoFactorEvaluator interface {
	// Required reports whether the user must present a second factor for this
	// login. A remembered device that is still trusted suppresses the challenge.
	Required(ctx context.Context, user domain.User, rememberedDevice string) (bool, error)

	// VerifyCode checks a submitted TOTP code and, on success, returns a fresh
	// remembered-device token to hand back to the client.
	VerifyCode(ctx context.Context, user domain.User, code string) (rememberedDevice string, err error)
}

// RememberedDeviceStore persists hashed remembered-device tokens with a TTL.
type RememberedDeviceStore interface {
	Trust(ctx context.Context, userID int64, tokenHash string) error
	IsTrusted(ctx context.Context, userID int64, tokenHash string) (bool, error)
}

// GeoResolver performs best-effort IP geolocation for login notifications.
// Errors are logged and the enrichment is skipped; resolution is never fatal.
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) (*domain.GeoLocation, error)
}
