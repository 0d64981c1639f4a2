package security

import (
	"context"
	"fmt"

	"github.com/pquerna/otp/totp"

	"github.com/resumefoundry/auth-core/internal/core/domain"
	"github.com/resumefoundry/auth-core/internal/core/port"
)

// ErrInvalidTOTPCode indicates the submitted code did not validate.
var ErrInvalidTOTPCode = fmt.Errorf("totp: invalid code")

const rememberedDeviceTokenBytes = 32

// TOTPEvaluator implements the two-factor collaborator using TOTP codes and a
// remembered-device store. Accounts without an enrolled secret never require a
// second factor.
type TOTPEvaluator struct {
	devices port.RememberedDeviceStore
}

// NewTOTPEvaluator constructs a TOTP-backed two-factor evaluator.
func NewTOTPEvaluator(devices port.RememberedDeviceStore) *TOTPEvaluator {
	return &TOTPEvaluator{devices: devices}
}

// Required reports whether the login must complete a TOTP challenge. A device
// token that is still trusted suppresses the challenge; store errors fail open
// toward requiring the challenge, never toward skipping it.
func (e *TOTPEvaluator) Required(ctx context.Context, user domain.User, rememberedDevice string) (bool, error) {
	if user.TwoFactorSecret == nil || *user.TwoFactorSecret == "" {
		return false, nil
	}

	if rememberedDevice == "" || e.devices == nil {
		return true, nil
	}

	trusted, err := e.devices.IsTrusted(ctx, user.ID, HashToken(rememberedDevice))
	if err != nil {
		return true, fmt.Errorf("check remembered device: %w", err)
	}

	return !trusted, nil
}

// VerifyCode validates the submitted TOTP code and mints a remembered-device
// token on success.
func (e *TOTPEvaluator) VerifyCode(ctx context.Context, user domain.User, code string) (string, error) {
	if user.TwoFactorSecret == nil || *user.TwoFactorSecret == "" {
		return "", fmt.Errorf("totp: account has no enrolled secret")
	}

	if !totp.Validate(code, *user.TwoFactorSecret) {
		return "", ErrInvalidTOTPCode
	}

	token, err := GenerateSecureToken(rememberedDeviceTokenBytes)
	if err != nil {
		return "", err
	}

	if e.devices != nil {
		if err := e.devices.Trust(ctx, user.ID, HashToken(token)); err != nil {
			return "", fmt.Errorf("trust device: %w", err)
		}
	}

	return token, nil
}

var _ port.TwoFactorEvaluator = (*TOTPEvaluator)(nil)
