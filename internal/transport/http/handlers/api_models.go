package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/resumefoundry/auth-core/internal/core/domain"
	"github.com/resumefoundry/auth-core/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: middleware.GetTraceID(c),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// ValidationErrorResponse carries every violated password rule at once so
// clients can render the complete checklist.
type ValidationErrorResponse struct {
	Error      string          `json:"error"`
	Violations []RuleViolation `json:"violations"`
	TraceID    string          `json:"trace_id,omitempty"`
}

// RuleViolation mirrors a single password rule failure.
type RuleViolation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// UserSummary describes a minimal view of a user returned by the API.
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
	TOTPCode   string `json:"totp_code"`
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	User            UserSummary    `json:"user"`
	Session         SessionSummary `json:"session"`
	PasswordExpired bool           `json:"password_expired"`
}

// SessionSummary provides a compact view of session context in login responses.
type SessionSummary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TwoFactorResponse is returned when a login requires a TOTP code.
type TwoFactorResponse struct {
	Message           string `json:"message"`
	RequiresTwoFactor bool   `json:"requires_two_factor"`
}

// RegistrationRequest defines the payload for the register endpoint.
type RegistrationRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegistrationResponse describes a freshly created account.
type RegistrationResponse struct {
	User UserSummary `json:"user"`
}

// PasswordChangeRequest defines the payload for authenticated password rotation.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// PasswordForgotRequest starts the reset flow.
type PasswordForgotRequest struct {
	Identifier string `json:"identifier" binding:"required"`
}

// PasswordForgotResponse acknowledges the request. ResetToken is populated in
// development mode only.
type PasswordForgotResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"reset_token,omitempty"`
}

// PasswordResetRequest consumes a reset token.
type PasswordResetRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// PasswordPolicyPayload mirrors the stored password policy for the admin API.
type PasswordPolicyPayload struct {
	MinLength              int       `json:"min_length" binding:"required,min=1"`
	RequireUppercase       bool      `json:"require_uppercase"`
	RequireLowercase       bool      `json:"require_lowercase"`
	RequireNumbers         bool      `json:"require_numbers"`
	RequireSpecialChars    bool      `json:"require_special_chars"`
	ExpiryDays             int       `json:"expiry_days" binding:"min=0"`
	PreventReuseCount      int       `json:"prevent_reuse_count" binding:"min=0"`
	MaxFailedAttempts      int       `json:"max_failed_attempts" binding:"required,min=1"`
	LockoutDurationMinutes int       `json:"lockout_duration_minutes" binding:"required,min=1"`
	UpdatedAt              time.Time `json:"updated_at,omitempty"`
}

// SessionConfigPayload mirrors the stored session configuration. Durations are
// expressed in seconds on the wire.
type SessionConfigPayload struct {
	MaxAgeSeconds            int    `json:"max_age_seconds" binding:"required,min=1"`
	InactivityTimeoutSeconds int    `json:"inactivity_timeout_seconds" binding:"required,min=1"`
	AbsoluteTimeoutSeconds   int    `json:"absolute_timeout_seconds" binding:"required,min=1"`
	CookieSecure             bool   `json:"cookie_secure"`
	CookieSameSite           string `json:"cookie_same_site"`
	CookieDomain             string `json:"cookie_domain"`
	CookiePath               string `json:"cookie_path"`
	SingleSession            bool   `json:"single_session"`
}

func userSummary(u *domain.User) UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Email: u.Email}
}

func sessionConfigPayload(cfg domain.SessionConfig) SessionConfigPayload {
	return SessionConfigPayload{
		MaxAgeSeconds:            int(cfg.MaxAge / time.Second),
		InactivityTimeoutSeconds: int(cfg.InactivityTimeout / time.Second),
		AbsoluteTimeoutSeconds:   int(cfg.AbsoluteTimeout / time.Second),
		CookieSecure:             cfg.CookieSecure,
		CookieSameSite:           cfg.CookieSameSite,
		CookieDomain:             cfg.CookieDomain,
		CookiePath:               cfg.CookiePath,
		SingleSession:            cfg.SingleSession,
	}
}

func sessionConfigFromPayload(p SessionConfigPayload) domain.SessionConfig {
	return domain.SessionConfig{
		MaxAge:            time.Duration(p.MaxAgeSeconds) * time.Second,
		InactivityTimeout: time.Duration(p.InactivityTimeoutSeconds) * time.Second,
		AbsoluteTimeout:   time.Duration(p.AbsoluteTimeoutSeconds) * time.Second,
		CookieSecure:      p.CookieSecure,
		CookieSameSite:    p.CookieSameSite,
		CookieDomain:      p.CookieDomain,
		CookiePath:        p.CookiePath,
		SingleSession:     p.SingleSession,
	}
}
