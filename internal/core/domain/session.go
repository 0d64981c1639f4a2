package domain

import (
	"errors"
	"time"
)

// ErrInvalidPolicy indicates a password policy with out-of-range fields.
var ErrInvalidPolicy = errors.New("domain: invalid password policy")

// ErrInvalidSessionConfig indicates a session configuration with out-of-range fields.
var ErrInvalidSessionConfig = errors.New("domain: invalid session config")

// SessionConfig is the singleton set of session and cookie rules, stored as a
// settings row, loaded at startup, and swapped wholesale on admin update.
type SessionConfig struct {
	MaxAge            time.Duration `json:"max_age"`
	InactivityTimeout time.Duration `json:"inactivity_timeout"`
	AbsoluteTimeout   time.Duration `json:"absolute_timeout"`
	CookieSecure      bool          `json:"cookie_secure"`
	CookieSameSite    string        `json:"cookie_same_site"`
	CookieDomain      string        `json:"cookie_domain"`
	CookiePath        string        `json:"cookie_path"`
	SingleSession     bool          `json:"single_session"`
}

// DefaultSessionConfig returns the safe fallback used when the settings store
// is unreachable at startup.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxAge:            24 * time.Hour,
		InactivityTimeout: 2 * time.Hour,
		AbsoluteTimeout:   7 * 24 * time.Hour,
		CookieSecure:      true,
		CookieSameSite:    "lax",
		CookiePath:        "/",
	}
}

// Validate reports whether the timeouts form a usable configuration.
func (c SessionConfig) Validate() error {
	if c.MaxAge <= 0 || c.InactivityTimeout <= 0 || c.AbsoluteTimeout <= 0 {
		return ErrInvalidSessionConfig
	}
	switch c.CookieSameSite {
	case "strict", "lax", "none", "":
	default:
		return ErrInvalidSessionConfig
	}
	return nil
}

// Session represents a persisted login session. The raw token is handed to the
// client in a cookie; only its hash is stored.
type Session struct {
	ID           string
	UserID       int64
	TokenHash    string
	IP           *string
	UserAgent    *string
	CreatedAt    time.Time
	LastSeen     time.Time
	ExpiresAt    time.Time
	RevokedAt    *time.Time
	RevokeReason *string
}

// IsActive reports whether the session is still valid at the supplied moment,
// honouring both the absolute expiry and the inactivity timeout.
func (s Session) IsActive(at time.Time, inactivity time.Duration) bool {
	if s.RevokedAt != nil {
		return false
	}
	if !s.ExpiresAt.After(at) {
		return false
	}
	if inactivity > 0 && at.Sub(s.LastSeen) > inactivity {
		return false
	}
	return true
}

// Revoke marks the session as revoked. Returns true when the session changed state.
func (s *Session) Revoke(at time.Time, reason string) bool {
	if s.RevokedAt != nil {
		return false
	}
	s.RevokedAt = &at
	s.RevokeReason = &reason
	return true
}
