package domain

import "time"

// User mirrors the persisted representation in the users table. The lockout
// columns (failed_attempts, lockout_until) are mutated on every authentication
// attempt; everything else is comparatively stable.
type User struct {
	ID                 int64
	Username           string
	Email              string
	PasswordHash       string
	FailedAttempts     int
	LockoutUntil       *time.Time
	LastPasswordChange *time.Time
	LastLogin          *time.Time
	TwoFactorSecret    *string
	IsAdmin            bool
	CreatedAt          time.Time
}

// IsLockedOut reports whether the account is under an active lockout at the
// supplied moment. An elapsed lockout_until is treated as clear; the stale
// timestamp is reaped on the next successful login.
func (u User) IsLockedOut(at time.Time) bool {
	return u.LockoutUntil != nil && u.LockoutUntil.After(at)
}

// LockoutRemaining returns how long the active lockout has left, or zero when
// the account is not locked.
func (u User) LockoutRemaining(at time.Time) time.Duration {
	if !u.IsLockedOut(at) {
		return 0
	}
	return u.LockoutUntil.Sub(at)
}

// PasswordHistoryEntry tracks a historical password hash for reuse prevention.
// Entries are ordered most recent first and trimmed to the policy's reuse window.
type PasswordHistoryEntry struct {
	ID           int64
	UserID       int64
	PasswordHash string
	ChangedAt    time.Time
}

// LoginAttempt records authentication attempts for audit and abuse analysis.
type LoginAttempt struct {
	ID        int64
	UserID    *int64
	Username  string
	Succeeded bool
	IP        *string
	UserAgent *string
	Location  *string
	CreatedAt time.Time
}

// GeoLocation is a best-effort enrichment attached to login notifications.
type GeoLocation struct {
	Country string
	Region  string
	City    string
}
