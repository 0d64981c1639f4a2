package domain

import "time"

// UserRegisteredEvent represents the payload for auth.user.registered messages.
type UserRegisteredEvent struct {
	EventID      string
	UserID       int64
	Username     string
	Email        string
	RegisteredAt time.Time
	Metadata     map[string]any
}

// LoginAlertEvent represents the payload for auth.user.login messages. It is
// dispatched best-effort after a successful login so the notification service
// can mail the user.
type LoginAlertEvent struct {
	EventID   string
	UserID    int64
	Username  string
	Email     string
	IP        *string
	UserAgent *string
	Location  *GeoLocation
	LoginAt   time.Time
	Metadata  map[string]any
}

// AccountLockedEvent represents the payload for auth.user.locked messages,
// consumed by admin tooling to surface brute-force activity.
type AccountLockedEvent struct {
	EventID        string
	UserID         int64
	Username       string
	FailedAttempts int
	LockedUntil    time.Time
	IP             *string
	LockedAt       time.Time
	Metadata       map[string]any
}

// PasswordChangedEvent represents the payload for auth.user.password.changed messages.
type PasswordChangedEvent struct {
	EventID         string
	UserID          int64
	ChangedAt       time.Time
	ChangedBy       string
	SessionsRevoked int
	Metadata        map[string]any
}

// PasswordResetRequestedEvent represents the payload for
// auth.user.password.reset_requested messages.
type PasswordResetRequestedEvent struct {
	EventID           string
	UserID            int64
	RequestID         string
	RequestedAt       time.Time
	MaskedDestination string
	IPAddress         *string
	ExpiresAt         time.Time
	Metadata          map[string]any
}
