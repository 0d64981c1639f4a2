package domain

import "time"

// PasswordPolicy is the versioned, singleton set of credential rules. It is
// stored as a single settings row and cached by the policy service; UpdatedAt
// is the version marker.
type PasswordPolicy struct {
	MinLength              int       `json:"min_length"`
	RequireUppercase       bool      `json:"require_uppercase"`
	RequireLowercase       bool      `json:"require_lowercase"`
	RequireNumbers         bool      `json:"require_numbers"`
	RequireSpecialChars    bool      `json:"require_special_chars"`
	ExpiryDays             int       `json:"expiry_days"`
	PreventReuseCount      int       `json:"prevent_reuse_count"`
	MaxFailedAttempts      int       `json:"max_failed_attempts"`
	LockoutDurationMinutes int       `json:"lockout_duration_minutes"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// DefaultPasswordPolicy returns the conservative fallback applied when the
// settings store is unreachable. Authentication degrades to these rules rather
// than becoming unusable.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:              8,
		RequireUppercase:       true,
		RequireLowercase:       true,
		RequireNumbers:         true,
		RequireSpecialChars:    true,
		ExpiryDays:             90,
		PreventReuseCount:      3,
		MaxFailedAttempts:      5,
		LockoutDurationMinutes: 15,
	}
}

// LockoutDuration converts the stored minute count to a duration.
func (p PasswordPolicy) LockoutDuration() time.Duration {
	return time.Duration(p.LockoutDurationMinutes) * time.Minute
}

// Validate reports whether the numeric fields form a usable policy.
// expiry_days == 0 is the explicit "never expires" sentinel and is valid.
func (p PasswordPolicy) Validate() error {
	switch {
	case p.MinLength < 1:
		return ErrInvalidPolicy
	case p.ExpiryDays < 0 || p.PreventReuseCount < 0:
		return ErrInvalidPolicy
	case p.MaxFailedAttempts < 1 || p.LockoutDurationMinutes < 1:
		return ErrInvalidPolicy
	}
	return nil
}
