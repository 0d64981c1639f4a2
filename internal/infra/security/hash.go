package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// scrypt cost parameters. Fixed for all stored credentials; changing them
// requires a hash migration, not a config knob.
const (
	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLength   = 16
)

// HashPassword derives an scrypt key for the provided password under a fresh
// random salt. The result is encoded as "<hex-key>.<hex-salt>". RNG or KDF
// failure propagates; there is no degraded mode for generating a credential.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}

	return hex.EncodeToString(key) + "." + hex.EncodeToString(salt), nil
}

// VerifyPassword compares the provided password against a stored hash. Any
// malformed stored value (missing separator, bad hex, length mismatch) fails
// closed: the function returns false and never an error for bad input, keeping
// the response shape identical to an ordinary mismatch.
func VerifyPassword(password, encoded string) bool {
	if password == "" || encoded == "" {
		return false
	}

	parts := strings.Split(encoded, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return false
	}

	stored, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	salt, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computed, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, len(stored))
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(computed, stored) == 1
}
