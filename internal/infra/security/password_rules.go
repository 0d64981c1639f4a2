package security

import (
	"fmt"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"

	"github.com/resumefoundry/auth-core/internal/core/domain"
)

// RuleViolation represents a single password policy violation.
type RuleViolation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PasswordRule checks a password against a specific policy rule, returning a
// violation or nil.
type PasswordRule func(password string) *RuleViolation

// MinLengthRule ensures the password has at least min characters.
func MinLengthRule(min int) PasswordRule {
	return func(password string) *RuleViolation {
		if len([]rune(password)) < min {
			return &RuleViolation{
				Code:    "min_length",
				Message: fmt.Sprintf("password must be at least %d characters long", min),
			}
		}
		return nil
	}
}

// RequireClassRule ensures the password contains at least one rune matching the
// supplied class predicate.
func RequireClassRule(code, message string, match func(rune) bool) PasswordRule {
	return func(password string) *RuleViolation {
		for _, r := range password {
			if match(r) {
				return nil
			}
		}
		return &RuleViolation{Code: code, Message: message}
	}
}

// StrengthRule enforces a minimum zxcvbn score, with the user's own
// identifiers treated as guessable input. Applied at registration and password
// change on top of the stored policy.
func StrengthRule(minScore int, userInputs ...string) PasswordRule {
	return func(password string) *RuleViolation {
		if minScore <= 0 {
			return nil
		}
		if minScore > 4 {
			minScore = 4
		}

		result := zxcvbn.PasswordStrength(password, userInputs)
		if result.Score >= minScore {
			return nil
		}

		return &RuleViolation{
			Code:    "weak_password",
			Message: "password is too weak; choose a more complex value",
		}
	}
}

// PolicyRules translates the stored password policy into executable rules.
func PolicyRules(policy domain.PasswordPolicy) []PasswordRule {
	rules := []PasswordRule{MinLengthRule(policy.MinLength)}

	if policy.RequireUppercase {
		rules = append(rules, RequireClassRule("uppercase", "password must include at least one uppercase letter", unicode.IsUpper))
	}
	if policy.RequireLowercase {
		rules = append(rules, RequireClassRule("lowercase", "password must include at least one lowercase letter", unicode.IsLower))
	}
	if policy.RequireNumbers {
		rules = append(rules, RequireClassRule("number", "password must include at least one digit", unicode.IsDigit))
	}
	if policy.RequireSpecialChars {
		rules = append(rules, RequireClassRule("special", "password must include at least one symbol", func(r rune) bool {
			return unicode.IsSymbol(r) || unicode.IsPunct(r)
		}))
	}

	return rules
}

// Evaluate runs every rule and returns all violations, not just the first.
// Clients need the complete list to render actionable errors.
func Evaluate(password string, rules []PasswordRule) []RuleViolation {
	var violations []RuleViolation
	for _, rule := range rules {
		if v := rule(password); v != nil {
			violations = append(violations, *v)
		}
	}
	return violations
}
