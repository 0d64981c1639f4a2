package security

import (
	"testing"

	"github.com/resumefoundry/auth-core/internal/core/domain"
)

func TestPolicyRulesCollectAllViolations(t *testing.T) {
	policy := domain.PasswordPolicy{
		MinLength:           10,
		RequireUppercase:    true,
		RequireLowercase:    true,
		RequireNumbers:      true,
		RequireSpecialChars: true,
	}

	violations := Evaluate("short", PolicyRules(policy))
	if len(violations) != 4 {
		t.Fatalf("expected 4 violations, got %d: %v", len(violations), violations)
	}

	codes := make(map[string]bool, len(violations))
	for _, v := range violations {
		codes[v.Code] = true
	}
	for _, expected := range []string{"min_length", "uppercase", "number", "special"} {
		if !codes[expected] {
			t.Fatalf("expected violation %s, got %v", expected, violations)
		}
	}
}

func TestPolicyRulesPassingPassword(t *testing.T) {
	policy := domain.DefaultPasswordPolicy()

	if violations := Evaluate("Str0ng!Passphrase", PolicyRules(policy)); len(violations) != 0 {
		t.Fatalf("expected no violations, got %v", violations)
	}
}

func TestPolicyRulesDisabledClasses(t *testing.T) {
	policy := domain.PasswordPolicy{MinLength: 4}

	if violations := Evaluate("aaaa", PolicyRules(policy)); len(violations) != 0 {
		t.Fatalf("expected no violations for lax policy, got %v", violations)
	}
}

func TestStrengthRuleRejectsGuessablePasswords(t *testing.T) {
	rule := StrengthRule(3, "alice", "alice@example.com")

	if v := rule("Password123"); v == nil {
		t.Fatal("expected weak_password violation for dictionary password")
	}
	if v := rule("alice2024!"); v == nil {
		t.Fatal("expected weak_password violation for identifier-derived password")
	}
	if v := rule("C0mplex!Passphrase#2025"); v != nil {
		t.Fatalf("expected strong password to pass, got %v", v)
	}
}
