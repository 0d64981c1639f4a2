package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/resumefoundry/auth-core/internal/infra/security"
)

func newRegistrationFixture(t *testing.T) (*RegistrationService, *fakeUserRepo) {
	t.Helper()
	users := newFakeUserRepo()
	log := zaptest.NewLogger(t)
	policy := NewPolicyService(newFakeSettingsRepo(), log)
	return NewRegistrationService(users, policy, nil, log), users
}

func TestRegisterCreatesAccountWithHashedPassword(t *testing.T) {
	svc, users := newRegistrationFixture(t)

	user, err := svc.Register(context.Background(), RegisterInput{
		Username: "bob",
		Email:    "Bob@Example.com",
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if user.Email != "bob@example.com" {
		t.Fatalf("email = %q, want lowercased", user.Email)
	}
	if user.PasswordHash == testPassword {
		t.Fatal("password must never be stored in the clear")
	}
	if !security.VerifyPassword(testPassword, user.PasswordHash) {
		t.Fatal("stored hash must verify")
	}
	if len(users.history[user.ID]) != 1 {
		t.Fatal("first password must be seeded into the history")
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	svc, _ := newRegistrationFixture(t)

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "bob", Email: "bob@example.com", Password: "password1",
	})
	var pv *PolicyViolationError
	if !errors.As(err, &pv) {
		t.Fatalf("err = %v, want PolicyViolationError", err)
	}
}

func TestRegisterRejectsDuplicateAccount(t *testing.T) {
	svc, _ := newRegistrationFixture(t)

	input := RegisterInput{Username: "bob", Email: "bob@example.com", Password: testPassword}
	if _, err := svc.Register(context.Background(), input); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(context.Background(), input); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("err = %v, want ErrAccountExists", err)
	}
}
