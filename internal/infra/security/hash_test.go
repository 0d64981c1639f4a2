package security

import (
	"strings"
	"testing"
)

func TestHashPasswordAndVerifySuccess(t *testing.T) {
	password := "correct horse battery staple"

	encoded, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	parts := strings.Split(encoded, ".")
	if len(parts) != 2 {
		t.Fatalf("unexpected hash format: %q", encoded)
	}
	if len(parts[0]) != scryptKeyLen*2 {
		t.Fatalf("unexpected key length: %d", len(parts[0]))
	}
	if len(parts[1]) != saltLength*2 {
		t.Fatalf("unexpected salt length: %d", len(parts[1]))
	}

	if !VerifyPassword(password, encoded) {
		t.Fatal("VerifyPassword returned false for correct password")
	}
}

func TestVerifyPasswordIncorrectPassword(t *testing.T) {
	encoded, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	if VerifyPassword("Tr0ub4dor&3", encoded) {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestHashPasswordSaltsAreUnique(t *testing.T) {
	first, err := HashPassword("swordfish")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	second, err := HashPassword("swordfish")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	if first == second {
		t.Fatal("expected distinct hashes for the same password")
	}
}

func TestVerifyPasswordMalformedHashFailsClosed(t *testing.T) {
	malformed := []string{
		"",
		"no-separator",
		".",
		"abcdef.",
		".abcdef",
		"zzzz.abcdef",
		"abcdef.zzzz",
		"abc.def.ghi",
		"abcde.0123",
	}

	for _, encoded := range malformed {
		if VerifyPassword("password", encoded) {
			t.Fatalf("VerifyPassword returned true for malformed hash %q", encoded)
		}
	}
}

func TestVerifyPasswordEmptyInputs(t *testing.T) {
	encoded, err := HashPassword("swordfish")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	if VerifyPassword("", encoded) {
		t.Fatal("VerifyPassword should return false for empty password")
	}
	if VerifyPassword("swordfish", "") {
		t.Fatal("VerifyPassword should return false for empty hash")
	}
}

func FuzzVerifyPasswordNeverPanics(f *testing.F) {
	f.Add("password", "abc.def")
	f.Add("", "no-separator")
	f.Add("x", "....")
	f.Fuzz(func(t *testing.T, password, encoded string) {
		// Fail-closed contract: any input yields a bool, never a panic.
		VerifyPassword(password, encoded)
	})
}
