package util

import (
	"bytes"
	"errors"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("1234567"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if err := ValidatePassword("12345678"); err != nil {
		t.Fatalf("expected 8-char password to pass, got %v", err)
	}
}

func TestDeriveAndVerifyPassword(t *testing.T) {
	hash, salt, err := DerivePassword("correct horse battery")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hash) == 0 || len(salt) == 0 {
		t.Fatal("expected non-empty hash and salt")
	}
	if bytes.Contains(hash, []byte("correct horse battery")) {
		t.Fatal("stored hash must not contain the plaintext")
	}
	if !VerifyPassword("correct horse battery", salt, hash) {
		t.Fatal("expected matching password to verify")
	}
	if VerifyPassword("wrong password here", salt, hash) {
		t.Fatal("expected mismatched password to fail")
	}
}

func TestDerivePasswordSaltsAreUnique(t *testing.T) {
	hash1, salt1, err := DerivePassword("same password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hash2, salt2, err := DerivePassword("same password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bytes.Equal(salt1, salt2) {
		t.Fatal("expected fresh salt per derivation")
	}
	if bytes.Equal(hash1, hash2) {
		t.Fatal("expected differing salts to yield differing hashes")
	}
}

func TestVerifyPasswordFailsClosed(t *testing.T) {
	hash, salt, err := DerivePassword("some password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if VerifyPassword("", salt, hash) {
		t.Fatal("empty password must not verify")
	}
	if VerifyPassword("some password", nil, hash) {
		t.Fatal("missing salt must not verify")
	}
	if VerifyPassword("some password", salt, nil) {
		t.Fatal("missing hash must not verify")
	}
}

func TestGenerateNumericCode(t *testing.T) {
	code, err := GenerateNumericCode(6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6 digits, got %q", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("expected digits only, got %q", code)
		}
	}
}
