package security

import (
	"testing"
)

func TestHasher_HashAndMatch(t *testing.T) {
	h := NewHasher(4)
	hash, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" || hash == "secret123" {
		t.Fatal("Hash returned empty or plaintext")
	}
	if !h.Matches(hash, "secret123") {
		t.Fatal("Matches should accept the original password")
	}
	if h.Matches(hash, "wrong-password") {
		t.Fatal("Matches should reject a wrong password")
	}
	if h.Matches("not-a-hash", "secret123") {
		t.Fatal("Matches should reject an invalid hash")
	}
}

func TestHasher_Cost(t *testing.T) {
	if h := NewHasher(12); h.Cost != 12 {
		t.Errorf("Cost want 12, got %d", h.Cost)
	}
	if h := NewHasher(0); h.Cost < 4 {
		t.Errorf("zero cost should be clamped to at least MinCost, got %d", h.Cost)
	}
	if h := NewHasher(99); h.Cost != 31 {
		t.Errorf("cost should be clamped to MaxCost, got %d", h.Cost)
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("short"); err != ErrPasswordTooShort {
		t.Errorf("ValidatePassword(short) = %v, want ErrPasswordTooShort", err)
	}
	if err := ValidatePassword("long-enough"); err != nil {
		t.Errorf("ValidatePassword(long-enough) = %v", err)
	}
}
