package security

import "time"

// testSessionSecret signs tokens in unit tests only. Do not use in production.
const testSessionSecret = "test-session-secret"

// testSigningKeyHex is a throwaway secp256k1 key for unit tests only.
const testSigningKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

// NewTestSessionTokens returns SessionTokens with a fixed test secret and a one-hour TTL.
// For unit tests only.
func NewTestSessionTokens() *SessionTokens {
	t, err := NewSessionTokens(testSessionSecret, time.Hour)
	if err != nil {
		panic(err)
	}
	return t
}

// NewTestSessionTokensAt is NewTestSessionTokens with a fixed clock.
func NewTestSessionTokensAt(now func() time.Time) *SessionTokens {
	t := NewTestSessionTokens()
	t.nowF = now
	return t
}

// TestSigningKeyHex returns the throwaway test signing key. For unit tests only.
func TestSigningKeyHex() string {
	return testSigningKeyHex
}
