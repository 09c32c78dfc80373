package security

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, tampered with, or expired.
	ErrInvalidToken = errors.New("invalid token")
	// ErrEmptySecret is returned when the signing secret is empty.
	ErrEmptySecret = errors.New("session secret is empty")
)

// DefaultSessionTTL is the session lifetime when none is configured.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Claims is the signed identity carried by a session token.
type Claims struct {
	Subject   string `json:"sub"`
	Email     string `json:"email,omitempty"`
	Pseudonym string `json:"pseudonym,omitempty"`
	// ExpiresAt is the expiry in unix seconds; set by Issue.
	ExpiresAt int64 `json:"exp"`
}

// Expiry returns ExpiresAt as a time.
func (c *Claims) Expiry() time.Time {
	return time.Unix(c.ExpiresAt, 0).UTC()
}

// SessionTokens issues and verifies session tokens of the form base64url(json claims) + "." + hex(HMAC-SHA256).
// Tokens are not renewable; there is no rotation.
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
	nowF   func() time.Time
}

// NewSessionTokens returns a SessionTokens signing with secret. ttl <= 0 uses DefaultSessionTTL.
func NewSessionTokens(secret string, ttl time.Duration) (*SessionTokens, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionTokens{secret: []byte(secret), ttl: ttl, nowF: time.Now}, nil
}

// Issue encodes claims with a fresh expiry, signs the encoded payload, and returns the token and its expiry.
// Any ExpiresAt on the input is ignored.
func (s *SessionTokens) Issue(claims Claims) (string, time.Time, error) {
	if strings.TrimSpace(claims.Subject) == "" {
		return "", time.Time{}, ErrInvalidToken
	}
	expiresAt := s.nowF().Add(s.ttl).UTC()
	claims.ExpiresAt = expiresAt.Unix()
	body, err := json.Marshal(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	payload := base64.RawURLEncoding.EncodeToString(body)
	sig, err := jwt.SigningMethodHS256.Sign(payload, s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return payload + "." + hex.EncodeToString(sig), expiresAt, nil
}

// Verify checks structure, signature (constant-time), encoding, subject, and expiry.
// Returns the claims or ErrInvalidToken.
func (s *SessionTokens) Verify(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, ErrInvalidToken
	}
	payload, sigHex := parts[0], parts[1]
	sig, err := hex.DecodeString(sigHex)
	if err != nil || hex.EncodeToString(sig) != sigHex {
		return nil, ErrInvalidToken
	}
	if err := jwt.SigningMethodHS256.Verify(payload, sig, s.secret); err != nil {
		return nil, ErrInvalidToken
	}
	body, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, ErrInvalidToken
	}
	var claims Claims
	if err := json.Unmarshal(body, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt < s.nowF().Unix() {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
