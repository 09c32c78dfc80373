package security

import (
	"crypto/ecdsa"
	"errors"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidKey is returned when a signing key cannot be parsed.
var ErrInvalidKey = errors.New("invalid key")

// LoadKeyMaterial returns s when it looks like an inline hex key (optionally 0x-prefixed);
// otherwise it reads s as a file path and returns the trimmed contents.
func LoadKeyMaterial(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalidKey
	}
	if isHexKey(s) {
		return s, nil
	}
	b, err := os.ReadFile(s)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// ParseSigningKey parses a secp256k1 private key given inline as hex or as a path to a file holding the hex.
// Used to sign remote backup uploads.
func ParseSigningKey(s string) (*ecdsa.PrivateKey, error) {
	material, err := LoadKeyMaterial(s)
	if err != nil {
		return nil, err
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(material, "0x"))
	if err != nil {
		return nil, ErrInvalidKey
	}
	return key, nil
}

// SignerAddress returns the checksummed address of key.
func SignerAddress(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

func isHexKey(s string) bool {
	s = strings.TrimPrefix(s, "0x")
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
