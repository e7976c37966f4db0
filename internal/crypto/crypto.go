// Package crypto derives the token signing key.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the length of generated and derived keys in bytes.
const KeySize = 32

// SigningContext is the HKDF info string for bearer-token signing keys.
const SigningContext = "memberauth-token-hs256-v1"

// GenerateKey returns KeySize cryptographically secure random bytes.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	return key, nil
}

// DeriveKey derives a KeySize key from secret using HKDF-SHA256 and the given context.
func DeriveKey(secret []byte, context string) ([]byte, error) {
	if len(secret) == 0 {
		return nil, errors.New("secret must not be empty")
	}
	key := make([]byte, KeySize)
	r := hkdf.New(sha256.New, secret, nil, []byte(context))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	return key, nil
}

// SigningKey resolves the process-wide token signing key. An empty secret yields
// a random key, so tokens do not survive a restart; generated reports that case.
func SigningKey(secret string) (key []byte, generated bool, err error) {
	if secret == "" {
		raw, err := GenerateKey()
		if err != nil {
			return nil, false, err
		}
		key, err = DeriveKey(raw, SigningContext)
		return key, true, err
	}
	key, err = DeriveKey([]byte(secret), SigningContext)
	return key, false, err
}
