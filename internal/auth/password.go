// Package auth provides the stateless password hashing primitive.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const hashPrefix = "v2:"

var (
	ErrEmptyPassword   = errors.New("password must not be empty")
	ErrInvalidPassword = errors.New("invalid password")
)

// preHash hashes with SHA-256 first so passwords longer than bcrypt's
// 72-byte limit still count in full.
func preHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// HashPassword returns a bcrypt hash of the SHA-256 pre-hash, tagged "v2:".
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(preHash(password)), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return hashPrefix + string(hashed), nil
}

// VerifyPassword checks password against a hash produced by HashPassword.
func VerifyPassword(hash, password string) error {
	if !strings.HasPrefix(hash, hashPrefix) {
		return ErrInvalidPassword
	}
	err := bcrypt.CompareHashAndPassword([]byte(strings.TrimPrefix(hash, hashPrefix)), []byte(preHash(password)))
	if err != nil {
		return ErrInvalidPassword
	}
	return nil
}
